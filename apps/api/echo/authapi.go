package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/session"
	"github.com/trezcool/chuo/core/user"
)

type authApi struct {
	usrSvc   user.Service
	sessSvc  session.Service
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		usrSvc:   opts.UserSvc,
		sessSvc:  opts.SessionSvc,
		validate: opts.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	g = ag.Group("", jwt, sess)
	g.POST("/logout", api.logout)
	g.POST("/token-refresh", api.refreshToken)
	g.GET("/sessions", api.querySessions)
	g.DELETE("/sessions/others", api.destroyOtherSessions)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, err := authenticate(rctx, data.Email, data.Password, api.usrSvc)
	if err != nil {
		return err
	}

	sess, err := api.sessSvc.Create(rctx, usr.ID, getDevice(ctx))
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	token, err := GenerateToken(GetUserClaims(usr, sess.Token))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:        token,
		RefreshToken: sess.RefreshToken,
		User:         usr,
	})
}

// logout deactivates the current session; JWTs issued against it die with it.
func (api *authApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	if err := api.sessSvc.Deactivate(ctx.Request().Context(), sess); err != nil {
		return errors.Wrap(err, "deactivating session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rctx := ctx.Request().Context()
	sess, err := api.sessSvc.FindActiveByRefreshToken(rctx, data.RefreshToken)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errSessionExpired
		}
		return errors.Wrap(err, "finding session by refresh token")
	}
	if sess.UserID != claims.Subject {
		return errHttpForbidden
	}

	usr, err := getContextUser(ctx, api.usrSvc, claims)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.Active() {
		return errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(GetUserClaims(usr, sess.Token, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, RefreshToken: sess.RefreshToken, User: usr})
}

func (api *authApi) querySessions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sessions, err := api.sessSvc.QueryForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

// destroyOtherSessions signs the user out of every device but this one.
func (api *authApi) destroyOtherSessions(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	cnt, err := api.sessSvc.DeactivateAllForUser(ctx.Request().Context(), sess.UserID, sess.ID)
	if err != nil {
		return errors.Wrap(err, "deactivating sessions")
	}
	return ctx.JSON(http.StatusOK, SignedOutResponse{SignedOut: cnt})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.usrSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.usrSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token        string    `json:"token"`
		RefreshToken string    `json:"refresh_token"`
		User         user.User `json:"user"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	SignedOutResponse struct {
		SignedOut int `json:"signed_out"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (rr *RefreshRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(rr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
