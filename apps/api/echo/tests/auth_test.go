package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	. "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core/session"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	testutil "github.com/trezcool/chuo/tests"
)

func logIn(t *testing.T, app Server, email, pwd string) LoginResponse {
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, LoginRequest{Email: email, Password: pwd}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logIn() failed: code = %v, body = %v", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("logIn() failed: %v", err)
	}
	return resp
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "mdr", user.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.cd", "mdr", user.RoleStudent, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: marchallObj(t, LoginRequest{Email: "lol@test.cd", Password: "mdr"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errLoginRejected),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Email: usr.Email, Password: "lol"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errLoginRejected),
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Email: "ndog@test.cd", Password: "mdr"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login ok", func(t *testing.T) {
		resp := logIn(t, app, usr.Email, "mdr")
		if resp.Token == "" || resp.RefreshToken == "" {
			t.Fatalf("missing tokens in response: %+v", resp)
		}
		if resp.User.ID != usr.ID {
			t.Errorf("User.ID = %v, want %v", resp.User.ID, usr.ID)
		}
		if resp.User.LastLogin.IsZero() {
			t.Error("LastLogin not set")
		}

		// a session was opened and the token is live
		if _, err := sessSvc.FindActiveByRefreshToken(context.Background(), resp.RefreshToken); err != nil {
			t.Errorf("no active session for refresh token: %v", err)
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/sessions", resp.Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("sessions with fresh token: code = %v", rec.Code)
		}
	})
}

func Test_authApi_authRequired(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "garbage token", token: "lol", wantCode: http.StatusForbidden, wantData: marchallObj(t, errInvalidToken)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/auth/sessions", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("valid jwt without live session", func(t *testing.T) {
		usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "mdr", user.RoleStudent, true)
		token, err := GenerateToken(GetUserClaims(usr, "no-such-session"))
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/sessions", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeadSession)}, rec)
	})
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "mdr", user.RoleStudent, true)
	resp := logIn(t, app, usr.Email, "mdr")
	otherToken := getToken(t, usr) // second device

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: code = %v, body = %v", rec.Code, rec.Body.String())
	}

	// every JWT bound to the signed-out session is now dead
	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/sessions", resp.Token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeadSession)}, rec)

	// ... but other sessions of the same user live on
	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/sessions", otherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other session: code = %v", rec.Code)
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "mdr", user.RoleStudent, true)
	other := testutil.CreateUser(t, usrRepo, "King", "king@test.cd", "mdr", user.RoleStudent, true)
	resp := logIn(t, app, usr.Email, "mdr")
	otherResp := logIn(t, app, other.Email, "mdr")

	tests := []httpTest{
		{
			name: "refresh token required", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"refresh_token": "this field is required"}),
		},
		{
			name: "unknown refresh token", body: marchallObj(t, RefreshRequest{RefreshToken: "lol"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errDeadSession),
		},
		{
			name: "someone else's refresh token", body: marchallObj(t, RefreshRequest{RefreshToken: otherResp.RefreshToken}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", resp.Token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("refresh ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", resp.Token, marchallObj(t, RefreshRequest{RefreshToken: resp.RefreshToken}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("refresh: code = %v, body = %v", rec.Code, rec.Body.String())
		}
		var refreshed LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &refreshed); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if refreshed.Token == "" {
			t.Fatal("no new token issued")
		}
		if refreshed.RefreshToken != resp.RefreshToken {
			t.Errorf("refresh token changed: %v", refreshed.RefreshToken)
		}

		// the new token is bound to the same session
		req, rec = newAuthRequest(http.MethodGet, "/v1/auth/sessions", refreshed.Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("refreshed token: code = %v", rec.Code)
		}
	})
}

func Test_authApi_sessions(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "mdr", user.RoleStudent, true)
	resp := logIn(t, app, usr.Email, "mdr")
	getToken(t, usr) // second device
	getToken(t, usr) // third device

	req, rec := newAuthRequest(http.MethodGet, "/v1/auth/sessions", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sessions: code = %v", rec.Code)
	}
	var sessions []session.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(sessions) != 3 {
		t.Errorf("len(sessions) = %v, want 3", len(sessions))
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/auth/sessions/others", resp.Token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantData: marchallObj(t, SignedOutResponse{SignedOut: 2})}, rec)

	// current session survives
	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/sessions", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("current session: code = %v", rec.Code)
	}
}

func Test_authApi_passwordReset(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "mdr", user.RoleStudent, true)

	sent := len(emailsvc.SentMessages)
	req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", marchallObj(t, PasswordResetRequest{Email: usr.Email}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("password-reset: code = %v, body = %v", rec.Code, rec.Body.String())
	}
	if len(emailsvc.SentMessages) != sent+1 {
		t.Fatalf("len(SentMessages) = %v, want %v", len(emailsvc.SentMessages), sent+1)
	}

	// unknown email gets the same bland answer, and no email goes out
	sent = len(emailsvc.SentMessages)
	req, rec = newRequest(http.MethodPost, "/v1/auth/password-reset", marchallObj(t, PasswordResetRequest{Email: "lol@test.cd"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("password-reset (unknown): code = %v", rec.Code)
	}
	if len(emailsvc.SentMessages) != sent {
		t.Errorf("len(SentMessages) = %v, want %v", len(emailsvc.SentMessages), sent)
	}

	// pull uid & token out of the reset email
	msg := emailsvc.SentMessages[sent-1]
	re := regexp.MustCompile(`\?uid=(\S+)&token=(\S+)`)
	match := re.FindStringSubmatch(msg.TextContent)
	if match == nil {
		t.Fatalf("no reset link in email:\n%s", msg.TextContent)
	}
	uid, token := match[1], match[2]

	t.Run("confirm rejects a bad token", func(t *testing.T) {
		body := marchallObj(t, user.ResetUserPassword{UID: uid, Token: "lol-lol-lol", Password: "G0@tV1be$x", PasswordConfirm: "G0@tV1be$x"})
		req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset-confirm", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("confirm ok", func(t *testing.T) {
		body := marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: "G0@tV1be$x", PasswordConfirm: "G0@tV1be$x"})
		req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset-confirm", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, body = %v", rec.Code, rec.Body.String())
		}
		// old password is gone, new one works
		req, rec = newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, LoginRequest{Email: usr.Email, Password: "mdr"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("old password: code = %v, want %v", rec.Code, http.StatusUnauthorized)
		}
		logIn(t, app, usr.Email, "G0@tV1be$x")
	})
}
