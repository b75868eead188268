package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrNotFound = errors.New("session not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByToken(ctx context.Context, token string) (Session, error)
		GetSessionByRefreshToken(ctx context.Context, refreshToken string) (Session, error)
		QuerySessionsByUser(ctx context.Context, userID string) ([]Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		// DeactivateSessions flips IsActive off on all active sessions of a user,
		// except those whose IDs are excluded. It reports how many were flipped.
		DeactivateSessions(ctx context.Context, userID string, excludeIDs ...string) (int, error)
		// DeleteSessions removes sessions with ExpiresAt < expiredBefore, and
		// inactive sessions with CreatedAt < staleBefore. It reports how many were removed.
		DeleteSessions(ctx context.Context, expiredBefore, staleBefore time.Time) (int, error)
	}

	Service interface {
		Create(ctx context.Context, userID string, dev Device) (Session, error)
		FindActive(ctx context.Context, token string) (Session, error)
		FindActiveByRefreshToken(ctx context.Context, refreshToken string) (Session, error)
		Touch(ctx context.Context, sess Session) (Session, error)
		Deactivate(ctx context.Context, sess Session) error
		DeactivateByRefreshToken(ctx context.Context, refreshToken string) error
		DeactivateAllForUser(ctx context.Context, userID string, excludeIDs ...string) (int, error)
		QueryForUser(ctx context.Context, userID string) ([]Session, error)
		CleanupExpired(ctx context.Context) (int, error)
	}

	service struct {
		repo     Repository
		ttl      time.Duration
		staleAge time.Duration
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository) Service {
	return &service{
		repo:     repo,
		ttl:      conf.Session.TTL,
		staleAge: conf.Session.StaleAge,
	}
}

// Create opens a new session; prior sessions of the user are left untouched.
func (svc *service) Create(ctx context.Context, userID string, dev Device) (Session, error) {
	now := nowFunc().UTC()
	sess := Session{
		UserID:       userID,
		Token:        newToken(),
		RefreshToken: newToken(),
		UserAgent:    dev.UserAgent,
		IP:           dev.IP,
		IsActive:     true,
		LastActivity: now,
		ExpiresAt:    now.Add(svc.ttl),
		CreatedAt:    now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) FindActive(ctx context.Context, token string) (Session, error) {
	sess, err := svc.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !sess.Valid(nowFunc().UTC()) {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (svc *service) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (Session, error) {
	sess, err := svc.repo.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}
	if !sess.Valid(nowFunc().UTC()) {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Touch records activity on a session. Touching an inactive session is a no-op.
func (svc *service) Touch(ctx context.Context, sess Session) (Session, error) {
	if !sess.IsActive {
		return sess, nil
	}
	sess.LastActivity = nowFunc().UTC()
	return svc.repo.UpdateSession(ctx, sess)
}

func (svc *service) Deactivate(ctx context.Context, sess Session) error {
	sess.IsActive = false
	_, err := svc.repo.UpdateSession(ctx, sess)
	return errors.Wrap(err, "deactivating session")
}

// DeactivateByRefreshToken signs out whichever session owns the refresh token.
func (svc *service) DeactivateByRefreshToken(ctx context.Context, refreshToken string) error {
	sess, err := svc.repo.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	return svc.Deactivate(ctx, sess)
}

// DeactivateAllForUser signs a user out of every device except the excluded sessions.
func (svc *service) DeactivateAllForUser(ctx context.Context, userID string, excludeIDs ...string) (int, error) {
	return svc.repo.DeactivateSessions(ctx, userID, excludeIDs...)
}

func (svc *service) QueryForUser(ctx context.Context, userID string) ([]Session, error) {
	return svc.repo.QuerySessionsByUser(ctx, userID)
}

// CleanupExpired garbage-collects sessions that expired, and inactive ones
// older than the configured stale age.
func (svc *service) CleanupExpired(ctx context.Context) (int, error) {
	now := nowFunc().UTC()
	return svc.repo.DeleteSessions(ctx, now, now.Add(-svc.staleAge))
}

func newToken() string {
	return uuid.New().String() + uuid.New().String()
}
