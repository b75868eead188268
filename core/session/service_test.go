package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
)

type repoStub struct {
	sessions map[string]*Session
}

var _ Repository = (*repoStub)(nil)

func newRepoStub() *repoStub {
	return &repoStub{sessions: make(map[string]*Session)}
}

func (r *repoStub) CreateSession(_ context.Context, sess Session) (Session, error) {
	sess.ID = uuid.New().String()
	r.sessions[sess.ID] = &sess
	return sess, nil
}

func (r *repoStub) GetSessionByToken(_ context.Context, token string) (Session, error) {
	for _, sess := range r.sessions {
		if sess.Token == token {
			return *sess, nil
		}
	}
	return Session{}, ErrNotFound
}

func (r *repoStub) GetSessionByRefreshToken(_ context.Context, refreshToken string) (Session, error) {
	for _, sess := range r.sessions {
		if sess.RefreshToken == refreshToken {
			return *sess, nil
		}
	}
	return Session{}, ErrNotFound
}

func (r *repoStub) QuerySessionsByUser(_ context.Context, userID string) ([]Session, error) {
	var sessions []Session
	for _, sess := range r.sessions {
		if sess.UserID == userID {
			sessions = append(sessions, *sess)
		}
	}
	return sessions, nil
}

func (r *repoStub) UpdateSession(_ context.Context, sess Session) (Session, error) {
	if _, ok := r.sessions[sess.ID]; !ok {
		return Session{}, ErrNotFound
	}
	r.sessions[sess.ID] = &sess
	return sess, nil
}

func (r *repoStub) DeactivateSessions(_ context.Context, userID string, excludeIDs ...string) (int, error) {
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	var cnt int
	for _, sess := range r.sessions {
		if sess.UserID != userID || !sess.IsActive {
			continue
		}
		if _, ok := excluded[sess.ID]; ok {
			continue
		}
		sess.IsActive = false
		cnt++
	}
	return cnt, nil
}

func (r *repoStub) DeleteSessions(_ context.Context, expiredBefore, staleBefore time.Time) (int, error) {
	var cnt int
	for id, sess := range r.sessions {
		if sess.ExpiresAt.Before(expiredBefore) || (!sess.IsActive && sess.CreatedAt.Before(staleBefore)) {
			delete(r.sessions, id)
			cnt++
		}
	}
	return cnt, nil
}

func testConf() *core.Config {
	return &core.Config{
		Session: core.SessionConfig{
			TTL:      24 * time.Hour,
			StaleAge: 7 * 24 * time.Hour,
		},
	}
}

func Test_service_FindActive(t *testing.T) {
	defer func() { nowFunc = time.Now }()
	now := time.Now()
	nowFunc = func() time.Time { return now }

	ctx := context.Background()
	repo := newRepoStub()
	svc := NewService(testConf(), repo)

	sess, err := svc.Create(ctx, "usr1", Device{UserAgent: "cli", IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.Token == "" || sess.RefreshToken == "" {
		t.Fatal("Create() did not issue tokens")
	}

	got, err := svc.FindActive(ctx, sess.Token)
	if err != nil {
		t.Fatalf("FindActive() error = %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("FindActive() = %v, want %v", got.ID, sess.ID)
	}

	if _, err = svc.FindActive(ctx, "no-such-token"); err != ErrNotFound {
		t.Errorf("FindActive(unknown) error = %v, want %v", err, ErrNotFound)
	}

	if _, err = svc.FindActiveByRefreshToken(ctx, sess.RefreshToken); err != nil {
		t.Errorf("FindActiveByRefreshToken() error = %v", err)
	}

	// expired
	now = now.Add(24*time.Hour + time.Minute)
	if _, err = svc.FindActive(ctx, sess.Token); err != ErrNotFound {
		t.Errorf("FindActive(expired) error = %v, want %v", err, ErrNotFound)
	}
	if _, err = svc.FindActiveByRefreshToken(ctx, sess.RefreshToken); err != ErrNotFound {
		t.Errorf("FindActiveByRefreshToken(expired) error = %v, want %v", err, ErrNotFound)
	}

	// signed out
	now = now.Add(-2 * time.Hour)
	if err = svc.Deactivate(ctx, sess); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if _, err = svc.FindActive(ctx, sess.Token); err != ErrNotFound {
		t.Errorf("FindActive(deactivated) error = %v, want %v", err, ErrNotFound)
	}
}

func Test_service_Touch(t *testing.T) {
	defer func() { nowFunc = time.Now }()
	now := time.Now()
	nowFunc = func() time.Time { return now }

	ctx := context.Background()
	repo := newRepoStub()
	svc := NewService(testConf(), repo)

	sess, err := svc.Create(ctx, "usr1", Device{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now = now.Add(10 * time.Minute)
	touched, err := svc.Touch(ctx, sess)
	if err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if !touched.LastActivity.Equal(now.UTC()) {
		t.Errorf("Touch() LastActivity = %v, want %v", touched.LastActivity, now.UTC())
	}
	if !touched.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Errorf("Touch() must not slide ExpiresAt: got %v, want %v", touched.ExpiresAt, sess.ExpiresAt)
	}

	// inactive session: no-op
	touched.IsActive = false
	now = now.Add(10 * time.Minute)
	again, err := svc.Touch(ctx, touched)
	if err != nil {
		t.Fatalf("Touch(inactive) error = %v", err)
	}
	if !again.LastActivity.Equal(touched.LastActivity) {
		t.Errorf("Touch(inactive) LastActivity = %v, want %v", again.LastActivity, touched.LastActivity)
	}
}

func Test_service_DeactivateAllForUser(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	svc := NewService(testConf(), repo)

	s1, _ := svc.Create(ctx, "usr1", Device{})
	s2, _ := svc.Create(ctx, "usr1", Device{})
	s3, _ := svc.Create(ctx, "usr1", Device{})
	other, _ := svc.Create(ctx, "usr2", Device{})

	cnt, err := svc.DeactivateAllForUser(ctx, "usr1", s1.ID)
	if err != nil {
		t.Fatalf("DeactivateAllForUser() error = %v", err)
	}
	if cnt != 2 {
		t.Errorf("DeactivateAllForUser() = %v, want 2", cnt)
	}
	if _, err = svc.FindActive(ctx, s1.Token); err != nil {
		t.Errorf("excluded session must stay active; error = %v", err)
	}
	for _, sess := range []Session{s2, s3} {
		if _, err = svc.FindActive(ctx, sess.Token); err != ErrNotFound {
			t.Errorf("FindActive(%s) error = %v, want %v", sess.ID, err, ErrNotFound)
		}
	}
	if _, err = svc.FindActive(ctx, other.Token); err != nil {
		t.Errorf("other user's session must stay active; error = %v", err)
	}
}

func Test_service_DeactivateByRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	svc := NewService(testConf(), repo)

	sess, _ := svc.Create(ctx, "usr1", Device{})

	if err := svc.DeactivateByRefreshToken(ctx, "lol"); err != ErrNotFound {
		t.Errorf("DeactivateByRefreshToken(unknown) error = %v, want %v", err, ErrNotFound)
	}
	if err := svc.DeactivateByRefreshToken(ctx, sess.RefreshToken); err != nil {
		t.Fatalf("DeactivateByRefreshToken() error = %v", err)
	}
	if _, err := svc.FindActive(ctx, sess.Token); err != ErrNotFound {
		t.Errorf("FindActive(deactivated) error = %v, want %v", err, ErrNotFound)
	}
}

func Test_service_CleanupExpired(t *testing.T) {
	defer func() { nowFunc = time.Now }()
	now := time.Now()
	nowFunc = func() time.Time { return now }

	ctx := context.Background()
	repo := newRepoStub()
	svc := NewService(testConf(), repo)

	fresh, _ := svc.Create(ctx, "usr1", Device{})

	// expired a while ago
	now = now.Add(-48 * time.Hour)
	expired, _ := svc.Create(ctx, "usr1", Device{})

	// inactive but recent: kept until it goes stale
	now = now.Add(48 * time.Hour)
	recent, _ := svc.Create(ctx, "usr1", Device{})
	recent.ExpiresAt = now.Add(time.Hour) // still unexpired
	_, _ = repo.UpdateSession(ctx, recent)
	_ = svc.Deactivate(ctx, recent)

	// inactive and stale
	now = now.Add(-8 * 24 * time.Hour)
	stale, _ := svc.Create(ctx, "usr1", Device{})
	now = now.Add(8 * 24 * time.Hour)
	stale.ExpiresAt = now.Add(time.Hour) // unexpired, removed for staleness only
	_, _ = repo.UpdateSession(ctx, stale)
	_ = svc.Deactivate(ctx, stale)

	cnt, err := svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if cnt != 2 {
		t.Errorf("CleanupExpired() = %v, want 2", cnt)
	}

	remaining, _ := repo.QuerySessionsByUser(ctx, "usr1")
	if len(remaining) != 2 {
		t.Fatalf("len(remaining) = %v, want 2", len(remaining))
	}
	for _, sess := range remaining {
		if sess.ID != fresh.ID && sess.ID != recent.ID {
			t.Errorf("unexpected survivor %v (%v)", sess.ID, sess.ExpiresAt)
		}
	}
	if _, ok := repo.sessions[expired.ID]; ok {
		t.Error("expired session not removed")
	}
	if _, ok := repo.sessions[stale.ID]; ok {
		t.Error("stale session not removed")
	}
}
