package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sess.ID = uuid.New().String()
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sess := range repo.db.table {
		if sess.Token == token {
			return *sess, nil
		}
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sess := range repo.db.table {
		if sess.RefreshToken == refreshToken {
			return *sess, nil
		}
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) QuerySessionsByUser(ctx context.Context, userID string) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var sessions []session.Session
	for _, sess := range repo.db.table {
		if sess.UserID == userID {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].LastActivity.After(sessions[j].LastActivity) })
	return sessions, nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origSess, ok := repo.db.table[sess.ID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	origSess.IsActive = sess.IsActive
	origSess.LastActivity = sess.LastActivity
	origSess.ExpiresAt = sess.ExpiresAt

	repo.db.table[sess.ID] = origSess
	return *origSess, nil
}

func (repo *sessionRepository) DeactivateSessions(ctx context.Context, userID string, excludeIDs ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var cnt int
	for _, sess := range repo.db.table {
		if sess.UserID == userID && sess.IsActive && !excluded[sess.ID] {
			sess.IsActive = false
			cnt++
		}
	}
	return cnt, nil
}

func (repo *sessionRepository) DeleteSessions(ctx context.Context, expiredBefore, staleBefore time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for id, sess := range repo.db.table {
		if sess.ExpiresAt.Before(expiredBefore) || (!sess.IsActive && sess.CreatedAt.Before(staleBefore)) {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
