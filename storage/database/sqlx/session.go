package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/session"
)

type sessionRow struct {
	ID           string      `db:"id"`
	UserID       string      `db:"user_id"`
	Token        string      `db:"token"`
	RefreshToken string      `db:"refresh_token"`
	UserAgent    null.String `db:"user_agent"`
	IP           null.String `db:"ip"`
	IsActive     null.Bool   `db:"is_active"`
	LastActivity null.Time   `db:"last_activity"`
	ExpiresAt    time.Time   `db:"expires_at"`
	CreatedAt    null.Time   `db:"created_at"`
}

func (r sessionRow) unpack() session.Session {
	return session.Session{
		ID:           r.ID,
		UserID:       r.UserID,
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		UserAgent:    r.UserAgent.String,
		IP:           r.IP.String,
		IsActive:     r.IsActive.Bool,
		LastActivity: r.LastActivity.Time,
		ExpiresAt:    r.ExpiresAt,
		CreatedAt:    r.CreatedAt.Time,
	}
}

func packSession(sess session.Session) sessionRow {
	return sessionRow{
		ID:           sess.ID,
		UserID:       sess.UserID,
		Token:        sess.Token,
		RefreshToken: sess.RefreshToken,
		UserAgent:    null.NewString(sess.UserAgent, sess.UserAgent != ""),
		IP:           null.NewString(sess.IP, sess.IP != ""),
		IsActive:     null.BoolFrom(sess.IsActive),
		LastActivity: null.NewTime(sess.LastActivity.UTC(), !sess.LastActivity.IsZero()),
		ExpiresAt:    sess.ExpiresAt.UTC(),
		CreatedAt:    null.NewTime(sess.CreatedAt.UTC(), !sess.CreatedAt.IsZero()),
	}
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func trapSessionNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	sess.ID = uuid.New().String()
	row := packSession(sess)
	query := `
INSERT INTO session (id, user_id, token, refresh_token, user_agent, ip, is_active, last_activity, expires_at, created_at)
VALUES (:id, :user_id, :token, :refresh_token, :user_agent, :ip, :is_active, :last_activity, :expires_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return row.unpack(), nil
}

func (repo sessionRepository) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE token = $1`, token); err != nil {
		return session.Session{}, trapSessionNoRowsErr(err, "finding session by token")
	}
	return row.unpack(), nil
}

func (repo sessionRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (session.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE refresh_token = $1`, refreshToken); err != nil {
		return session.Session{}, trapSessionNoRowsErr(err, "finding session by refresh token")
	}
	return row.unpack(), nil
}

func (repo sessionRepository) QuerySessionsByUser(ctx context.Context, userID string) ([]session.Session, error) {
	var rows []sessionRow
	query := `SELECT * FROM session WHERE user_id = $1 ORDER BY last_activity DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	sessions := make([]session.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.unpack())
	}
	return sessions, nil
}

func (repo sessionRepository) UpdateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	query := `
UPDATE session
SET is_active = :is_active, last_activity = :last_activity, expires_at = :expires_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, packSession(sess))
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (repo sessionRepository) DeactivateSessions(ctx context.Context, userID string, excludeIDs ...string) (int, error) {
	query := `UPDATE session SET is_active = FALSE WHERE user_id = $1 AND is_active AND NOT (id::text = ANY($2))`
	res, err := repo.db.ExecContext(ctx, query, userID, pqStringArray(excludeIDs))
	if err != nil {
		return 0, errors.Wrap(err, "deactivating sessions")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func (repo sessionRepository) DeleteSessions(ctx context.Context, expiredBefore, staleBefore time.Time) (int, error) {
	query := `DELETE FROM session WHERE expires_at < $1 OR (NOT is_active AND created_at < $2)`
	res, err := repo.db.ExecContext(ctx, query, expiredBefore.UTC(), staleBefore.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting sessions")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
