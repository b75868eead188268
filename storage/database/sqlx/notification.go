package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/notification"
)

type notificationRow struct {
	ID          string      `db:"id"`
	RecipientID string      `db:"recipient_id"`
	Title       null.String `db:"title"`
	Message     null.String `db:"message"`
	Read        null.Bool   `db:"read"`
	ReadAt      null.Time   `db:"read_at"`
	CreatedAt   null.Time   `db:"created_at"`
}

func (r notificationRow) unpack() notification.Notification {
	n := notification.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		Title:       r.Title.String,
		Message:     r.Message.String,
		Read:        r.Read.Bool,
		CreatedAt:   r.CreatedAt.Time,
	}
	if r.ReadAt.Valid {
		readAt := r.ReadAt.Time
		n.ReadAt = &readAt
	}
	return n
}

func packNotification(n notification.Notification) notificationRow {
	row := notificationRow{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Title:       null.NewString(n.Title, n.Title != ""),
		Message:     null.NewString(n.Message, n.Message != ""),
		Read:        null.BoolFrom(n.Read),
		CreatedAt:   null.NewTime(n.CreatedAt.UTC(), !n.CreatedAt.IsZero()),
	}
	if n.ReadAt != nil {
		row.ReadAt = null.TimeFrom(n.ReadAt.UTC())
	}
	return row
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row := packNotification(n)
	query := `
INSERT INTO notification (id, recipient_id, title, message, read, read_at, created_at)
VALUES (:id, :recipient_id, :title, :message, :read, :read_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.unpack(), nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "finding notification by ID")
	}
	return row.unpack(), nil
}

func (repo notificationRepository) QueryNotificationsForUser(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	query := `SELECT * FROM notification WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}

	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.unpack())
	}
	return notifs, nil
}

func (repo notificationRepository) MarkNotificationsRead(ctx context.Context, userID string, ids ...string) (int, error) {
	// re-marking a read notification is a no-op but still counts; the original
	// read_at is preserved
	query := `UPDATE notification SET read = TRUE, read_at = COALESCE(read_at, $1) WHERE recipient_id = $2`
	args := []interface{}{time.Now().UTC(), userID}
	if len(ids) > 0 {
		query += ` AND id::text = ANY($3)`
		args = append(args, pqStringArray(ids))
	} else {
		query += ` AND NOT read`
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
