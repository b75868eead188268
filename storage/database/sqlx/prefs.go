package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core/prefs"
)

type prefsRow struct {
	UserID             string      `db:"user_id"`
	Theme              null.String `db:"theme"`
	Language           null.String `db:"language"`
	EmailNotifications null.Bool   `db:"email_notifications"`
	PushNotifications  null.Bool   `db:"push_notifications"`
	DashboardLayout    null.String `db:"dashboard_layout"`
	HighContrast       null.Bool   `db:"high_contrast"`
	FontScale          null.Int    `db:"font_scale"`
	UpdatedAt          null.Time   `db:"updated_at"`
}

func (r prefsRow) unpack() prefs.Preferences {
	return prefs.Preferences{
		UserID:             r.UserID,
		Theme:              r.Theme.String,
		Language:           r.Language.String,
		EmailNotifications: r.EmailNotifications.Bool,
		PushNotifications:  r.PushNotifications.Bool,
		DashboardLayout:    r.DashboardLayout.String,
		HighContrast:       r.HighContrast.Bool,
		FontScale:          r.FontScale.Int,
		UpdatedAt:          r.UpdatedAt.Time,
	}
}

func packPrefs(p prefs.Preferences) prefsRow {
	return prefsRow{
		UserID:             p.UserID,
		Theme:              null.NewString(p.Theme, p.Theme != ""),
		Language:           null.NewString(p.Language, p.Language != ""),
		EmailNotifications: null.BoolFrom(p.EmailNotifications),
		PushNotifications:  null.BoolFrom(p.PushNotifications),
		DashboardLayout:    null.NewString(p.DashboardLayout, p.DashboardLayout != ""),
		HighContrast:       null.BoolFrom(p.HighContrast),
		FontScale:          null.IntFrom(p.FontScale),
		UpdatedAt:          null.NewTime(p.UpdatedAt.UTC(), !p.UpdatedAt.IsZero()),
	}
}

type prefsRepository struct {
	db *sqlx.DB
}

var _ prefs.Repository = (*prefsRepository)(nil) // interface compliance check

func NewPrefsRepository(db *sqlx.DB) *prefsRepository {
	return &prefsRepository{db: db}
}

func (repo prefsRepository) GetPreferences(ctx context.Context, userID string) (prefs.Preferences, error) {
	var row prefsRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM user_preferences WHERE user_id = $1`, userID); err != nil {
		if err == sql.ErrNoRows {
			return prefs.Preferences{}, prefs.ErrNotFound
		}
		return prefs.Preferences{}, errors.Wrap(err, "finding preferences")
	}
	return row.unpack(), nil
}

func (repo prefsRepository) UpsertPreferences(ctx context.Context, p prefs.Preferences) (prefs.Preferences, error) {
	row := packPrefs(p)
	query := `
INSERT INTO user_preferences (user_id, theme, language, email_notifications, push_notifications, dashboard_layout, high_contrast, font_scale, updated_at)
VALUES (:user_id, :theme, :language, :email_notifications, :push_notifications, :dashboard_layout, :high_contrast, :font_scale, :updated_at)
ON CONFLICT (user_id) DO UPDATE
SET theme = EXCLUDED.theme, language = EXCLUDED.language,
    email_notifications = EXCLUDED.email_notifications, push_notifications = EXCLUDED.push_notifications,
    dashboard_layout = EXCLUDED.dashboard_layout, high_contrast = EXCLUDED.high_contrast,
    font_scale = EXCLUDED.font_scale, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return prefs.Preferences{}, errors.Wrap(err, "upserting preferences")
	}
	return p, nil
}

func (repo prefsRepository) DeletePreferences(ctx context.Context, userID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "deleting preferences")
	}
	return nil
}
