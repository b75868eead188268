package prefs

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("preferences not found")

type (
	Repository interface {
		GetPreferences(ctx context.Context, userID string) (Preferences, error)
		UpsertPreferences(ctx context.Context, p Preferences) (Preferences, error)
		DeletePreferences(ctx context.Context, userID string) error
	}

	Service interface {
		Get(ctx context.Context, userID string) (Preferences, error)
		Update(ctx context.Context, userID string, up UpdatePreferences) (Preferences, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Get never fails on a missing row; a user who has saved nothing gets the defaults.
func (svc *service) Get(ctx context.Context, userID string) (Preferences, error) {
	p, err := svc.repo.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Default(userID), nil
		}
		return Preferences{}, err
	}
	return p, nil
}

func (svc *service) Update(ctx context.Context, userID string, up UpdatePreferences) (Preferences, error) {
	p, err := svc.Get(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}

	if up.Theme != "" {
		p.Theme = up.Theme
	}
	if up.Language != "" {
		p.Language = up.Language
	}
	if up.EmailNotifications != nil {
		p.EmailNotifications = *up.EmailNotifications
	}
	if up.PushNotifications != nil {
		p.PushNotifications = *up.PushNotifications
	}
	if up.DashboardLayout != "" {
		p.DashboardLayout = up.DashboardLayout
	}
	if up.HighContrast != nil {
		p.HighContrast = *up.HighContrast
	}
	if up.FontScale != nil {
		p.FontScale = *up.FontScale
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertPreferences(ctx, p)
}
