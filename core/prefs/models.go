package prefs

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Themes / layouts
const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	LayoutGrid = "grid"
	LayoutList = "list"
)

// Preferences is a User's one-and-only settings row; reads of a missing row
// yield Default().
type Preferences struct {
	UserID             string    `json:"user_id"`
	Theme              string    `json:"theme"`
	Language           string    `json:"language"`
	EmailNotifications bool      `json:"email_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	DashboardLayout    string    `json:"dashboard_layout"`
	HighContrast       bool      `json:"high_contrast"`
	FontScale          int       `json:"font_scale"` // percent
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

func Default(userID string) Preferences {
	return Preferences{
		UserID:             userID,
		Theme:              ThemeLight,
		Language:           "en",
		EmailNotifications: true,
		PushNotifications:  true,
		DashboardLayout:    LayoutGrid,
		FontScale:          100,
	}
}

// UpdatePreferences defines what settings may be changed; nil/zero fields are left unchanged.
type UpdatePreferences struct {
	Theme              string `json:"theme" validate:"omitempty,oneof=light dark"`
	Language           string `json:"language" validate:"omitempty,min=2,max=8"`
	EmailNotifications *bool  `json:"email_notifications"`
	PushNotifications  *bool  `json:"push_notifications"`
	DashboardLayout    string `json:"dashboard_layout" validate:"omitempty,oneof=grid list"`
	HighContrast       *bool  `json:"high_contrast"`
	FontScale          *int   `json:"font_scale" validate:"omitempty,gte=50,lte=200"`
}

func (up *UpdatePreferences) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}
