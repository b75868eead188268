package prefs_test

import (
	"context"
	"testing"

	"github.com/trezcool/chuo/core/prefs"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
)

func setup(t *testing.T) prefs.Service {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() error = %v", err)
	}
	return prefs.NewService(inmemdb.NewPrefsRepository(db))
}

func Test_service_Get_defaults(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	// a user who never saved anything gets the defaults
	p, err := svc.Get(ctx, "usr1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := prefs.Default("usr1")
	if p != want {
		t.Errorf("Get() = %+v, want %+v", p, want)
	}
	if p.Theme != prefs.ThemeLight || !p.EmailNotifications || p.FontScale != 100 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func Test_service_Update(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	off := false
	scale := 150
	p, err := svc.Update(ctx, "usr1", prefs.UpdatePreferences{
		Theme:              prefs.ThemeDark,
		EmailNotifications: &off,
		FontScale:          &scale,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if p.Theme != prefs.ThemeDark || p.EmailNotifications || p.FontScale != 150 {
		t.Errorf("Update() = %+v", p)
	}
	// untouched fields keep their defaults
	if p.Language != "en" || p.DashboardLayout != prefs.LayoutGrid || !p.PushNotifications {
		t.Errorf("Update() clobbered defaults: %+v", p)
	}

	// persisted
	got, err := svc.Get(ctx, "usr1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Theme != prefs.ThemeDark || got.FontScale != 150 {
		t.Errorf("Get() = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Update() did not record UpdatedAt")
	}

	// partial second update leaves the rest alone
	on := true
	got, err = svc.Update(ctx, "usr1", prefs.UpdatePreferences{HighContrast: &on})
	if err != nil {
		t.Fatalf("Update(partial) error = %v", err)
	}
	if !got.HighContrast || got.Theme != prefs.ThemeDark || got.FontScale != 150 {
		t.Errorf("Update(partial) = %+v", got)
	}
}
