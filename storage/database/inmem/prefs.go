package inmemdb

import (
	"context"

	"github.com/trezcool/chuo/core/prefs"
)

type prefsRepository struct {
	db *prefsTable
}

var _ prefs.Repository = (*prefsRepository)(nil)

func NewPrefsRepository(db *DB) *prefsRepository {
	return &prefsRepository{db: db.prefs}
}

func (repo *prefsRepository) GetPreferences(ctx context.Context, userID string) (prefs.Preferences, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[userID]; ok {
		return *p, nil
	}
	return prefs.Preferences{}, prefs.ErrNotFound
}

func (repo *prefsRepository) UpsertPreferences(ctx context.Context, p prefs.Preferences) (prefs.Preferences, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[p.UserID] = &p
	return p, nil
}

func (repo *prefsRepository) DeletePreferences(ctx context.Context, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.table, userID)
	return nil
}
