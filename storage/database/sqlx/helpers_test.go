package sqlxrepos

import (
	"testing"

	"github.com/trezcool/chuo/core"
)

func Test_orderBy(t *testing.T) {
	cols := []string{"name", "created_at"}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "empty", want: ""},
		{
			name:     "known columns",
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}},
			want:     " ORDER BY name ASC, created_at DESC",
		},
		{
			name:     "unknown column dropped",
			ordering: []core.DBOrdering{{Field: "password_hash", Ascending: true}, {Field: "name", Ascending: true}},
			want:     " ORDER BY name ASC",
		},
		{
			name:     "hostile field dropped",
			ordering: []core.DBOrdering{{Field: "name; DROP TABLE app_user; --", Ascending: true}},
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderBy(tt.ordering, cols...); got != tt.want {
				t.Errorf("orderBy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_queryBuilder(t *testing.T) {
	qb := newQueryBuilder()
	if qb.clause() != "" {
		t.Errorf("clause() = %q, want empty", qb.clause())
	}

	qb.where("role = ?", "student")
	qb.where("year = ?", 2026)
	if got, want := qb.clause(), " WHERE role = ? AND year = ?"; got != want {
		t.Errorf("clause() = %q, want %q", got, want)
	}
	if len(qb.args) != 2 {
		t.Errorf("len(args) = %v, want 2", len(qb.args))
	}
}
