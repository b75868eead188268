package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/event"
)

type eventRow struct {
	ID          string      `db:"id"`
	Title       null.String `db:"title"`
	Description null.String `db:"description"`
	OrganizerID string      `db:"organizer_id"`
	Location    null.String `db:"location"`
	StartsAt    null.Time   `db:"starts_at"`
	EndsAt      null.Time   `db:"ends_at"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (r eventRow) unpack() event.Event {
	return event.Event{
		ID:          r.ID,
		Title:       r.Title.String,
		Description: r.Description.String,
		OrganizerID: r.OrganizerID,
		Location:    r.Location.String,
		StartsAt:    r.StartsAt.Time,
		EndsAt:      r.EndsAt.Time,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func packEvent(evt event.Event) eventRow {
	return eventRow{
		ID:          evt.ID,
		Title:       null.NewString(evt.Title, evt.Title != ""),
		Description: null.NewString(evt.Description, evt.Description != ""),
		OrganizerID: evt.OrganizerID,
		Location:    null.NewString(evt.Location, evt.Location != ""),
		StartsAt:    null.NewTime(evt.StartsAt.UTC(), !evt.StartsAt.IsZero()),
		EndsAt:      null.NewTime(evt.EndsAt.UTC(), !evt.EndsAt.IsZero()),
		CreatedAt:   null.NewTime(evt.CreatedAt.UTC(), !evt.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(evt.UpdatedAt.UTC(), !evt.UpdatedAt.IsZero()),
	}
}

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func trapEventNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return event.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	row := packEvent(evt)
	query := `
INSERT INTO event (id, title, description, organizer_id, location, starts_at, ends_at, created_at, updated_at)
VALUES (:id, :title, :description, :organizer_id, :location, :starts_at, :ends_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return row.unpack(), nil
}

func (repo eventRepository) GetEventByID(ctx context.Context, id string) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}
	var row eventRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM event WHERE id = $1`, id); err != nil {
		return event.Event{}, trapEventNoRowsErr(err, "finding event by ID")
	}
	return row.unpack(), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	query := `SELECT * FROM event`
	var args []interface{}

	if filter != nil {
		qb := newQueryBuilder()
		// events with Title or Location matching the search keyword
		if filter.Search != "" {
			qb.where("(title ILIKE ? OR location ILIKE ?)", "%"+filter.Search+"%", "%"+filter.Search+"%")
		}
		if filter.OrganizerID != "" {
			qb.where("organizer_id = ?", filter.OrganizerID)
		}
		if !filter.From.IsZero() {
			qb.where("starts_at >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			qb.where("starts_at <= ?", filter.To.UTC())
		}
		query += qb.clause()
		args = qb.args
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "starts_at", Ascending: true}}
	}
	query += orderBy(ordering, "title", "location", "starts_at", "ends_at", "created_at")

	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}

	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.unpack())
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	query := `
UPDATE event
SET title = :title, description = :description, location = :location,
    starts_at = :starts_at, ends_at = :ends_at, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, packEvent(evt))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return repo.GetEventByID(ctx, evt.ID)
}

func (repo eventRepository) DeleteEventsByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM event WHERE id::text = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting events")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
