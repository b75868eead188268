package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var ErrNotFound = errors.New("event not found")

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEventByID(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event) (Event, error)
		DeleteEventsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, organizerID string, ne NewEvent) (Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		Update(ctx context.Context, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, organizerID string, ne NewEvent) (Event, error) {
	now := time.Now().UTC()
	evt := Event{
		Title:       ne.Title,
		Description: ne.Description,
		OrganizerID: organizerID,
		Location:    ne.Location,
		StartsAt:    ne.StartsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !ne.EndsAt.IsZero() {
		evt.EndsAt = ne.EndsAt.UTC()
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}

	evt.UpdatedAt = time.Now().UTC()
	if ue.Title != "" {
		evt.Title = ue.Title
	}
	if ue.Description != "" {
		evt.Description = ue.Description
	}
	if ue.Location != "" {
		evt.Location = ue.Location
	}
	if ue.StartsAt != nil {
		evt.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		evt.EndsAt = ue.EndsAt.UTC()
	}
	return svc.repo.UpdateEvent(ctx, evt)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteEventsByID(ctx, ids...)
	return err
}
