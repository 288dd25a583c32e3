package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"calendar-assistant/internal/domain/events"
)

// eventRepo es el store in-memory para modo dev y tests. El mutex cubre el
// check-then-act completo del upsert, así que la atomicidad por external id
// sale gratis.
type eventRepo struct {
	mu     sync.RWMutex
	byID   map[int64]events.Event
	nextID int64
	now    func() time.Time
}

func NewEventRepo() events.Repository {
	return &eventRepo{
		byID: make(map[int64]events.Event),
		now:  time.Now,
	}
}

func (r *eventRepo) Insert(ctx context.Context, d events.Draft, synced bool) (events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(d, synced), nil
}

func (r *eventRepo) insertLocked(d events.Draft, synced bool) events.Event {
	r.nextID++
	now := r.now()

	e := events.Event{
		ID:          r.nextID,
		Title:       d.Title,
		Start:       d.Start,
		End:         d.End,
		Description: d.Description,
		Location:    d.Location,
		Attendees:   copyAttendees(d.Attendees),
		ExternalID:  d.ExternalID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if synced {
		ts := now
		e.SyncedAt = &ts
	}

	r.byID[e.ID] = e
	return e
}

func (r *eventRepo) UpsertByExternalID(ctx context.Context, d events.Draft) (events.Event, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ExternalID != "" {
		for id, e := range r.byID {
			if e.Deleted || e.ExternalID != d.ExternalID {
				continue
			}

			now := r.now()
			e.Title = d.Title
			e.Start = d.Start
			e.End = d.End
			e.Description = d.Description
			e.Location = d.Location
			e.Attendees = copyAttendees(d.Attendees)
			e.UpdatedAt = now
			ts := now
			e.SyncedAt = &ts

			r.byID[id] = e
			return e, false, nil
		}
	}

	return r.insertLocked(d, true), true, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return events.Event{}, events.ErrNotFound
	}
	return e, nil
}

func (r *eventRepo) Query(ctx context.Context, f events.Filter) ([]events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]events.Event, 0)
	for _, e := range r.byID {
		if e.Deleted {
			continue
		}
		// Intersección de intervalo abierto con el rango pedido.
		if f.To != nil && !e.Start.Before(*f.To) {
			continue
		}
		if f.From != nil && !e.End.After(*f.From) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *eventRepo) SoftDelete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return events.ErrNotFound
	}
	if e.Deleted {
		// ya estaba borrado: no-op exitoso
		return nil
	}
	e.Deleted = true
	e.UpdatedAt = r.now()
	r.byID[id] = e
	return nil
}

func copyAttendees(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
