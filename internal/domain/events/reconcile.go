package events

import (
	"context"
	"errors"
	"time"
)

// ErrNoInterval: el evento remoto no trae ni representación con hora ni
// all-day. Se saltea, no aborta el batch.
var ErrNoInterval = errors.New("remote event has no resolvable interval")

// RemoteTime es la forma de wire de un extremo del intervalo: DateTime
// (RFC3339) para eventos con hora, Date (YYYY-MM-DD) para all-day.
type RemoteTime struct {
	DateTime string
	Date     string
}

// RemoteEvent es un evento tal como lo devuelve el proveedor remoto, antes
// de convertirlo a la forma del store.
type RemoteEvent struct {
	ID          string
	Title       string
	Description string
	Location    string
	Attendees   []string
	Start       RemoteTime
	End         RemoteTime
}

// Draft convierte el evento remoto a la forma del store. Cada extremo se
// resuelve por separado (con hora o all-day, lo que haya), igual que hace
// el proveedor. Sin intervalo resoluble => ErrNoInterval.
func (r RemoteEvent) Draft() (Draft, error) {
	start, err := r.Start.resolve()
	if err != nil {
		return Draft{}, err
	}
	end, err := r.End.resolve()
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Title:       normalizeTitle(r.Title),
		Start:       start,
		End:         end,
		Description: r.Description,
		Location:    r.Location,
		Attendees:   r.Attendees,
		ExternalID:  r.ID,
	}, nil
}

func (t RemoteTime) resolve() (time.Time, error) {
	if t.DateTime != "" {
		ts, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, ErrNoInterval
		}
		return ts, nil
	}
	if t.Date != "" {
		ts, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			return time.Time{}, ErrNoInterval
		}
		return ts, nil
	}
	return time.Time{}, ErrNoInterval
}

// Reconcile aplica un batch de eventos remotos al store, un upsert por
// evento, en el orden recibido. Cada item es independiente: una falla se
// loguea y el loop sigue. Devuelve cuántos items se aplicaron (insertados o
// actualizados, sin distinguir).
//
// Si dos eventos del mismo batch reclaman el mismo external id, gana el
// primero en aplicarse: el segundo toma el camino de update y pisa los
// campos mutables, dejando un solo evento activo.
func (s *Service) Reconcile(ctx context.Context, batch []RemoteEvent) (int, error) {
	applied := 0

	for _, item := range batch {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		d, err := item.Draft()
		if err != nil {
			s.log.Warn("skipping unconvertible remote event", map[string]any{
				"external_id": item.ID,
				"title":       item.Title,
				"error":       err.Error(),
			})
			continue
		}

		if d.ExternalID == "" {
			// Evento remoto sin id: no hay clave de reconciliación,
			// entra como insert sincronizado.
			if _, err := s.repo.Insert(ctx, d, true); err != nil {
				s.log.Error("failed to store remote event", map[string]any{"title": d.Title, "error": err.Error()})
				continue
			}
			applied++
			continue
		}

		_, inserted, err := s.repo.UpsertByExternalID(ctx, d)
		if err != nil {
			s.log.Error("failed to upsert remote event", map[string]any{
				"external_id": d.ExternalID,
				"error":       err.Error(),
			})
			continue
		}
		s.log.Debug("remote event applied", map[string]any{
			"external_id": d.ExternalID,
			"inserted":    inserted,
		})
		applied++
	}

	return applied, nil
}
