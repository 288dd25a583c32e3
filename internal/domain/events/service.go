package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"calendar-assistant/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultTitle se usa cuando el parser o el proveedor no traen título.
const DefaultTitle = "Untitled event"

type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Create inserta un evento nuevo (camino local, no sync).
//
// Nota: a propósito NO validamos End > Start. La reconciliación tiene que
// poder guardar lo que devuelva el proveedor, y la fórmula de solapamiento
// está definida también para intervalos invertidos o de duración cero.
func (s *Service) Create(ctx context.Context, d Draft) (Event, error) {
	if d.Start.IsZero() || d.End.IsZero() {
		return Event{}, ErrInvalidInput
	}
	d.Title = normalizeTitle(d.Title)

	e, err := s.repo.Insert(ctx, d, false)
	if err != nil {
		return Event{}, err
	}
	s.log.Info("event created", map[string]any{"id": e.ID, "title": e.Title})
	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (Event, error) {
	if id <= 0 {
		return Event{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List devuelve eventos activos, opcionalmente restringidos a un rango.
func (s *Service) List(ctx context.Context, f Filter) ([]Event, error) {
	return s.repo.Query(ctx, f)
}

// Delete marca el evento como borrado (soft delete, idempotente).
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.SoftDelete(ctx, id)
}

// DetectConflicts expande el intervalo candidato con el gap a ambos lados y
// devuelve los eventos activos que lo solapan. Solapamiento de intervalo
// abierto: E.Start < end+gap && E.End > start-gap.
//
// Solo lectura; no muta el store y es seguro llamarla concurrentemente con
// otras lecturas.
func (s *Service) DetectConflicts(ctx context.Context, start, end time.Time, gap time.Duration) ([]Event, error) {
	if gap < 0 {
		gap = 0
	}
	bufferedStart := start.Add(-gap)
	bufferedEnd := end.Add(gap)

	candidates, err := s.repo.Query(ctx, Filter{From: &bufferedStart, To: &bufferedEnd})
	if err != nil {
		return nil, err
	}

	// El repo ya filtra por intersección, pero re-aplicamos la fórmula acá
	// para que el contrato no dependa de qué tan laxo sea cada adapter.
	out := make([]Event, 0, len(candidates))
	for _, e := range candidates {
		if e.Start.Before(bufferedEnd) && e.End.After(bufferedStart) {
			out = append(out, e)
		}
	}
	return out, nil
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}
