package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
	"calendar-assistant/internal/ports/parser"
	"calendar-assistant/internal/ports/provider"
)

var (
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrProvider envuelve cualquier falla del proveedor remoto (auth, red,
	// quota). El core no reintenta; el caller decide.
	ErrProvider = errors.New("remote provider failure")

	ErrNoProvider = errors.New("no remote provider configured")
)

// TimezoneDetector resuelve la zona horaria del usuario cuando el request no
// la trae (p.ej. por geolocalización de IP).
type TimezoneDetector interface {
	Detect(ctx context.Context) (string, error)
}

type Config struct {
	// Gap es el buffer de cortesía a cada lado del intervalo candidato al
	// chequear conflictos.
	Gap time.Duration

	// SyncDays es cuántos días hacia adelante se piden al proveedor en
	// cada reconciliación.
	SyncDays int

	// Timezone es la zona por defecto cuando el request no especifica una.
	Timezone string
}

// Service orquesta el flujo completo: parser -> detector de conflictos ->
// alta remota -> insert local, y el camino de sync: fetch remoto ->
// reconciliación. Los colaboradores entran por constructor para que los
// tests puedan sustituir fakes sin estado global.
type Service struct {
	events   *events.Service
	parser   parser.Parser
	provider provider.Provider // nil => modo solo-local
	detector TimezoneDetector  // nil => sin autodetección
	log      logger.Logger
	cfg      Config

	// mu serializa la sección chequear-conflictos + crear, para que dos
	// requests con intervalos solapados no pasen los dos el chequeo.
	mu sync.Mutex

	now func() time.Time
}

func NewService(ev *events.Service, p parser.Parser, prov provider.Provider, det TimezoneDetector, log logger.Logger, cfg Config) *Service {
	if cfg.Gap <= 0 {
		cfg.Gap = 15 * time.Minute
	}
	if cfg.SyncDays <= 0 {
		cfg.SyncDays = 30
	}
	return &Service{
		events:   ev,
		parser:   p,
		provider: prov,
		detector: det,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ScheduleResult es el resultado normal de Schedule. Un conflicto NO es un
// error: viene como Scheduled=false con la lista de eventos en conflicto y
// el caller decide si abortar o insistir.
type ScheduleResult struct {
	Scheduled bool
	Event     events.Event
	Conflicts []events.Event
	Timezone  string
}

// Schedule procesa un pedido en lenguaje natural de punta a punta.
func (s *Service) Schedule(ctx context.Context, prompt, timezone string) (ScheduleResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ScheduleResult{}, ErrEmptyPrompt
	}

	tz := s.resolveTimezone(ctx, timezone)
	s.log.Info("processing schedule request", map[string]any{"timezone": tz})

	draft, err := s.parser.Parse(ctx, prompt, tz)
	if err != nil {
		return ScheduleResult{}, err
	}

	// Una sola sección exclusiva para chequeo + creación: sin esto, dos
	// requests solapados pueden pasar ambos el chequeo antes de insertar.
	s.mu.Lock()
	defer s.mu.Unlock()

	conflicts, err := s.events.DetectConflicts(ctx, draft.Start, draft.End, s.cfg.Gap)
	if err != nil {
		return ScheduleResult{}, err
	}
	if len(conflicts) > 0 {
		s.log.Info("schedule request conflicts with existing events", map[string]any{"count": len(conflicts)})
		return ScheduleResult{Conflicts: conflicts, Timezone: tz}, nil
	}

	if s.provider != nil {
		externalID, err := s.provider.Create(ctx, draft)
		if err != nil {
			return ScheduleResult{}, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		draft.ExternalID = externalID
	}

	e, err := s.events.Create(ctx, draft)
	if err != nil {
		return ScheduleResult{}, err
	}
	return ScheduleResult{Scheduled: true, Event: e, Timezone: tz}, nil
}

// Sync trae los eventos del proveedor para la ventana configurada y los
// reconcilia contra el store. Con dryRun solo cuenta qué se aplicaría.
func (s *Service) Sync(ctx context.Context, dryRun bool) (int, error) {
	if s.provider == nil {
		return 0, ErrNoProvider
	}

	from := s.now()
	to := from.AddDate(0, 0, s.cfg.SyncDays)

	batch, err := s.provider.List(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	s.log.Info("fetched remote events", map[string]any{"count": len(batch), "provider": s.provider.Name()})

	if dryRun {
		applied := 0
		for _, item := range batch {
			d, err := item.Draft()
			if err != nil {
				s.log.Warn("[dry-run] would skip unconvertible event", map[string]any{"external_id": item.ID})
				continue
			}
			s.log.Info("[dry-run] would apply remote event", map[string]any{
				"external_id": d.ExternalID,
				"title":       d.Title,
			})
			applied++
		}
		return applied, nil
	}

	return s.events.Reconcile(ctx, batch)
}

// Cancel borra un evento local (soft delete) y, si vino del proveedor,
// intenta borrarlo también remotamente. El borrado remoto es best-effort:
// una falla se loguea y no impide el soft delete local.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !e.Deleted && e.ExternalID != "" && s.provider != nil {
		if err := s.provider.Delete(ctx, e.ExternalID); err != nil {
			s.log.Warn("remote delete failed, soft-deleting locally anyway", map[string]any{
				"external_id": e.ExternalID,
				"error":       err.Error(),
			})
		}
	}

	return s.events.Delete(ctx, id)
}

// Status describe qué colaboradores están configurados y si el store
// responde. Lo consume el endpoint de status.
type Status struct {
	Store    string   `json:"store"`
	Provider string   `json:"provider"`
	Parsers  []string `json:"parsers"`
}

func (s *Service) Status(ctx context.Context) Status {
	st := Status{Provider: "none"}
	if s.provider != nil {
		st.Provider = s.provider.Name()
	}

	if c, ok := s.parser.(*parser.Chain); ok {
		st.Parsers = c.Names()
	} else {
		st.Parsers = []string{s.parser.Name()}
	}

	if _, err := s.events.List(ctx, events.Filter{Limit: 1}); err != nil {
		st.Store = "unavailable"
	} else {
		st.Store = "ok"
	}
	return st
}

func (s *Service) resolveTimezone(ctx context.Context, requested string) string {
	if tz := validTimezone(requested); tz != "" {
		return tz
	}
	if tz := validTimezone(s.cfg.Timezone); tz != "" {
		return tz
	}
	if s.detector != nil {
		detected, err := s.detector.Detect(ctx)
		if err == nil {
			if tz := validTimezone(detected); tz != "" {
				s.log.Info("detected timezone", map[string]any{"timezone": tz})
				return tz
			}
		} else {
			s.log.Warn("timezone detection failed", map[string]any{"error": err.Error()})
		}
	}
	return "UTC"
}

func validTimezone(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}
