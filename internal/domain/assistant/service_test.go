package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"calendar-assistant/internal/adapters/storage/memory"
	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
	"calendar-assistant/internal/ports/parser"
)

type fakeParser struct {
	draft events.Draft
	err   error
}

func (p *fakeParser) Name() string { return "fake" }

func (p *fakeParser) Parse(ctx context.Context, text, timezone string) (events.Draft, error) {
	if p.err != nil {
		return events.Draft{}, p.err
	}
	return p.draft, nil
}

type fakeProvider struct {
	createID  string
	createErr error

	listed  []events.RemoteEvent
	listErr error

	deleteErr error

	created []events.Draft
	deleted []string
}

func (p *fakeProvider) Name() string { return "fake-provider" }

func (p *fakeProvider) Create(ctx context.Context, d events.Draft) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	p.created = append(p.created, d)
	return p.createID, nil
}

func (p *fakeProvider) List(ctx context.Context, from, to time.Time) ([]events.RemoteEvent, error) {
	return p.listed, p.listErr
}

func (p *fakeProvider) Update(ctx context.Context, externalID string, d events.Draft) error {
	return nil
}

func (p *fakeProvider) Delete(ctx context.Context, externalID string) error {
	p.deleted = append(p.deleted, externalID)
	return p.deleteErr
}

type fakeDetector struct {
	tz  string
	err error
}

func (d *fakeDetector) Detect(ctx context.Context) (string, error) { return d.tz, d.err }

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func draftAt(start, end time.Time) events.Draft {
	return events.Draft{Title: "Meeting", Start: start, End: end}
}

func newTestService(p parser.Parser, prov *fakeProvider, det TimezoneDetector, cfg Config) (*Service, *events.Service) {
	eventsSvc := events.NewService(memory.NewEventRepo(), logger.Nop())
	// Un *fakeProvider nil dentro de la interfaz no sería nil: pasar nil
	// explícito para el modo solo-local.
	if prov == nil {
		return NewService(eventsSvc, p, nil, det, logger.Nop(), cfg), eventsSvc
	}
	return NewService(eventsSvc, p, prov, det, logger.Nop(), cfg), eventsSvc
}

func TestSchedule_HappyPathWithProvider(t *testing.T) {
	prov := &fakeProvider{createID: "ext-9"}
	svc, _ := newTestService(&fakeParser{draft: draftAt(at(10, 0), at(11, 0))}, prov, nil, Config{})

	res, err := svc.Schedule(context.Background(), "meeting at 10", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !res.Scheduled {
		t.Fatalf("expected scheduled result, got conflicts: %+v", res.Conflicts)
	}
	if res.Event.ExternalID != "ext-9" {
		t.Fatalf("expected external id from provider, got %q", res.Event.ExternalID)
	}
	if len(prov.created) != 1 {
		t.Fatalf("provider should be called once, got %d", len(prov.created))
	}
	if res.Timezone != "UTC" {
		t.Fatalf("expected timezone UTC, got %q", res.Timezone)
	}
}

func TestSchedule_LocalOnlyWithoutProvider(t *testing.T) {
	svc, _ := newTestService(&fakeParser{draft: draftAt(at(10, 0), at(11, 0))}, nil, nil, Config{})

	res, err := svc.Schedule(context.Background(), "meeting at 10", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !res.Scheduled || res.Event.ExternalID != "" {
		t.Fatalf("local-only schedule should succeed without external id, got %+v", res.Event)
	}
}

func TestSchedule_ConflictShortCircuitsProvider(t *testing.T) {
	prov := &fakeProvider{createID: "ext-9"}
	svc, eventsSvc := newTestService(&fakeParser{draft: draftAt(at(10, 30), at(11, 30))}, prov, nil, Config{Gap: 15 * time.Minute})

	if _, err := eventsSvc.Create(context.Background(), draftAt(at(10, 0), at(11, 0))); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.Schedule(context.Background(), "meeting at 10:30", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if res.Scheduled {
		t.Fatalf("expected conflict, got scheduled")
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(res.Conflicts))
	}
	if len(prov.created) != 0 {
		t.Fatalf("provider must not be called on conflict")
	}
}

func TestSchedule_GapConflict(t *testing.T) {
	// 11:10 arranca dentro del buffer de 15m después del 10:00-11:00.
	svc, eventsSvc := newTestService(&fakeParser{draft: draftAt(at(11, 10), at(12, 0))}, nil, nil, Config{Gap: 15 * time.Minute})

	if _, err := eventsSvc.Create(context.Background(), draftAt(at(10, 0), at(11, 0))); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.Schedule(context.Background(), "meeting at 11:10", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if res.Scheduled {
		t.Fatalf("11:10 should conflict with 10:00-11:00 under a 15m gap")
	}
}

func TestSchedule_ProviderFailureDoesNotInsert(t *testing.T) {
	prov := &fakeProvider{createErr: errors.New("quota exceeded")}
	svc, eventsSvc := newTestService(&fakeParser{draft: draftAt(at(10, 0), at(11, 0))}, prov, nil, Config{})

	_, err := svc.Schedule(context.Background(), "meeting at 10", "UTC")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}

	stored, err := eventsSvc.List(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("nothing should be stored when the provider fails, got %d", len(stored))
	}
}

func TestSchedule_EmptyPrompt(t *testing.T) {
	svc, _ := newTestService(&fakeParser{}, nil, nil, Config{})

	if _, err := svc.Schedule(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestSchedule_UnparseablePropagates(t *testing.T) {
	svc, _ := newTestService(&fakeParser{err: parser.ErrUnparseable}, nil, nil, Config{})

	if _, err := svc.Schedule(context.Background(), "gibberish", ""); !errors.Is(err, parser.ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}

func TestResolveTimezone_Precedence(t *testing.T) {
	p := &fakeParser{draft: draftAt(at(10, 0), at(11, 0))}

	t.Run("request gana", func(t *testing.T) {
		svc, _ := newTestService(p, nil, &fakeDetector{tz: "America/Lima"}, Config{Timezone: "Europe/Madrid"})
		res, err := svc.Schedule(context.Background(), "x", "Asia/Tokyo")
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if res.Timezone != "Asia/Tokyo" {
			t.Fatalf("want Asia/Tokyo, got %q", res.Timezone)
		}
	})

	t.Run("config despues del request", func(t *testing.T) {
		svc, _ := newTestService(p, nil, &fakeDetector{tz: "America/Lima"}, Config{Timezone: "Europe/Madrid"})
		res, err := svc.Schedule(context.Background(), "x", "Not/AZone")
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if res.Timezone != "Europe/Madrid" {
			t.Fatalf("want Europe/Madrid, got %q", res.Timezone)
		}
	})

	t.Run("detector como fallback", func(t *testing.T) {
		svc, _ := newTestService(p, nil, &fakeDetector{tz: "America/Lima"}, Config{})
		res, err := svc.Schedule(context.Background(), "x", "")
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if res.Timezone != "America/Lima" {
			t.Fatalf("want America/Lima, got %q", res.Timezone)
		}
	})

	t.Run("UTC cuando todo falla", func(t *testing.T) {
		svc, _ := newTestService(p, nil, &fakeDetector{err: errors.New("network down")}, Config{})
		res, err := svc.Schedule(context.Background(), "x", "")
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if res.Timezone != "UTC" {
			t.Fatalf("want UTC, got %q", res.Timezone)
		}
	})
}

func TestSync_NoProvider(t *testing.T) {
	svc, _ := newTestService(&fakeParser{}, nil, nil, Config{})

	if _, err := svc.Sync(context.Background(), false); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestSync_AppliesBatch(t *testing.T) {
	prov := &fakeProvider{listed: []events.RemoteEvent{
		{
			ID:    "ext-1",
			Title: "remote one",
			Start: events.RemoteTime{DateTime: at(9, 0).Format(time.RFC3339)},
			End:   events.RemoteTime{DateTime: at(10, 0).Format(time.RFC3339)},
		},
		{ID: "ext-broken", Title: "no interval"},
		{
			ID:    "ext-2",
			Title: "remote two",
			Start: events.RemoteTime{DateTime: at(11, 0).Format(time.RFC3339)},
			End:   events.RemoteTime{DateTime: at(12, 0).Format(time.RFC3339)},
		},
	}}
	svc, eventsSvc := newTestService(&fakeParser{}, prov, nil, Config{})

	applied, err := svc.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied, got %d", applied)
	}

	stored, err := eventsSvc.List(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored, got %d", len(stored))
	}
}

func TestSync_DryRunDoesNotWrite(t *testing.T) {
	prov := &fakeProvider{listed: []events.RemoteEvent{
		{
			ID:    "ext-1",
			Title: "remote one",
			Start: events.RemoteTime{DateTime: at(9, 0).Format(time.RFC3339)},
			End:   events.RemoteTime{DateTime: at(10, 0).Format(time.RFC3339)},
		},
	}}
	svc, eventsSvc := newTestService(&fakeParser{}, prov, nil, Config{})

	applied, err := svc.Sync(context.Background(), true)
	if err != nil {
		t.Fatalf("dry-run sync: %v", err)
	}
	if applied != 1 {
		t.Fatalf("dry-run should count convertibles, got %d", applied)
	}

	stored, err := eventsSvc.List(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("dry-run must not write, got %d events", len(stored))
	}
}

func TestSync_ProviderFailure(t *testing.T) {
	prov := &fakeProvider{listErr: errors.New("auth expired")}
	svc, _ := newTestService(&fakeParser{}, prov, nil, Config{})

	if _, err := svc.Sync(context.Background(), false); !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestCancel_DeletesRemoteAndLocal(t *testing.T) {
	prov := &fakeProvider{createID: "ext-9"}
	svc, eventsSvc := newTestService(&fakeParser{draft: draftAt(at(10, 0), at(11, 0))}, prov, nil, Config{})

	res, err := svc.Schedule(context.Background(), "meeting", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := svc.Cancel(context.Background(), res.Event.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(prov.deleted) != 1 || prov.deleted[0] != "ext-9" {
		t.Fatalf("expected remote delete of ext-9, got %v", prov.deleted)
	}

	stored, err := eventsSvc.List(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("event should be gone from active listings")
	}
}

func TestCancel_RemoteFailureStillDeletesLocally(t *testing.T) {
	prov := &fakeProvider{createID: "ext-9", deleteErr: errors.New("remote down")}
	svc, eventsSvc := newTestService(&fakeParser{draft: draftAt(at(10, 0), at(11, 0))}, prov, nil, Config{})

	res, err := svc.Schedule(context.Background(), "meeting", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := svc.Cancel(context.Background(), res.Event.ID); err != nil {
		t.Fatalf("cancel should ignore remote failure: %v", err)
	}

	stored, _ := eventsSvc.List(context.Background(), events.Filter{})
	if len(stored) != 0 {
		t.Fatalf("local soft delete must happen anyway")
	}
}

func TestCancel_IdempotentSkipsSecondRemoteDelete(t *testing.T) {
	prov := &fakeProvider{createID: "ext-9"}
	svc, _ := newTestService(&fakeParser{draft: draftAt(at(10, 0), at(11, 0))}, prov, nil, Config{})

	res, err := svc.Schedule(context.Background(), "meeting", "UTC")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := svc.Cancel(context.Background(), res.Event.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := svc.Cancel(context.Background(), res.Event.ID); err != nil {
		t.Fatalf("second cancel should be a no-op: %v", err)
	}
	if len(prov.deleted) != 1 {
		t.Fatalf("remote delete must not repeat for an already-deleted event, got %d calls", len(prov.deleted))
	}
}

func TestStatus(t *testing.T) {
	chain := parser.NewChain(logger.Nop(), &fakeParser{}, &fakeParser{})
	svc, _ := newTestService(chain, nil, nil, Config{})

	st := svc.Status(context.Background())
	if st.Provider != "none" {
		t.Fatalf("expected provider none, got %q", st.Provider)
	}
	if st.Store != "ok" {
		t.Fatalf("expected store ok, got %q", st.Store)
	}
	if len(st.Parsers) != 2 {
		t.Fatalf("expected 2 parsers, got %v", st.Parsers)
	}
}
