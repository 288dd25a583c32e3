// Package caldav implementa el proveedor de calendario contra un servidor
// CalDAV genérico (iCloud, Fastmail, Radicale). Los eventos viajan como
// VEVENT en archivos .ics, uno por evento, nombrados por UID.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
)

// customTransport agrega Basic Auth y User-Agent a cada request.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calendar-assistant/1.0")
	return t.Transport.RoundTrip(req)
}

type Config struct {
	Endpoint string // ej: https://caldav.icloud.com/
	Username string
	Password string
	Calendar string // nombre visible del calendario a usar
}

type Provider struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	log          logger.Logger

	// calendarPath es el path del calendario elegido, relativo al endpoint.
	calendarPath string
}

func New(ctx context.Context, log logger.Logger, cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("caldav: endpoint is required")
	}

	transport := &customTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav: create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav: create webdav client: %w", err)
	}

	p := &Provider{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		log:          log,
	}

	calendarPath, err := p.findCalendar(ctx, cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("caldav: could not find calendar %q: %w", cfg.Calendar, err)
	}
	p.calendarPath = calendarPath
	log.Info("using caldav calendar", map[string]any{"path": calendarPath})

	return p, nil
}

func (p *Provider) Name() string { return "caldav" }

func (p *Provider) Create(ctx context.Context, d events.Draft) (string, error) {
	uid := uuid.New().String()
	if err := p.putEvent(ctx, uid, d); err != nil {
		return "", err
	}
	p.log.Info("created remote event", map[string]any{"external_id": uid, "title": d.Title})
	return uid, nil
}

func (p *Provider) Update(ctx context.Context, externalID string, d events.Draft) error {
	// Mismo path, mismo UID: el PUT sobreescribe el .ics existente.
	return p.putEvent(ctx, baseUID(externalID), d)
}

func (p *Provider) Delete(ctx context.Context, externalID string) error {
	eventPath := path.Join(p.calendarPath, baseUID(externalID)+".ics")
	if err := p.webdavClient.RemoveAll(ctx, eventPath); err != nil {
		return fmt.Errorf("caldav: delete event %s: %w", externalID, err)
	}
	return nil
}

// List trae los VEVENT del rango con un calendar-query y expande las
// recurrencias localmente (ver expand.go): un servidor CalDAV, a diferencia
// de Google, devuelve el evento maestro con su RRULE, no las instancias.
func (p *Provider) List(ctx context.Context, from, to time.Time) ([]events.RemoteEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objs, err := p.caldavClient.QueryCalendar(ctx, p.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("caldav: query calendar: %w", err)
	}

	out := make([]events.RemoteEvent, 0, len(objs))
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		remote, err := expandCalendar(obj.Data, from, to)
		if err != nil {
			p.log.Warn("skipping unreadable calendar object", map[string]any{
				"path":  obj.Path,
				"error": err.Error(),
			})
			continue
		}
		out = append(out, remote...)
	}
	return out, nil
}

func (p *Provider) putEvent(ctx context.Context, uid string, d events.Draft) error {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, d.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, d.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, d.End)
	if d.Description != "" {
		ve.Props.SetText(ical.PropDescription, d.Description)
	}
	if d.Location != "" {
		ve.Props.SetText(ical.PropLocation, d.Location)
	}
	for _, attendee := range d.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(prop)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calendar-assistant//EN")
	cal.Children = append(cal.Children, ve)

	eventPath := path.Join(p.calendarPath, uid+".ics")
	writer, err := p.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("caldav: create %s: %w", eventPath, err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return fmt.Errorf("caldav: encode event: %w", err)
	}
	return nil
}

// findCalendar descubre los calendarios del usuario y devuelve el path del
// que coincide por nombre. Sin nombre configurado, usa el primero.
func (p *Provider) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := p.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal path: %w", err)
	}

	homeSetPath, err := p.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}

	calendars, err := p.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(calendars) == 0 {
		return "", fmt.Errorf("account has no calendars")
	}

	if strings.TrimSpace(name) == "" {
		return calendars[0].Path, nil
	}
	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar named %q", name)
}

// baseUID recorta el sufijo de instancia (uid#timestamp) que agrega la
// expansión de recurrencias: las operaciones de escritura van siempre contra
// el evento maestro.
func baseUID(externalID string) string {
	if i := strings.Index(externalID, "#"); i != -1 {
		return externalID[:i]
	}
	return externalID
}
