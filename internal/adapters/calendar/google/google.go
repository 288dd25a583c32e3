// Package google implementa el proveedor de calendario contra la API de
// Google Calendar. La autenticación usa el flow OAuth de escritorio con un
// token guardado en archivo (ver el comando auth).
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
)

const credentialsFile = "credentials.json"

// Provider habla con un calendario concreto de la cuenta autenticada
// (normalmente "primary").
type Provider struct {
	service    *calendar.Service
	calendarID string
	log        logger.Logger
}

type Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string // default token.json
	CalendarID   string // default primary
}

func New(ctx context.Context, log logger.Logger, cfg Config) (*Provider, error) {
	oauthCfg, err := getOAuthConfig(cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("google: oauth config: %w", err)
	}

	tokenFile := cfg.TokenFile
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("google: could not load token from %s: %w (run the auth command first)", tokenFile, err)
	}

	client := oauthCfg.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("google: create calendar service: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Provider{service: service, calendarID: calendarID, log: log}, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Create(ctx context.Context, d events.Draft) (string, error) {
	ev := &calendar.Event{
		Summary:     d.Title,
		Description: d.Description,
		Location:    d.Location,
		Start:       &calendar.EventDateTime{DateTime: d.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: d.End.Format(time.RFC3339)},
	}
	for _, a := range d.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a})
	}

	created, err := p.service.Events.Insert(p.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("google: insert event: %w", err)
	}
	p.log.Info("created remote event", map[string]any{"external_id": created.Id, "title": d.Title})
	return created.Id, nil
}

// List devuelve los eventos del rango en forma de wire. Start/End se pasan
// tal como vienen (DateTime o Date): la conversión y los skips los decide la
// reconciliación.
func (p *Provider) List(ctx context.Context, from, to time.Time) ([]events.RemoteEvent, error) {
	res, err := p.service.Events.List(p.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google: list events: %w", err)
	}

	out := make([]events.RemoteEvent, 0, len(res.Items))
	for _, item := range res.Items {
		re := events.RemoteEvent{
			ID:          item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Location:    item.Location,
		}
		if item.Start != nil {
			re.Start = events.RemoteTime{DateTime: item.Start.DateTime, Date: item.Start.Date}
		}
		if item.End != nil {
			re.End = events.RemoteTime{DateTime: item.End.DateTime, Date: item.End.Date}
		}
		for _, a := range item.Attendees {
			re.Attendees = append(re.Attendees, a.Email)
		}
		out = append(out, re)
	}
	return out, nil
}

func (p *Provider) Update(ctx context.Context, externalID string, d events.Draft) error {
	ev := &calendar.Event{
		Summary:     d.Title,
		Description: d.Description,
		Location:    d.Location,
		Start:       &calendar.EventDateTime{DateTime: d.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: d.End.Format(time.RFC3339)},
	}
	for _, a := range d.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a})
	}

	if _, err := p.service.Events.Update(p.calendarID, externalID, ev).Context(ctx).Do(); err != nil {
		return fmt.Errorf("google: update event %s: %w", externalID, err)
	}
	return nil
}

func (p *Provider) Delete(ctx context.Context, externalID string) error {
	if err := p.service.Events.Delete(p.calendarID, externalID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("google: delete event %s: %w", externalID, err)
	}
	return nil
}

// GetOAuthConfigForAuthFlow la usa el comando auth para el flow web.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig prioriza credenciales explícitas sobre credentials.json.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     googleoauth.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found: provide client id/secret in config or place credentials.json next to the binary")
		}
		return nil, fmt.Errorf("read client secret file: %w", err)
	}

	config, err := googleoauth.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // desktop app flow
	return config, nil
}

// TokenFromWeb intercambia el código pegado por el usuario por un token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken persiste el token en path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
