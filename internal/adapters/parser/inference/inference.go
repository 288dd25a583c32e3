// Package inference parsea lenguaje natural llamando a un modelo hosteado
// (Hugging Face Inference API o compatible). El modelo devuelve texto libre;
// acá se extrae y valida el JSON embebido.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/httpclient"
	"calendar-assistant/internal/platform/logger"
	"calendar-assistant/internal/ports/parser"
)

const (
	DefaultBaseURL = "https://api-inference.huggingface.co"
	DefaultModel   = "microsoft/DialoGPT-medium"

	// draftLayout es el formato que el prompt le pide al modelo: ISO local
	// sin offset; la zona la aporta el caller.
	draftLayout = "2006-01-02T15:04:05"
)

type Config struct {
	BaseURL string
	Token   string
	Model   string
}

type Parser struct {
	client *httpclient.Client
	cfg    Config
	log    logger.Logger
	now    func() time.Time
}

func New(cfg Config, log logger.Logger) (*Parser, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("inference: token is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}

	client, err := httpclient.NewWithBaseURL(cfg.BaseURL, 30*time.Second)
	if err != nil {
		return nil, err
	}
	return &Parser{client: client, cfg: cfg, log: log, now: time.Now}, nil
}

// NewWithClient inyecta el http client (para tests).
func NewWithClient(cfg Config, log logger.Logger, client *httpclient.Client) *Parser {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &Parser{client: client, cfg: cfg, log: log, now: time.Now}
}

func (p *Parser) Name() string { return "inference" }

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type generated struct {
	GeneratedText string `json:"generated_text"`
}

// draftPayload es el JSON que el prompt le exige al modelo.
type draftPayload struct {
	Title         string   `json:"title"`
	StartDatetime string   `json:"start_datetime"`
	EndDatetime   string   `json:"end_datetime"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Attendees     []string `json:"attendees"`
}

func (p *Parser) Parse(ctx context.Context, text, timezone string) (events.Draft, error) {
	loc := time.UTC
	if strings.TrimSpace(timezone) != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return events.Draft{}, err
		}
		loc = l
	}

	prompt := buildPrompt(text, timezone, p.now().In(loc))

	var out []generated
	err := p.client.DoJSON(ctx, "POST", "/models/"+p.cfg.Model,
		map[string]string{"Authorization": "Bearer " + p.cfg.Token},
		inferenceRequest{Inputs: prompt},
		&out,
	)
	if err != nil {
		return events.Draft{}, fmt.Errorf("inference call: %w", err)
	}
	if len(out) == 0 {
		return events.Draft{}, fmt.Errorf("%w: empty model response", parser.ErrUnparseable)
	}

	payload, err := extractPayload(out[0].GeneratedText)
	if err != nil {
		return events.Draft{}, err
	}

	start, err := time.ParseInLocation(draftLayout, payload.StartDatetime, loc)
	if err != nil {
		return events.Draft{}, fmt.Errorf("%w: bad start_datetime %q", parser.ErrUnparseable, payload.StartDatetime)
	}
	end, err := time.ParseInLocation(draftLayout, payload.EndDatetime, loc)
	if err != nil {
		return events.Draft{}, fmt.Errorf("%w: bad end_datetime %q", parser.ErrUnparseable, payload.EndDatetime)
	}

	p.log.Debug("model parsed event", map[string]any{"title": payload.Title})
	return events.Draft{
		Title:       payload.Title,
		Start:       start,
		End:         end,
		Description: payload.Description,
		Location:    payload.Location,
		Attendees:   payload.Attendees,
	}, nil
}

// extractPayload rescata el JSON de la respuesta del modelo: todo lo que hay
// entre la primera '{' y la última '}'. Los modelos suelen rodear el JSON con
// texto aunque el prompt pida lo contrario.
func extractPayload(raw string) (draftPayload, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return draftPayload{}, fmt.Errorf("%w: no json object in model output", parser.ErrUnparseable)
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return draftPayload{}, fmt.Errorf("%w: invalid json in model output", parser.ErrUnparseable)
	}
	if payload.Title == "" || payload.StartDatetime == "" || payload.EndDatetime == "" {
		return draftPayload{}, fmt.Errorf("%w: missing required fields in model output", parser.ErrUnparseable)
	}
	return payload, nil
}

func buildPrompt(text, timezone string, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a calendar assistant. Parse the following natural language request into a structured event.\n\n")
	fmt.Fprintf(&b, "Current date and time: %s\n", now.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "User timezone: %s\n\n", timezone)
	fmt.Fprintf(&b, "Request: %q\n\n", text)
	b.WriteString(`Extract the following information and respond ONLY with valid JSON in this exact format:
{
    "title": "Event title",
    "start_datetime": "YYYY-MM-DDTHH:MM:SS",
    "end_datetime": "YYYY-MM-DDTHH:MM:SS",
    "description": "Event description or empty string",
    "location": "Event location or empty string",
    "attendees": []
}

Rules:
1. If no end time is specified, assume 1 hour duration
2. If no date is specified, assume today
3. If time is specified without AM/PM, use 24-hour format context
4. Convert all times to the user's timezone
5. Keep attendees array empty unless email addresses are explicitly mentioned
6. Make reasonable assumptions for missing information
7. Respond with ONLY the JSON object, no other text

JSON:
`)
	return b.String()
}
