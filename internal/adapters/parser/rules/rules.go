// Package rules es el parser de respaldo: heurísticas simples que siempre
// producen algo razonable cuando el modelo hosteado no está disponible.
package rules

import (
	"context"
	"strings"
	"time"
	"unicode"

	"calendar-assistant/internal/domain/events"
)

type Parser struct {
	now func() time.Time
}

func New() *Parser {
	return &Parser{now: time.Now}
}

func (p *Parser) Name() string { return "rules" }

// Parse arma un borrador con heurísticas de palabra clave:
//   - "tomorrow" => mañana 09:00-10:00, "next week" => +7 días 09:00-10:00
//   - sin pista temporal => la próxima hora en punto, una hora de duración
//   - título por keyword (meeting/appointment/lunch/call) o las primeras
//     palabras del texto
//
// Nunca falla salvo timezone inválida: es el último eslabón de la cadena.
func (p *Parser) Parse(ctx context.Context, text, timezone string) (events.Draft, error) {
	loc := time.UTC
	if strings.TrimSpace(timezone) != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return events.Draft{}, err
		}
		loc = l
	}

	now := p.now().In(loc)
	lower := strings.ToLower(text)

	var start time.Time
	switch {
	case strings.Contains(lower, "tomorrow"):
		t := now.AddDate(0, 0, 1)
		start = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, loc)
	case strings.Contains(lower, "next week"):
		t := now.AddDate(0, 0, 7)
		start = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, loc)
	default:
		start = now.Truncate(time.Hour).Add(time.Hour)
	}

	return events.Draft{
		Title:       extractTitle(text, lower),
		Start:       start,
		End:         start.Add(time.Hour),
		Description: "Created from: " + text,
	}, nil
}

func extractTitle(text, lower string) string {
	switch {
	case strings.Contains(lower, "meeting"):
		return "Meeting"
	case strings.Contains(lower, "appointment"):
		return "Appointment"
	case strings.Contains(lower, "lunch"):
		return "Lunch"
	case strings.Contains(lower, "call"):
		return "Call"
	}

	words := strings.Fields(text)
	if len(words) > 3 {
		words = words[:3]
	}
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
