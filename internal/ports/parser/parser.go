package parser

import (
	"context"
	"errors"

	"calendar-assistant/internal/domain/events"
)

// ErrUnparseable: el colaborador no pudo producir un evento estructurado a
// partir del texto. Se informa al caller como "no entendí el pedido"; el
// core no reintenta.
var ErrUnparseable = errors.New("could not parse event from text")

// Parser convierte lenguaje natural en un borrador de evento. El core nunca
// inspecciona cómo se produjo el borrador (modelo hosted o reglas) y tolera
// cualquiera de las dos fuentes sin casos especiales.
type Parser interface {
	Name() string
	Parse(ctx context.Context, text, timezone string) (events.Draft, error)
}
