package parser

import (
	"context"
	"strings"

	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
)

// Chain prueba una lista priorizada de parsers en orden; gana el primero que
// tiene éxito. Cualquier falla (no solo ErrUnparseable) hace caer al
// siguiente de la cadena.
type Chain struct {
	parsers []Parser
	log     logger.Logger
}

func NewChain(log logger.Logger, parsers ...Parser) *Chain {
	return &Chain{parsers: parsers, log: log}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.parsers))
	for _, p := range c.parsers {
		names = append(names, p.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Names devuelve los eslabones configurados, en orden de prioridad.
// Lo usa el endpoint de status.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.parsers))
	for _, p := range c.parsers {
		names = append(names, p.Name())
	}
	return names
}

func (c *Chain) Parse(ctx context.Context, text, timezone string) (events.Draft, error) {
	for _, p := range c.parsers {
		if err := ctx.Err(); err != nil {
			return events.Draft{}, err
		}

		d, err := p.Parse(ctx, text, timezone)
		if err == nil {
			c.log.Debug("parser succeeded", map[string]any{"parser": p.Name()})
			return d, nil
		}
		c.log.Warn("parser failed, trying next", map[string]any{
			"parser": p.Name(),
			"error":  err.Error(),
		})
	}
	return events.Draft{}, ErrUnparseable
}
