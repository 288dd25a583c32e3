package router

import (
	"net/http"
	"time"

	"calendar-assistant/internal/domain/assistant"
	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
	"calendar-assistant/internal/ports/parser"
	"calendar-assistant/internal/ports/provider"

	_ "calendar-assistant/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Log  logger.Logger
	Repo events.Repository

	Parser parser.Parser

	// Provider puede ser nil (modo solo-local).
	Provider provider.Provider

	// Detector puede ser nil (sin autodetección de timezone).
	Detector assistant.TimezoneDetector

	Gap      time.Duration
	SyncDays int
	Timezone string
}

// NewRouter arma el árbol de rutas completo y devuelve además el service del
// asistente, que el comando serve reutiliza para el sync en background.
func NewRouter(opts Options) (http.Handler, *assistant.Service) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Services por módulo
	eventsSvc := events.NewService(opts.Repo, opts.Log)
	assistantSvc := assistant.NewService(eventsSvc, opts.Parser, opts.Provider, opts.Detector, opts.Log, assistant.Config{
		Gap:      opts.Gap,
		SyncDays: opts.SyncDays,
		Timezone: opts.Timezone,
	})

	// Rutas por módulo
	events.RegisterRoutes(r, eventsSvc)
	assistant.RegisterRoutes(r, assistantSvc)

	r.Get("/swagger/*", httpSwagger.Handler())

	return r, assistantSvc
}
