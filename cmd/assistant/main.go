package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	caldavcal "calendar-assistant/internal/adapters/calendar/caldav"
	googlecal "calendar-assistant/internal/adapters/calendar/google"
	"calendar-assistant/internal/adapters/parser/inference"
	"calendar-assistant/internal/adapters/parser/rules"
	"calendar-assistant/internal/adapters/storage/memory"
	"calendar-assistant/internal/adapters/storage/postgres"
	"calendar-assistant/internal/adapters/storage/sqlite"
	"calendar-assistant/internal/adapters/timezone/ipapi"
	"calendar-assistant/internal/config"
	"calendar-assistant/internal/domain/assistant"
	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/platform/logger"
	"calendar-assistant/internal/ports/parser"
	"calendar-assistant/internal/ports/provider"
	"calendar-assistant/internal/router"
)

// @title Calendar Assistant API
// @version 1.0
// @description Asistente de calendario personal: agenda eventos desde lenguaje natural, detecta conflictos y sincroniza con el proveedor remoto.
// @BasePath /
func main() {
	// Cargar .env primero; si no existe, no es error.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calendar-assistant",
		Usage: "Personal calendar assistant: natural language scheduling with conflict detection.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the YAML config file."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			syncCommand(),
			authCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API (and the background sync, if configured).",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}

			deps, err := buildCollaborators(c.Context, cfg, log)
			if err != nil {
				return err
			}

			handler, assistantSvc := router.NewRouter(router.Options{
				Log:      log,
				Repo:     deps.repo,
				Parser:   deps.parser,
				Provider: deps.provider,
				Detector: deps.detector,
				Gap:      time.Duration(cfg.GapMinutes) * time.Minute,
				SyncDays: cfg.SyncDaysAhead,
				Timezone: cfg.Timezone,
			})

			// Sync en background con cron, solo si hay proveedor y schedule.
			if cfg.SyncCron != "" && deps.provider != nil {
				cr := cron.New()
				_, err := cr.AddFunc(cfg.SyncCron, func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
					defer cancel()
					applied, err := assistantSvc.Sync(ctx, false)
					if err != nil {
						log.Error("background sync failed", map[string]any{"error": err.Error()})
						return
					}
					log.Info("background sync completed", map[string]any{"applied": applied})
				})
				if err != nil {
					return fmt.Errorf("invalid sync_cron %q: %w", cfg.SyncCron, err)
				}
				cr.Start()
				defer cr.Stop()
				log.Info("background sync scheduled", map[string]any{"cron": cfg.SyncCron})
			}

			srv := &http.Server{
				Addr:         cfg.Listen,
				Handler:      handler,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting server", map[string]any{"addr": cfg.Listen})
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
				log.Info("shutting down", nil)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run one reconciliation cycle against the remote provider.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be applied without touching the store."},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}

			deps, err := buildCollaborators(c.Context, cfg, log)
			if err != nil {
				return err
			}
			if deps.provider == nil {
				return fmt.Errorf("no remote provider configured (provider.type is %q)", cfg.Provider.Type)
			}

			eventsSvc := events.NewService(deps.repo, log)
			assistantSvc := assistant.NewService(eventsSvc, deps.parser, deps.provider, nil, log, assistant.Config{
				Gap:      time.Duration(cfg.GapMinutes) * time.Minute,
				SyncDays: cfg.SyncDaysAhead,
				Timezone: cfg.Timezone,
			})

			applied, err := assistantSvc.Sync(c.Context, c.Bool("dry-run"))
			if err != nil {
				return err
			}
			log.Info("sync completed", map[string]any{"applied": applied, "dry_run": c.Bool("dry-run")})
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Google Calendar and save the token.",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}

			oauthCfg, err := googlecal.GetOAuthConfigForAuthFlow(cfg.Provider.Google.ClientID, cfg.Provider.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("google oauth config: %w", err)
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := googlecal.TokenFromWeb(c.Context, oauthCfg, authCode)
			if err != nil {
				return fmt.Errorf("exchange authorization code: %w", err)
			}

			if err := googlecal.SaveToken(cfg.Provider.Google.TokenFile, token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			log.Info("token saved", map[string]any{"file": cfg.Provider.Google.TokenFile})
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	log := logger.NewFromEnv()
	return cfg, log, nil
}

type collaborators struct {
	repo     events.Repository
	parser   parser.Parser
	provider provider.Provider
	detector assistant.TimezoneDetector
}

// buildCollaborators arma store, parser, proveedor y detector según config.
func buildCollaborators(ctx context.Context, cfg *config.Config, log logger.Logger) (collaborators, error) {
	var out collaborators

	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Open(cfg.Storage.DSN)
		if err != nil {
			return out, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			return out, err
		}
		out.repo = postgres.NewEventRepo(db)
	case "memory":
		out.repo = memory.NewEventRepo()
	default:
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return out, fmt.Errorf("open sqlite: %w", err)
		}
		out.repo = sqlite.NewEventRepo(db)
	}

	// Cadena de parsers: modelo hosteado primero (si hay token), reglas
	// siempre como último recurso.
	links := make([]parser.Parser, 0, 2)
	if cfg.Inference.Token != "" {
		p, err := inference.New(inference.Config{
			BaseURL: cfg.Inference.URL,
			Token:   cfg.Inference.Token,
			Model:   cfg.Inference.Model,
		}, log)
		if err != nil {
			return out, fmt.Errorf("inference parser: %w", err)
		}
		links = append(links, p)
	}
	links = append(links, rules.New())
	out.parser = parser.NewChain(log, links...)

	switch cfg.Provider.Type {
	case "google":
		p, err := googlecal.New(ctx, log, googlecal.Config{
			ClientID:     cfg.Provider.Google.ClientID,
			ClientSecret: cfg.Provider.Google.ClientSecret,
			TokenFile:    cfg.Provider.Google.TokenFile,
			CalendarID:   cfg.Provider.Google.CalendarID,
		})
		if err != nil {
			return out, err
		}
		out.provider = p
	case "caldav":
		p, err := caldavcal.New(ctx, log, caldavcal.Config{
			Endpoint: cfg.Provider.CalDAV.Endpoint,
			Username: cfg.Provider.CalDAV.Username,
			Password: cfg.Provider.CalDAV.Password,
			Calendar: cfg.Provider.CalDAV.Calendar,
		})
		if err != nil {
			return out, err
		}
		out.provider = p
	}

	// Sin timezone fija en config: detección por IP con fallback UTC.
	if cfg.Timezone == "" {
		out.detector = ipapi.New()
	}
	return out, nil
}
