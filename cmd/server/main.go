package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/config"
	"github.com/skolegrid/aula-bridge/internal/handler"
	"github.com/skolegrid/aula-bridge/internal/logger"
	"github.com/skolegrid/aula-bridge/internal/router"
	"github.com/skolegrid/aula-bridge/internal/service"
	"github.com/skolegrid/aula-bridge/internal/validator"
	"github.com/skolegrid/aula-bridge/internal/websocket"
	"github.com/skolegrid/aula-bridge/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", "pretty").Fatal().Err(err).Msg("Configuration error")
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Aula Bridge")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Platform Session ──────────────────────────────────────────────
	session := aula.NewSession(aula.Options{
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.HTTPTimeout,
	}, log)
	defer session.Close()

	// ─── Fetchers ──────────────────────────────────────────────────────
	profileFetcher := aula.NewProfileFetcher(session)
	messageFetcher := aula.NewMessageFetcher(session)
	presenceFetcher := aula.NewPresenceFetcher(session)
	galleryFetcher := aula.NewGalleryFetcher(session)
	calendarFetcher := aula.NewCalendarFetcher(session)
	planFetcher := aula.NewPlanFetcher(session)

	// ─── Initialize Services ───────────────────────────────────────────
	calendarService := service.NewCalendarService(calendarFetcher, planFetcher, service.CalendarOptions{
		SchoolSchedule: cfg.SchoolSchedule,
		Ugeplan:        cfg.Ugeplan,
		MUOpgaver:      cfg.MUOpgaver,
		DefaultDays:    cfg.CalendarDays,
		Location:       cfg.Timezone,
	}, log)
	dataService := service.NewDataService(
		session,
		profileFetcher, messageFetcher, presenceFetcher, galleryFetcher,
		calendarService,
		service.DataOptions{StaleAfter: cfg.RefreshInterval, Location: cfg.Timezone},
		log,
	)

	// ─── WebSocket Hub ─────────────────────────────────────────────────
	hub := websocket.NewHub(log)
	defer hub.CloseAll()

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Session:  handler.NewSessionHandler(session, dataService),
		Child:    handler.NewChildHandler(dataService),
		Calendar: handler.NewCalendarHandler(dataService, calendarService),
		Message:  handler.NewMessageHandler(dataService),
		Gallery:  handler.NewGalleryHandler(dataService),
		Summary:  handler.NewSummaryHandler(dataService),
		Stream:   handler.NewStreamHandler(dataService, hub, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	refreshWorker := worker.NewRefreshWorker(dataService, hub, cfg.RefreshInterval, log)
	go refreshWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the refresh worker; an in-flight refresh finishes on its own.
	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
