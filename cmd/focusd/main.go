package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erdalgunes/fidan-focusd/internal/config"
	"github.com/erdalgunes/fidan-focusd/internal/gateway"
	"github.com/erdalgunes/fidan-focusd/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	setupLogging()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	registry := session.NewRegistry(session.Config{
		MaxParticipants: cfg.Session.MaxParticipants,
		DefaultDuration: cfg.Session.DefaultDuration.Std(),
		GracePeriod:     cfg.Session.GracePeriod.Std(),
		TickInterval:    cfg.Session.TickInterval.Std(),
	}, clock, manager)
	service := gateway.NewService(registry, manager, clock)

	reaper := session.NewReaper(registry, clock, session.ReaperConfig{
		Interval:  cfg.Reaper.Interval.Std(),
		Retention: cfg.Reaper.Retention.Std(),
	})

	go service.Start(ctx)
	go reaper.Run(ctx)

	router := mux.NewRouter()
	service.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: c.Handler(router),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("focusd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	registry.Stop()
	log.Info().Msg("focusd stopped")
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	level, err := zerolog.ParseLevel(os.Getenv("FOCUSD_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
