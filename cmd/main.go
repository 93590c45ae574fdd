package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/immxrtalbeast/axenix_meet/internal/api/http"
	"github.com/immxrtalbeast/axenix_meet/internal/app"
	"github.com/immxrtalbeast/axenix_meet/internal/config"
	"github.com/immxrtalbeast/axenix_meet/internal/service"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/sl"
	"github.com/immxrtalbeast/axenix_meet/lib/logger/slogpretty"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := app.OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error("failed to close storage", sl.Err(err))
		}
	}()

	meetService := service.NewMeetService(storage.Rooms, log, service.MeetOptions{
		RoomLifetime: cfg.Rooms.TTL,
		CodeAttempts: cfg.Rooms.CodeAttempts,
	})
	signalService := service.NewSignalService(meetService, log)

	meetController := httpapi.NewMeetController(meetService, log, cfg.WebRTC.STUNServers)
	roomController := httpapi.NewRoomController(meetService, signalService, log, cfg.HTTP.AllowedOrigins)
	signalController := httpapi.NewSignalController(meetService, signalService, log, cfg.HTTP.AllowedOrigins)

	router := httpapi.SetupRouter(httpapi.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		SessionSecret:  cfg.HTTP.SessionSecret,
		SecureCookies:  cfg.HTTP.SecureCookies,
		JoinPerMinute:  cfg.RateLimit.JoinPerMinute,
		JoinBurst:      cfg.RateLimit.Burst,
	}, log, meetController, roomController, signalController)

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("starting application",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("env", cfg.Env),
			slog.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
