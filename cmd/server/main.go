package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/sweet_shop/internal/config"
	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/httpserver"
	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	middleware "github.com/Skotchmaster/sweet_shop/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/sweet_shop/pkg/middleware/logging"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := config.OpenStore(ctx, cfg)
	if err != nil {
		cancel()
		logger.Error("store_open_failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	index, err := config.OpenIndex(ctx, cfg)
	cancel()
	if err != nil {
		logger.Warn("search_index_unavailable", "url", cfg.ESURL, "error", err)
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers)

	authSvc := &service.AuthService{
		Users:  store,
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTExpire,
		Events: publisher,
	}
	sweetSvc := &service.SweetService{Repo: store, Events: publisher}
	if index != nil {
		sweetSvc.Index = index
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: authSvc},
		SweetHandler: &httpserver.SweetHTTP{Svc: sweetSvc},
		Auth:         middleware.NewBearerAuth(authSvc),
		Store:        store,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "driver", cfg.StoreDriver, "search_index", index != nil, "kafka", len(cfg.KafkaBrokers) > 0)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("store_close_failed", "error", err)
	}

	logger.Info("stopped")
}
