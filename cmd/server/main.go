package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kmorozov/clipstream/internal/config"
	"github.com/kmorozov/clipstream/internal/db"
	"github.com/kmorozov/clipstream/internal/es"
	"github.com/kmorozov/clipstream/internal/httpserver"
	"github.com/kmorozov/clipstream/internal/logging"
	"github.com/kmorozov/clipstream/internal/media"
	"github.com/kmorozov/clipstream/internal/middleware"
	"github.com/kmorozov/clipstream/internal/mykafka"
	"github.com/kmorozov/clipstream/internal/repo"
	"github.com/kmorozov/clipstream/internal/service"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	config.MustNonEmpty(cfg.S3Bucket, "S3_BUCKET")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gormDB, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	uploader, err := media.NewS3Uploader(initCtx, media.S3Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("media uploader init error: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	svc := &service.SessionService{
		Repo:          &repo.GormRepo{DB: gormDB},
		Media:         uploader,
		Events:        producer,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	deps := &httpserver.Deps{
		UserHandler: &httpserver.UserHTTP{Svc: svc},
		JWTSecret:   cfg.JWTAccessSecret,
	}

	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		index := &es.UserIndex{ES: esClient, Index: cfg.ESIndex}
		svc.Index = index
		deps.SearchHandler = &httpserver.SearchHTTP{Index: index}
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	logger.Info("server started", "addr", cfg.HTTPAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
}
