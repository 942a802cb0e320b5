package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/animeshelf/internal/api"
	"github.com/pokerjest/animeshelf/internal/clock"
	"github.com/pokerjest/animeshelf/internal/config"
	"github.com/pokerjest/animeshelf/internal/db"
	"github.com/pokerjest/animeshelf/internal/event"
	"github.com/pokerjest/animeshelf/internal/importer"
	"github.com/pokerjest/animeshelf/internal/logging"
	"github.com/pokerjest/animeshelf/internal/provider"
	"github.com/pokerjest/animeshelf/internal/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Config
	if err := config.LoadConfig("."); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = logging.Close() }()

	// 2. Setup Gin Mode
	gin.SetMode(cfg.Server.Mode)

	// 转换为绝对路径日志一下
	absPath, _ := filepath.Abs(cfg.Database.Path)
	logging.Info().Str("path", absPath).Msg("Initializing database")
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logging.Fatal().Err(err).Msg("Database init failed")
	}
	defer func() { _ = db.CloseDB() }()

	providers, err := provider.NewFromConfig(cfg.Providers)
	if err != nil {
		logging.Fatal().Err(err).Msg("Provider client init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}
	st := store.New(db.DB, clk, cfg.Import.WatchMarkStep)
	im := importer.New(st, providers, importer.NewRegistry(0), clk, importer.OptionsFromConfig(cfg.Import))

	r := gin.New()
	r.Use(gin.Recovery())
	api.NewServer(ctx, im, st, event.GlobalBus).InitRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
	}
}
