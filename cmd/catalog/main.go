package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	catalogapp "github.com/dwikikusuma/rocketshoes-cart/internal/catalog/app"
	catalogsqlite "github.com/dwikikusuma/rocketshoes-cart/internal/catalog/infra/sqlite"
	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/rest"
	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/seed"

	"github.com/dwikikusuma/rocketshoes-cart/pkg/config"
	"github.com/dwikikusuma/rocketshoes-cart/pkg/logger"
	"github.com/dwikikusuma/rocketshoes-cart/pkg/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "catalog", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	repo, err := catalogsqlite.Open(cfg.Catalog.SQLitePath)
	if err != nil {
		log.Error("db open failed", slog.Any("err", err), slog.String("path", cfg.Catalog.SQLitePath))
		os.Exit(1)
	}
	defer repo.Close()

	svc := catalogapp.NewService(repo)

	fixtures, err := seed.Load(cfg.Catalog.SeedPath)
	if err != nil {
		log.Error("seed load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := svc.Seed(ctx, fixtures); err != nil {
		log.Error("seed failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("catalog seeded", slog.Int("products", len(fixtures.Products)), slog.Int("stock", len(fixtures.Stock)))

	addr := fmt.Sprintf(":%d", cfg.Catalog.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           rest.NewServer(svc, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		return srv.Shutdown(stopCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("catalog stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}
