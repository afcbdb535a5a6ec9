package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	cartapp "github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	cartgrpc "github.com/dwikikusuma/rocketshoes-cart/internal/cart/grpc"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/httpapi"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/memory"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/notify"
	cartredis "github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/redis"
	cartsqlite "github.com/dwikikusuma/rocketshoes-cart/internal/cart/infra/sqlite"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/rest"

	"github.com/dwikikusuma/rocketshoes-cart/pkg/config"
	"github.com/dwikikusuma/rocketshoes-cart/pkg/logger"
	"github.com/dwikikusuma/rocketshoes-cart/pkg/shutdown"
	"github.com/dwikikusuma/rocketshoes-cart/pkg/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	stopTimeout     = 10 * time.Second
	notifyQueueSize = 64
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: "cart", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("cart gateway stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

type slot interface {
	cartapp.Slot
	io.Closer
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	stopTracing, err := telemetry.Setup(ctx, "rocketshoes-cart", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer flushCancel()
		if err := stopTracing(flushCtx); err != nil {
			log.Warn("trace flush failed", slog.Any("err", err))
		}
	}()

	store, err := openSlot(ctx, cfg.Cart, log)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := httpapi.NewClient(cfg.Cart.APIBaseURL, cfg.Cart.APITimeout)
	if err != nil {
		return err
	}
	var products cartapp.ProductQuery = client
	if cfg.Cart.ProductCacheTTL > 0 {
		products = httpapi.NewProductCache(client, cfg.Cart.ProductCacheTTL)
	}

	sinks := notify.Multi{notify.NewLog(log)}
	if cfg.Cart.NotifyAMQPURL != "" {
		pub, err := notify.DialAMQP(cfg.Cart.NotifyAMQPURL, log)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	notifier := notify.NewAsync(sinks, notifyQueueSize)
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer drainCancel()
		if err := notifier.Close(drainCtx); err != nil {
			log.Warn("notification drain incomplete", slog.Any("err", err), slog.Int64("dropped", notifier.Dropped()))
		}
	}()

	svc, err := cartapp.NewService(ctx, cartapp.Options{
		Key:      cfg.Cart.StorageKey,
		Stock:    client,
		Products: products,
		Slot:     store,
		Notifier: notifier,
		Logger:   log,
		Debug:    cfg.Cart.Debug,
	})
	if err != nil {
		return err
	}

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           rest.NewServer(svc, store.Ping, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(grpcServer, cartgrpc.NewHealthServer(store, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http starting", slog.String("addr", httpAddr), slog.String("storage", cfg.Cart.Storage))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc starting", slog.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			log.Warn("http shutdown", slog.Any("err", err))
		}
		select {
		case <-stopCtx.Done():
			log.Warn("graceful stop timeout, forcing stop")
			grpcServer.Stop()
		case <-stopped:
		}
		return nil
	})

	return g.Wait()
}

func openSlot(ctx context.Context, cfg config.Cart, log *slog.Logger) (slot, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := cartsqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite slot: %w", err)
		}
		return s, nil
	case config.StorageRedis:
		s, err := cartredis.NewSlot(cfg.RedisAddr, log)
		if err != nil {
			return nil, err
		}
		if err := s.Initialize(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis slot: %w", err)
		}
		return s, nil
	default:
		return nopCloser{memory.NewSlot()}, nil
	}
}

type nopCloser struct{ *memory.Slot }

func (nopCloser) Close() error { return nil }
