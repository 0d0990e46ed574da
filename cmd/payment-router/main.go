package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"payment-router/internal/config"
	"payment-router/internal/gateway"
	"payment-router/internal/metrics"
	"payment-router/internal/queue"
	"payment-router/internal/selection"
	"payment-router/internal/server"
	"payment-router/internal/services"
	"payment-router/internal/store"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

func main() {
	v := viper.New()
	config.SetDefaults(v)

	if err := newRootCommand(v).Execute(); err != nil {
		slog.Error("payment-router failed", "error", err)
		os.Exit(1)
	}
}

// newRootCommand returns the command without printing its own errors; the
// caller logs them.
func newRootCommand(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "payment-router",
		Short:         "Routes payments to the healthiest payment processor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.String("listen-address", "", "address the HTTP server binds to")
	flags.Int("server-workers", 0, "number of HTTP acceptors")
	flags.Int("processor-workers", 0, "number of payment workers")
	flags.String("database", "", "database directory, or DSN for postgres")
	flags.String("database-driver", "", "sqlite3, sqlite or postgres")
	flags.Bool("database-init", false, "create storage and shared state, and run the health monitor")
	flags.String("selection-backend", "", "shm or redis")

	for _, name := range []string{
		"listen-address", "server-workers", "processor-workers",
		"database", "database-driver", "database-init", "selection-backend",
	} {
		// viper only prefers a flag over the environment once it was set
		v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	return rootCmd
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: true,
	})
	slog.SetDefault(slog.New(logHandler))

	var redisClient *redis.Client
	if cfg.SelectionBackend == config.SelectionBackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			MinIdleConns: 2,
			MaxRetries:   1,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			IdleTimeout:  2 * time.Minute,
		})

		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Error("Failed to close redis client", "error", err)
			}
		}()
	}

	sel, paymentStore, err := openSharedState(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer sel.Close()
	defer paymentStore.Close()

	q := queue.NewPaymentQueue()
	metrics.RegisterQueueDepth(q.Len)

	paymentsService := services.NewPaymentService(
		paymentStore,
		q,
		sel,
		cfg.ProcessorDefaultURL,
		cfg.ProcessorFallbackURL,
		func(url string) gateway.PaymentProcessorInterface {
			return gateway.NewPaymentProcessor(url)
		},
	)

	var wg sync.WaitGroup

	if cfg.DatabaseInit {
		monitor := services.NewHealthMonitor(
			sel,
			gateway.NewPaymentProcessor(cfg.ProcessorDefaultURL),
			gateway.NewPaymentProcessor(cfg.ProcessorFallbackURL),
			cfg.PollInterval,
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		paymentsService.StartWorkers(ctx, cfg.ProcessorWorkers)
	}()

	httpServer := server.NewServer(cfg.ListenAddress, cfg.ServerWorkers, paymentsService)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.ListenAndServe(ctx)
	}()

	slog.Info("READY",
		"addr", cfg.ListenAddress,
		"initializer", cfg.DatabaseInit,
		"processorWorkers", cfg.ProcessorWorkers,
	)

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down http server", "error", err)
	}

	wg.Wait()
	slog.Info("Exiting")

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openSharedState opens the gateway selection and the payment store. The
// initializer creates both; every other process gives it one settle delay to
// do so before opening them.
func openSharedState(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (selection.Selection, *store.PaymentStore, error) {
	if !cfg.DatabaseInit {
		select {
		case <-time.After(cfg.SettleDelay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	sel, err := openSelection(ctx, cfg, redisClient)
	if err != nil {
		return nil, nil, err
	}

	paymentStore, err := store.Open(ctx, store.Options{
		Driver:   cfg.DatabaseDriver,
		Location: cfg.Database,
		Init:     cfg.DatabaseInit,
	})
	if err != nil {
		sel.Close()
		return nil, nil, fmt.Errorf("failed to open payment store: %w", err)
	}

	return sel, paymentStore, nil
}

func openSelection(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (selection.Selection, error) {
	switch cfg.SelectionBackend {
	case config.SelectionBackendRedis:
		sel, err := selection.NewRedis(ctx, redisClient, cfg.DatabaseInit, cfg.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis gateway selection: %w", err)
		}
		return sel, nil

	default:
		if cfg.DatabaseInit {
			sel, err := selection.CreateSharedMemory(cfg.SharedMemoryPath)
			if err != nil {
				return nil, fmt.Errorf("failed to create gateway selection: %w", err)
			}
			return sel, nil
		}

		sel, err := selection.OpenSharedMemory(ctx, cfg.SharedMemoryPath, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to open gateway selection: %w", err)
		}
		return sel, nil
	}
}
