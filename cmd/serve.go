package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SaumyaAdani05/coastwatchd/internal/anomaly"
	"github.com/SaumyaAdani05/coastwatchd/internal/api"
	"github.com/SaumyaAdani05/coastwatchd/internal/chatbot"
	"github.com/SaumyaAdani05/coastwatchd/internal/config"
	"github.com/SaumyaAdani05/coastwatchd/internal/ingest"
	"github.com/SaumyaAdani05/coastwatchd/internal/seed"
	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

var (
	listenAddr    string
	storageDriver string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coastwatchd daemon (default command)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&storageDriver, "storage-driver", "", "storage driver (overrides config)")
	rootCmd.AddCommand(serveCmd)

	// Make serve the default command.
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides.
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}

	slog.Info("starting coastwatchd",
		"listen_addr", cfg.ListenAddr,
		"storage_driver", cfg.Storage.Driver,
	)

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	slog.Info("database ready", "driver", cfg.Storage.Driver)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Seed an empty store so the first retrain has a corpus. Policy,
	// not mechanism: disable via seed.on_startup once real sensors
	// report in.
	if cfg.Seed.OnStartup {
		count, err := s.CountReadings(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			n, err := seed.Apply(ctx, s, seed.Options{
				Readings:  cfg.Seed.Readings,
				Anomalies: cfg.Seed.Anomalies,
			})
			if err != nil {
				slog.Error("seeding failed", "inserted", n, "error", err)
				return err
			}
			slog.Info("seeded empty store", "readings", n)
		}
	}

	manager := anomaly.NewManager(s, anomaly.Config{
		Threshold:    cfg.Detector.Threshold,
		Epochs:       cfg.Detector.Epochs,
		BatchSize:    cfg.Detector.BatchSize,
		LearningRate: cfg.Detector.LearningRate,
	}, slog.Default())

	if cfg.Detector.RetrainOnStartup {
		if err := manager.Retrain(ctx); err != nil {
			if errors.Is(err, anomaly.ErrInsufficientData) {
				slog.Warn("no readings to train on; serving with untrained detector")
			} else {
				return err
			}
		}
	}

	svc := ingest.NewService(s, manager, slog.Default())
	bot := chatbot.NewResponder(s)

	srv := api.NewServer(s, manager, svc, bot, slog.Default())
	srv.SetVersion(Version)
	storagePath := cfg.DSN()
	if cfg.Storage.Driver == "postgres" {
		storagePath = redactDSN(storagePath)
	}
	srv.SetStorageInfo(cfg.Storage.Driver, storagePath)

	slog.Info("coastwatchd ready", "addr", cfg.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.ListenAddr) })

	waitErr := g.Wait()
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		slog.Error("coastwatchd exited with error", "error", waitErr)
	}

	// Always run graceful cleanup, even on error.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = s.Close()

	slog.Info("coastwatchd shutdown complete")
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return store.NewPostgresStore(cfg.DSN())
	default:
		return store.NewSQLiteStore(cfg.DSN())
	}
}

func setupLogging() {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if logFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// redactDSN masks the password in a PostgreSQL DSN for safe display.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
