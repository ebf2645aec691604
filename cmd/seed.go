package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/SaumyaAdani05/coastwatchd/internal/config"
	"github.com/SaumyaAdani05/coastwatchd/internal/seed"
)

var (
	seedReadings  int
	seedAnomalies int
	seedForce     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with mock historical readings",
	Long: `seed generates a baseline of mock coastal readings labeled by static
rule thresholds, plus a few injected high-threat anomalies, so the detector
has a training corpus before real sensors report in.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedReadings, "readings", 0, "baseline readings to generate (overrides config)")
	seedCmd.Flags().IntVar(&seedAnomalies, "anomalies", 0, "anomalies to inject (overrides config)")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "seed even if the store already has readings")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	ctx := context.Background()

	if !seedForce {
		count, err := s.CountReadings(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("store already has %d readings; use --force to seed anyway", count)
		}
	}

	opts := seed.Options{
		Readings:  cfg.Seed.Readings,
		Anomalies: cfg.Seed.Anomalies,
	}
	if seedReadings > 0 {
		opts.Readings = seedReadings
	}
	if seedAnomalies > 0 {
		opts.Anomalies = seedAnomalies
	}

	n, err := seed.Apply(ctx, s, opts)
	if err != nil {
		return fmt.Errorf("seeding failed after %d readings: %w", n, err)
	}

	slog.Info("seed complete", "readings", n, "driver", cfg.Storage.Driver)
	return nil
}
