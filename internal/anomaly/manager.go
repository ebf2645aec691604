package anomaly

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

const (
	inputDim  = 4
	latentDim = 2
)

// Features extracts the hazard feature vector from a reading: sea level,
// wave height, wind speed, and water quality. Temperature is stored but
// does not feed the detector.
func Features(r *store.Reading) []float64 {
	return []float64{r.SeaLevel, r.WaveHeight, r.WindSpeed, r.WaterQuality}
}

// Snapshot is a paired normalizer and detector produced by one retrain
// cycle. Immutable once published; replaced only as a whole.
type Snapshot struct {
	Normalizer *Normalizer
	Detector   *Autoencoder
	TrainedAt  time.Time
	Corpus     int
}

// Classify runs the snapshot's normalize-then-score pipeline on a reading.
func (s *Snapshot) Classify(r *store.Reading) (bool, float64) {
	return s.Detector.Classify(s.Normalizer.Transform(Features(r)))
}

// Config holds detector training parameters. Zero values fall back to
// the autoencoder defaults.
type Config struct {
	Threshold    float64
	Epochs       int
	BatchSize    int
	LearningRate float64
}

// Manager owns the current model snapshot and its training lifecycle.
// Many goroutines may classify concurrently with a retrain: the snapshot
// is built entirely off to the side and installed with a single atomic
// pointer swap, so a classify call sees either the old pair or the new
// pair, never a mix.
type Manager struct {
	store  store.Store
	cfg    Config
	logger *slog.Logger

	// retrainMu serializes retrains. Classify never takes it.
	retrainMu sync.Mutex
	current   atomic.Pointer[Snapshot]
}

// NewManager creates a Manager in the untrained state.
func NewManager(s store.Store, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: s, cfg: cfg, logger: logger}
}

// Trained reports whether a retrain has ever succeeded.
func (m *Manager) Trained() bool {
	return m.current.Load() != nil
}

// Snapshot returns the current model pair, or nil before first training.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// Retrain reads the entire store, fits a fresh normalizer, trains a
// fresh detector, and atomically swaps in the new pair. An empty store
// leaves the prior snapshot (or untrained state) intact and returns
// ErrInsufficientData. The previous model is always discarded whole;
// there is no incremental update.
func (m *Manager) Retrain(ctx context.Context) error {
	m.retrainMu.Lock()
	defer m.retrainMu.Unlock()

	start := time.Now()
	readings, err := m.store.AllReadings(ctx)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return ErrInsufficientData
	}

	matrix := make([][]float64, len(readings))
	for i := range readings {
		matrix[i] = Features(&readings[i])
	}

	norm, err := FitNormalizer(matrix)
	if err != nil {
		return err
	}

	det := New(inputDim, latentDim, m.options()...)
	if err := det.Fit(norm.TransformAll(matrix)); err != nil {
		return err
	}

	snap := &Snapshot{
		Normalizer: norm,
		Detector:   det,
		TrainedAt:  time.Now().UTC(),
		Corpus:     len(readings),
	}
	m.current.Store(snap)

	m.logger.Info("detector retrained",
		"corpus", len(readings),
		"threshold", det.Threshold(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Classify scores a reading against the current snapshot. Before the
// first successful retrain it returns the untrained default (false, 0)
// so the serving path degrades gracefully instead of erroring.
func (m *Manager) Classify(r *store.Reading) (isAnomaly bool, score float64) {
	snap := m.current.Load()
	if snap == nil {
		return false, 0.0
	}
	return snap.Classify(r)
}

func (m *Manager) options() []Option {
	var opts []Option
	if m.cfg.Threshold > 0 {
		opts = append(opts, WithThreshold(m.cfg.Threshold))
	}
	if m.cfg.Epochs > 0 {
		opts = append(opts, WithEpochs(m.cfg.Epochs))
	}
	if m.cfg.BatchSize > 0 {
		opts = append(opts, WithBatchSize(m.cfg.BatchSize))
	}
	if m.cfg.LearningRate > 0 {
		opts = append(opts, WithLearningRate(m.cfg.LearningRate))
	}
	return opts
}
