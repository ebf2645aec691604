// Package ingest accepts raw sensor submissions, labels them with the
// current detector verdict, and persists them.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/anomaly"
	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// ValidationError describes a malformed or missing field on a submitted
// reading. Submissions failing validation never reach the detector.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reading: %s %s", e.Field, e.Reason)
}

// Submission is a raw reading as received from a sensor or operator.
// The threat level is never user-supplied; it is derived here.
type Submission struct {
	Timestamp    time.Time `json:"timestamp"`
	SeaLevel     *float64  `json:"sea_level"`
	WaveHeight   *float64  `json:"wave_height"`
	WindSpeed    *float64  `json:"wind_speed"`
	WaterQuality *float64  `json:"water_quality"`
	Temperature  *float64  `json:"temperature"`
}

// Service labels and persists submitted readings.
type Service struct {
	store   store.Store
	manager *anomaly.Manager
	logger  *slog.Logger
	now     func() time.Time

	// notify, if set, receives each reading after it is stored.
	notify func(store.Reading)
}

// NewService creates a classification service.
func NewService(s store.Store, m *anomaly.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, manager: m, logger: logger, now: time.Now}
}

// OnStored registers a hook invoked with every successfully persisted
// reading. Used to feed the live stream.
func (s *Service) OnStored(fn func(store.Reading)) {
	s.notify = fn
}

// Submit validates a raw submission, classifies it with the current
// model snapshot, and upserts the labeled reading. An untrained model
// defaults the verdict rather than failing: persisting the measurement
// always takes priority over classification.
func (s *Service) Submit(ctx context.Context, sub Submission) (*store.Reading, error) {
	if err := validate(sub); err != nil {
		return nil, err
	}

	ts := sub.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	r := &store.Reading{
		Timestamp:    ts.UTC(),
		SeaLevel:     *sub.SeaLevel,
		WaveHeight:   *sub.WaveHeight,
		WindSpeed:    *sub.WindSpeed,
		WaterQuality: *sub.WaterQuality,
		Temperature:  *sub.Temperature,
	}

	isAnomaly, score := s.manager.Classify(r)
	if isAnomaly {
		r.ThreatLevel = store.ThreatHigh
	} else {
		r.ThreatLevel = store.ThreatLow
	}

	if err := s.store.UpsertReading(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("reading stored",
		"timestamp", r.Timestamp.Format(time.RFC3339),
		"threat_level", r.ThreatLevel,
		"anomaly", isAnomaly,
		"score", score,
	)

	if s.notify != nil {
		s.notify(*r)
	}
	return r, nil
}

func validate(sub Submission) error {
	fields := []struct {
		name  string
		value *float64
	}{
		{"sea_level", sub.SeaLevel},
		{"wave_height", sub.WaveHeight},
		{"wind_speed", sub.WindSpeed},
		{"water_quality", sub.WaterQuality},
		{"temperature", sub.Temperature},
	}
	for _, f := range fields {
		if f.value == nil {
			return &ValidationError{Field: f.name, Reason: "is required"}
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
	}
	return nil
}
