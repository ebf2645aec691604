// Package seed generates mock historical readings so a fresh deployment
// has a training corpus before real sensors report in. Seeding is
// bootstrap policy only; nothing in the serving path depends on it.
package seed

import (
	"context"
	"math/rand"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// Static rule thresholds used to label generated readings. Live readings
// are labeled by the detector instead.
const (
	mediumSeaLevel   = 1.4
	mediumWaveHeight = 3.0
	mediumWindSpeed  = 40.0
)

// Options controls how much mock data is generated.
type Options struct {
	Readings  int // hourly baseline readings
	Anomalies int // injected high-threat spikes
	Now       time.Time
	Seed      int64
}

// Generate produces a baseline of hourly readings with a diurnal sea
// level cycle, labeled by static rule thresholds, plus a handful of
// injected high-threat anomalies at random past hours.
func Generate(opts Options) []store.Reading {
	if opts.Readings <= 0 {
		opts.Readings = 200
	}
	if opts.Anomalies < 0 {
		opts.Anomalies = 0
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	readings := make([]store.Reading, 0, opts.Readings+opts.Anomalies)
	for i := 0; i < opts.Readings; i++ {
		r := store.Reading{
			Timestamp:    now.Add(-time.Duration(i) * time.Hour),
			SeaLevel:     1.0 + float64(i%24)/24*0.5 + (rng.Float64()-0.5)*0.1,
			WaveHeight:   1.5 + rng.Float64()*1.5,
			WindSpeed:    10 + rng.Float64()*20,
			WaterQuality: 7.0 + rng.Float64()*1.0,
			Temperature:  20 + rng.Float64()*10,
			ThreatLevel:  store.ThreatLow,
		}
		if r.SeaLevel > mediumSeaLevel || r.WaveHeight > mediumWaveHeight || r.WindSpeed > mediumWindSpeed {
			r.ThreatLevel = store.ThreatMedium
		}
		readings = append(readings, r)
	}

	for i := 0; i < opts.Anomalies; i++ {
		readings = append(readings, store.Reading{
			Timestamp:    now.Add(-time.Duration(1+rng.Intn(max(opts.Readings-1, 1))) * time.Hour).Add(time.Duration(30+i) * time.Minute),
			SeaLevel:     2.5 + rng.Float64(),
			WaveHeight:   4.0 + rng.Float64(),
			WindSpeed:    55 + rng.Float64()*15,
			WaterQuality: 5.5 + rng.Float64()*0.5,
			Temperature:  25 + rng.Float64()*5,
			ThreatLevel:  store.ThreatHigh,
		})
	}

	return readings
}

// Apply upserts generated readings into the store.
func Apply(ctx context.Context, s store.Store, opts Options) (int, error) {
	readings := Generate(opts)
	for i := range readings {
		if err := s.UpsertReading(ctx, &readings[i]); err != nil {
			return i, err
		}
	}
	return len(readings), nil
}
