package seed

import (
	"testing"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

func TestGenerate_Counts(t *testing.T) {
	readings := Generate(Options{Readings: 200, Anomalies: 3, Seed: 1})
	if len(readings) != 203 {
		t.Fatalf("got %d readings, want 203", len(readings))
	}
}

func TestGenerate_Defaults(t *testing.T) {
	readings := Generate(Options{Seed: 1})
	if len(readings) != 200 {
		t.Fatalf("got %d readings, want 200 baseline by default", len(readings))
	}
}

func TestGenerate_BaselineRanges(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	readings := Generate(Options{Readings: 200, Anomalies: 0, Now: now, Seed: 7})

	for i, r := range readings {
		if r.SeaLevel < 0.9 || r.SeaLevel > 1.6 {
			t.Errorf("reading %d: sea_level %v out of baseline range", i, r.SeaLevel)
		}
		if r.WaveHeight < 1.5 || r.WaveHeight > 3.0 {
			t.Errorf("reading %d: wave_height %v out of baseline range", i, r.WaveHeight)
		}
		if r.WindSpeed < 10 || r.WindSpeed > 30 {
			t.Errorf("reading %d: wind_speed %v out of baseline range", i, r.WindSpeed)
		}
		if !r.ThreatLevel.Valid() {
			t.Errorf("reading %d: invalid threat level %q", i, r.ThreatLevel)
		}
		if r.ThreatLevel == store.ThreatHigh {
			t.Errorf("reading %d: baseline reading labeled high", i)
		}
	}
}

func TestGenerate_StaticRuleLabels(t *testing.T) {
	readings := Generate(Options{Readings: 200, Anomalies: 0, Seed: 3})
	for i, r := range readings {
		exceeds := r.SeaLevel > 1.4 || r.WaveHeight > 3.0 || r.WindSpeed > 40
		if exceeds && r.ThreatLevel != store.ThreatMedium {
			t.Errorf("reading %d exceeds rule thresholds but labeled %q", i, r.ThreatLevel)
		}
		if !exceeds && r.ThreatLevel != store.ThreatLow {
			t.Errorf("reading %d within thresholds but labeled %q", i, r.ThreatLevel)
		}
	}
}

func TestGenerate_AnomaliesAreHighThreat(t *testing.T) {
	readings := Generate(Options{Readings: 200, Anomalies: 3, Seed: 11})

	var anomalies []store.Reading
	for _, r := range readings {
		if r.ThreatLevel == store.ThreatHigh {
			anomalies = append(anomalies, r)
		}
	}
	if len(anomalies) != 3 {
		t.Fatalf("got %d high-threat readings, want 3", len(anomalies))
	}
	for i, r := range anomalies {
		if r.SeaLevel < 2.5 || r.SeaLevel > 3.5 {
			t.Errorf("anomaly %d: sea_level %v out of range", i, r.SeaLevel)
		}
		if r.WaveHeight < 4.0 || r.WaveHeight > 5.0 {
			t.Errorf("anomaly %d: wave_height %v out of range", i, r.WaveHeight)
		}
		if r.WindSpeed < 55 || r.WindSpeed > 70 {
			t.Errorf("anomaly %d: wind_speed %v out of range", i, r.WindSpeed)
		}
	}
}

func TestGenerate_UniqueTimestamps(t *testing.T) {
	readings := Generate(Options{Readings: 200, Anomalies: 3, Seed: 5})
	seen := make(map[time.Time]bool)
	for _, r := range readings {
		if seen[r.Timestamp] {
			t.Errorf("duplicate timestamp %v", r.Timestamp)
		}
		seen[r.Timestamp] = true
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(Options{Readings: 50, Anomalies: 2, Now: time.Unix(1700000000, 0).UTC(), Seed: 9})
	b := Generate(Options{Readings: 50, Anomalies: 2, Now: time.Unix(1700000000, 0).UTC(), Seed: 9})
	if len(a) != len(b) {
		t.Fatal("lengths differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("reading %d differs between identical seeds", i)
		}
	}
}
