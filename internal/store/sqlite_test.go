package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db")
	s, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeReading(ts time.Time, seaLevel, waveHeight, windSpeed float64) Reading {
	return Reading{
		Timestamp:    ts,
		SeaLevel:     seaLevel,
		WaveHeight:   waveHeight,
		WindSpeed:    windSpeed,
		WaterQuality: 7.2,
		Temperature:  22.0,
		ThreatLevel:  ThreatLow,
	}
}

func TestSQLiteStore_UpsertAndLatest(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	r := makeReading(ts, 1.2, 2.1, 15.0)

	if err := s.UpsertReading(ctx, &r); err != nil {
		t.Fatalf("UpsertReading: %v", err)
	}

	got, err := s.LatestReading(ctx)
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if got == nil {
		t.Fatal("expected reading, got nil")
	}
	if got.SeaLevel != 1.2 {
		t.Errorf("sea_level = %v, want 1.2", got.SeaLevel)
	}
	if got.ThreatLevel != ThreatLow {
		t.Errorf("threat_level = %q, want %q", got.ThreatLevel, ThreatLow)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestSQLiteStore_UpsertReplacesByTimestamp(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	r := makeReading(ts, 1.2, 2.1, 15.0)
	if err := s.UpsertReading(ctx, &r); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Same timestamp, different values: last writer wins.
	r.SeaLevel = 3.0
	r.ThreatLevel = ThreatHigh
	if err := s.UpsertReading(ctx, &r); err != nil {
		t.Fatalf("second save (upsert): %v", err)
	}

	all, err := s.AllReadings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(all))
	}
	if all[0].SeaLevel != 3.0 {
		t.Errorf("upsert: sea_level = %v, want 3.0", all[0].SeaLevel)
	}
	if all[0].ThreatLevel != ThreatHigh {
		t.Errorf("upsert: threat_level = %q, want %q", all[0].ThreatLevel, ThreatHigh)
	}
}

func TestSQLiteStore_AllReadingsDescending(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	// Insert out of order.
	for _, offset := range []int{5, 1, 9, 3, 7, 0, 2, 8, 4, 6} {
		r := makeReading(base.Add(time.Duration(offset)*time.Hour), 1.0, 2.0, 10.0)
		if err := s.UpsertReading(ctx, &r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.AllReadings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 10 {
		t.Fatalf("got %d rows, want 10", len(all))
	}
	for i := 1; i < len(all); i++ {
		if !all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Errorf("rows %d/%d out of order: %v then %v",
				i-1, i, all[i-1].Timestamp, all[i].Timestamp)
		}
	}
}

func TestSQLiteStore_SubSecondOrdering(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{
		base.Add(500 * time.Millisecond),
		base,
		base.Add(time.Second),
	} {
		r := makeReading(ts, 1.0, 2.0, 10.0)
		if err := s.UpsertReading(ctx, &r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.AllReadings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d rows, want 3", len(all))
	}
	if !all[0].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("newest = %v, want %v", all[0].Timestamp, base.Add(time.Second))
	}
	if !all[1].Timestamp.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("middle = %v, want %v", all[1].Timestamp, base.Add(500*time.Millisecond))
	}
}

func TestSQLiteStore_EmptyStore(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	all, err := s.AllReadings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty slice, got %d rows", len(all))
	}

	latest, err := s.LatestReading(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Error("expected nil latest for empty store")
	}

	count, err := s.CountReadings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestSQLiteStore_DataRange(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	// Empty store.
	oldest, newest, err := s.DataRange(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !oldest.IsZero() || !newest.IsZero() {
		t.Error("expected zero times for empty store")
	}

	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		r := makeReading(base.Add(time.Duration(i)*time.Hour), 1.0, 2.0, 10.0)
		if err := s.UpsertReading(ctx, &r); err != nil {
			t.Fatal(err)
		}
	}

	oldest, newest, err = s.DataRange(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !oldest.Equal(base) {
		t.Errorf("oldest = %v, want %v", oldest, base)
	}
	if !newest.Equal(base.Add(9 * time.Hour)) {
		t.Errorf("newest = %v, want %v", newest, base.Add(9*time.Hour))
	}
}

func TestSQLiteStore_CountReadings(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		r := makeReading(base.Add(time.Duration(i)*time.Minute), 1.0, 2.0, 10.0)
		if err := s.UpsertReading(ctx, &r); err != nil {
			t.Fatal(err)
		}
	}

	count, err := s.CountReadings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 25 {
		t.Errorf("count = %d, want 25", count)
	}
}

func TestSQLiteStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "perms.db")
	s, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	info, err := os.Stat(dsn)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestThreatLevel_Valid(t *testing.T) {
	for _, level := range []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh} {
		if !level.Valid() {
			t.Errorf("%q should be valid", level)
		}
	}
	if ThreatLevel("critical").Valid() {
		t.Error("unknown level should not be valid")
	}
}
