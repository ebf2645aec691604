package chatbot

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// mockStore implements store.Store over a fixed slice, newest first.
type mockStore struct {
	readings []store.Reading
	err      error
}

func (m *mockStore) UpsertReading(_ context.Context, r *store.Reading) error { return nil }

func (m *mockStore) AllReadings(_ context.Context) ([]store.Reading, error) {
	return m.readings, m.err
}

func (m *mockStore) LatestReading(_ context.Context) (*store.Reading, error) {
	if len(m.readings) == 0 {
		return nil, nil
	}
	return &m.readings[0], nil
}

func (m *mockStore) CountReadings(_ context.Context) (int, error) { return len(m.readings), nil }

func (m *mockStore) DataRange(_ context.Context) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, nil
}

func (m *mockStore) DB() *sql.DB  { return nil }
func (m *mockStore) Close() error { return nil }

func history(n int, latest store.Reading) []store.Reading {
	readings := []store.Reading{latest}
	ts := latest.Timestamp
	for i := 1; i < n; i++ {
		r := latest
		r.Timestamp = ts.Add(-time.Duration(i) * time.Hour)
		r.ThreatLevel = store.ThreatLow
		readings = append(readings, r)
	}
	return readings
}

func TestRespond_Greeting(t *testing.T) {
	bot := NewResponder(&mockStore{})
	got, err := bot.Respond(context.Background(), "Hello there")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Hello") {
		t.Errorf("unexpected response: %q", got)
	}
}

func TestRespond_StatusWithData(t *testing.T) {
	latest := store.Reading{
		Timestamp:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		SeaLevel:    1.23,
		WindSpeed:   18,
		ThreatLevel: store.ThreatMedium,
	}
	bot := NewResponder(&mockStore{readings: history(5, latest)})

	got, err := bot.Respond(context.Background(), "what's the current status?")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1.23", "18", "MEDIUM"} {
		if !strings.Contains(got, want) {
			t.Errorf("response %q missing %q", got, want)
		}
	}
}

func TestRespond_StatusWithoutData(t *testing.T) {
	bot := NewResponder(&mockStore{})
	got, err := bot.Respond(context.Background(), "status report")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "don't have any real-time data") {
		t.Errorf("unexpected response: %q", got)
	}
}

func TestRespond_ThreatLevels(t *testing.T) {
	tests := []struct {
		level store.ThreatLevel
		want  string
	}{
		{store.ThreatHigh, "HIGH"},
		{store.ThreatLow, "considered low"},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			latest := store.Reading{
				Timestamp:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
				ThreatLevel: tt.level,
			}
			bot := NewResponder(&mockStore{readings: history(3, latest)})
			got, err := bot.Respond(context.Background(), "any danger right now?")
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("response %q missing %q", got, tt.want)
			}
		})
	}
}

func TestRespond_PredictNeedsEnoughData(t *testing.T) {
	latest := store.Reading{
		Timestamp: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		SeaLevel:  1.2,
	}
	bot := NewResponder(&mockStore{readings: history(5, latest)})

	got, err := bot.Respond(context.Background(), "forecast please")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "at least 20 data points") {
		t.Errorf("unexpected response: %q", got)
	}
}

func TestRespond_PredictUsesMovingAverage(t *testing.T) {
	latest := store.Reading{
		Timestamp: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		SeaLevel:  1.2,
	}
	bot := NewResponder(&mockStore{readings: history(30, latest)})

	got, err := bot.Respond(context.Background(), "forecast please")
	if err != nil {
		t.Fatal(err)
	}
	// All sea levels are 1.2, so the prediction is 1.2 plus at most
	// 0.05 of jitter.
	const prefix = "predicted to be around "
	i := strings.Index(got, prefix)
	if i < 0 {
		t.Fatalf("unexpected response: %q", got)
	}
	num := got[i+len(prefix):]
	num = strings.TrimSuffix(num[:strings.Index(num, "m")], "m")
	pred, err := strconv.ParseFloat(num, 64)
	if err != nil {
		t.Fatalf("parsing prediction from %q: %v", got, err)
	}
	if pred < 1.1 || pred > 1.3 {
		t.Errorf("prediction %v outside jitter range of 1.2", pred)
	}
}

func TestRespond_AnomaliesCountsHighReadings(t *testing.T) {
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	readings := []store.Reading{
		{Timestamp: ts, ThreatLevel: store.ThreatHigh},
		{Timestamp: ts.Add(-time.Hour), ThreatLevel: store.ThreatLow},
		{Timestamp: ts.Add(-2 * time.Hour), ThreatLevel: store.ThreatHigh},
	}
	bot := NewResponder(&mockStore{readings: readings})

	got, err := bot.Respond(context.Background(), "any anomalies lately?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "2 anomalies") {
		t.Errorf("unexpected response: %q", got)
	}
	if !strings.Contains(got, "2024-06-15T12:00:00") {
		t.Errorf("response %q missing most recent anomaly time", got)
	}
}

func TestRespond_NoAnomalies(t *testing.T) {
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	bot := NewResponder(&mockStore{readings: history(5, store.Reading{Timestamp: ts, ThreatLevel: store.ThreatLow})})

	got, err := bot.Respond(context.Background(), "show me anomalies")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "No significant anomalies") {
		t.Errorf("unexpected response: %q", got)
	}
}

func TestRespond_Fallback(t *testing.T) {
	bot := NewResponder(&mockStore{})
	got, err := bot.Respond(context.Background(), "make me a sandwich")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "I don't understand") {
		t.Errorf("unexpected response: %q", got)
	}
}

func TestRespond_StoreErrorSurfaces(t *testing.T) {
	bot := NewResponder(&mockStore{err: errors.New("db gone")})
	_, err := bot.Respond(context.Background(), "status")
	if err == nil {
		t.Fatal("expected error")
	}
}
