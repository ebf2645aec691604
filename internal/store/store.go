package store

import (
	"context"
	"database/sql"
	"time"
)

// ThreatLevel classifies how dangerous a reading is.
type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "low"
	ThreatMedium ThreatLevel = "medium"
	ThreatHigh   ThreatLevel = "high"
)

// Valid reports whether t is one of the known threat levels.
func (t ThreatLevel) Valid() bool {
	switch t {
	case ThreatLow, ThreatMedium, ThreatHigh:
		return true
	}
	return false
}

// Reading is a single timestamped set of coastal sensor measurements plus
// the derived threat label. Timestamp is the primary key: a later write
// with the same timestamp replaces the earlier one.
type Reading struct {
	Timestamp    time.Time   `json:"timestamp"`
	SeaLevel     float64     `json:"sea_level"`
	WaveHeight   float64     `json:"wave_height"`
	WindSpeed    float64     `json:"wind_speed"`
	WaterQuality float64     `json:"water_quality"`
	Temperature  float64     `json:"temperature"`
	ThreatLevel  ThreatLevel `json:"threat_level"`
}

// Store defines the interface for reading storage.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	// UpsertReading stores a single reading. Upserts on timestamp:
	// the last writer for a given timestamp wins, and a record is
	// written either completely or not at all.
	UpsertReading(ctx context.Context, r *Reading) error

	// AllReadings retrieves every reading, newest first. An empty
	// store yields an empty slice, not an error.
	AllReadings(ctx context.Context) ([]Reading, error)

	// LatestReading retrieves the most recent reading, or nil if the
	// store is empty.
	LatestReading(ctx context.Context) (*Reading, error)

	// CountReadings returns the total number of stored readings.
	CountReadings(ctx context.Context) (int, error)

	// DataRange returns the oldest and newest reading timestamps.
	// Zero times when the store is empty.
	DataRange(ctx context.Context) (oldest, newest time.Time, err error)

	// DB returns the underlying connection for migration commands.
	DB() *sql.DB

	// Close closes the database connection.
	Close() error
}
