package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout is fixed-width so lexicographic order of stored timestamps
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database, sets file permissions, and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Set pragmas for performance and safety.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	// Set file permissions to 0600.
	if err := os.Chmod(dsn, 0600); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("setting file permissions: %w", err)
	}

	// Run migrations.
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) UpsertReading(ctx context.Context, r *Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (
			timestamp, sea_level, wave_height, wind_speed,
			water_quality, temperature, threat_level
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp) DO UPDATE SET
			sea_level=excluded.sea_level,
			wave_height=excluded.wave_height,
			wind_speed=excluded.wind_speed,
			water_quality=excluded.water_quality,
			temperature=excluded.temperature,
			threat_level=excluded.threat_level`,
		r.Timestamp.UTC().Format(timeLayout),
		r.SeaLevel, r.WaveHeight, r.WindSpeed,
		r.WaterQuality, r.Temperature, string(r.ThreatLevel),
	)
	if err != nil {
		return fmt.Errorf("saving reading: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AllReadings(ctx context.Context) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, sea_level, wave_height, wind_speed,
			water_quality, temperature, threat_level
		FROM readings
		ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanReadings(rows)
}

func (s *SQLiteStore) LatestReading(ctx context.Context) (*Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT timestamp, sea_level, wave_height, wind_speed,
			water_quality, temperature, threat_level
		FROM readings
		ORDER BY timestamp DESC
		LIMIT 1`)

	r, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest reading: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) CountReadings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) DataRange(ctx context.Context) (oldest, newest time.Time, err error) {
	var oldestRaw, newestRaw *string
	err = s.db.QueryRowContext(ctx, `
		SELECT MIN(timestamp), MAX(timestamp) FROM readings`).Scan(&oldestRaw, &newestRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("querying data range: %w", err)
	}
	if oldestRaw == nil || newestRaw == nil {
		return time.Time{}, time.Time{}, nil
	}

	oldest, err = parseTimestamp(*oldestRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing oldest: %w", err)
	}
	newest, err = parseTimestamp(*newestRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing newest: %w", err)
	}
	return oldest, newest, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Shared helpers ---

type scanner interface {
	Scan(dest ...any) error
}

// parseTimestamp handles both time.Time and string timestamp values from SQLite.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{
			timeLayout,
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05Z",
			"2006-01-02 15:04:05+00:00",
			"2006-01-02 15:04:05 +0000 UTC",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type: %T", v)
	}
}

func scanReading(row scanner) (*Reading, error) {
	var r Reading
	var tsRaw any
	var threat string
	err := row.Scan(
		&tsRaw, &r.SeaLevel, &r.WaveHeight, &r.WindSpeed,
		&r.WaterQuality, &r.Temperature, &threat,
	)
	if err != nil {
		return nil, err
	}
	r.Timestamp, err = parseTimestamp(tsRaw)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	r.ThreatLevel = ThreatLevel(threat)
	return &r, nil
}

func scanReadings(rows *sql.Rows) ([]Reading, error) {
	result := []Reading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}
