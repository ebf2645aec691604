package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed pgmigrations/*.sql
var pgMigrations embed.FS

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a PostgreSQL connection and runs migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "pgmigrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) UpsertReading(ctx context.Context, r *Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (
			timestamp, sea_level, wave_height, wind_speed,
			water_quality, temperature, threat_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(timestamp) DO UPDATE SET
			sea_level=EXCLUDED.sea_level,
			wave_height=EXCLUDED.wave_height,
			wind_speed=EXCLUDED.wind_speed,
			water_quality=EXCLUDED.water_quality,
			temperature=EXCLUDED.temperature,
			threat_level=EXCLUDED.threat_level`,
		r.Timestamp.UTC(),
		r.SeaLevel, r.WaveHeight, r.WindSpeed,
		r.WaterQuality, r.Temperature, string(r.ThreatLevel),
	)
	if err != nil {
		return fmt.Errorf("saving reading: %w", err)
	}
	return nil
}

func (s *PostgresStore) AllReadings(ctx context.Context) ([]Reading, error) {
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

func (s *PostgresStore) LatestReading(ctx context.Context) (*Reading, error) {
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

func (s *PostgresStore) CountReadings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DataRange(ctx context.Context) (oldest, newest time.Time, err error) {
	var oldestRaw, newestRaw *time.Time
	err = s.db.QueryRowContext(ctx, `
		SELECT MIN(timestamp), MAX(timestamp) FROM readings`).Scan(&oldestRaw, &newestRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("querying data range: %w", err)
	}
	if oldestRaw == nil || newestRaw == nil {
		return time.Time{}, time.Time{}, nil
	}
	return *oldestRaw, *newestRaw, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
