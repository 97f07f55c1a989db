package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertSampleSQL = `INSERT INTO status_samples (
        bucket_ts,
        total_score,
        total_completed,
        acceptance_pct,
        active_riders,
        riders,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (bucket_ts) DO UPDATE
    SET
        total_score     = EXCLUDED.total_score,
        total_completed = EXCLUDED.total_completed,
        acceptance_pct  = EXCLUDED.acceptance_pct,
        active_riders   = EXCLUDED.active_riders,
        riders          = EXCLUDED.riders,
        status          = EXCLUDED.status,
        error           = EXCLUDED.error;`

	listSamplesBetweenSQL = `SELECT
        bucket_ts,
        total_score,
        total_completed,
        acceptance_pct,
        active_riders,
        riders,
        status,
        error,
        created_at
    FROM status_samples
    WHERE bucket_ts >= $1
      AND bucket_ts < $2
    ORDER BY bucket_ts;`

	listRecentSamplesSQL = `SELECT
        bucket_ts,
        total_score,
        total_completed,
        acceptance_pct,
        active_riders,
        riders,
        status,
        error,
        created_at
    FROM status_samples
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	countSamplesSQL = `SELECT COUNT(*) FROM status_samples;`

	loadSettingSQL = `SELECT value FROM settings WHERE key = $1;`

	saveSettingSQL = `INSERT INTO settings (key, value, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (key) DO UPDATE
    SET value = EXCLUDED.value,
        updated_at = EXCLUDED.updated_at;`
)

// SampleStore defines operations for status sample persistence.
type SampleStore interface {
	UpsertSample(ctx context.Context, sample StatusSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]StatusSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]StatusSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// Store aggregates access to status samples and the settings slot.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSample persists or updates a status sample keyed by its bucket.
func (s *Store) UpsertSample(ctx context.Context, sample StatusSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if sample.Error != nil {
		errMsg = *sample.Error
	}

	riders := sample.Riders
	if riders == nil {
		riders = json.RawMessage("[]")
	}

	_, execErr := pool.Exec(ctx, upsertSampleSQL,
		sample.Bucket,
		sample.TotalScore,
		sample.TotalCompleted,
		sample.AcceptancePct.String(),
		sample.ActiveRiders,
		[]byte(riders),
		sample.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert status sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]StatusSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]StatusSample, 0)
	for rows.Next() {
		sample, scanErr := scanStatusSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentSamples lists the most recent samples ordered by descending bucket.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]StatusSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]StatusSample, 0, limit)
	for rows.Next() {
		sample, scanErr := scanStatusSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// LoadSetting fetches the raw value stored under key.
func (s *Store) LoadSetting(ctx context.Context, key string) ([]byte, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	var value []byte
	scanErr := pool.QueryRow(ctx, loadSettingSQL, key).Scan(&value)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load setting: %w", scanErr)
	}
	return value, true, nil
}

// SaveSetting upserts the raw value stored under key.
func (s *Store) SaveSetting(ctx context.Context, key string, value []byte) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, saveSettingSQL, key, value); execErr != nil {
		return fmt.Errorf("save setting: %w", execErr)
	}
	return nil
}

func scanStatusSample(rows pgx.Rows) (StatusSample, error) {
	var (
		bucket        time.Time
		totalScore    int
		totalDone     int
		acceptanceStr string
		activeRiders  int
		riders        json.RawMessage
		status        string
		errMsg        sql.NullString
		createdAt     time.Time
	)

	if err := rows.Scan(
		&bucket,
		&totalScore,
		&totalDone,
		&acceptanceStr,
		&activeRiders,
		&riders,
		&status,
		&errMsg,
		&createdAt,
	); err != nil {
		return StatusSample{}, err
	}

	acceptance, err := decimal.NewFromString(acceptanceStr)
	if err != nil {
		return StatusSample{}, fmt.Errorf("parse acceptance pct: %w", err)
	}

	sample := StatusSample{
		Bucket:         bucket,
		TotalScore:     totalScore,
		TotalCompleted: totalDone,
		AcceptancePct:  acceptance,
		ActiveRiders:   activeRiders,
		Riders:         riders,
		Status:         status,
		CreatedAt:      createdAt,
	}
	if errMsg.Valid {
		msg := errMsg.String
		sample.Error = &msg
	}

	return sample, nil
}
