package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/candlecast/models"
)

// DB is a PostgreSQL-backed candle, history and weight store
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string
func (p ConnectionParams) DSN() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, sslMode,
	)
}

// New opens a connection, waits for the server with exponential backoff
// and creates the tables if they don't exist
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second

	ping := func() error {
		if err := db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Str("host", params.Host).Msg("Database not ready, retrying")
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT NOT NULL,
			idx INTEGER NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (symbol, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS prediction_history (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			probability DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			factors JSONB NOT NULL,
			prediction JSONB NOT NULL,
			actual_outcome TEXT,
			correct BOOLEAN,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS prediction_history_seq_idx ON prediction_history (seq)`,
		`CREATE TABLE IF NOT EXISTS model_weights (
			id SMALLINT PRIMARY KEY DEFAULT 1,
			weights JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCandles inserts candles for symbol. Stored candles are never rewritten.
func (db *DB) SaveCandles(ctx context.Context, symbol string, candles []models.Candle) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, idx, open, high, low, close, volume, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, idx) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, c.Index, c.Open, c.High, c.Low, c.Close, c.Volume, c.Timestamp); err != nil {
			return fmt.Errorf("save candle %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

// LoadCandles returns the latest limit candles for symbol ordered by index
func (db *DB) LoadCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT idx, open, high, low, close, volume, ts FROM (
			SELECT idx, open, high, low, close, volume, ts
			FROM candles
			WHERE symbol = $1
			ORDER BY idx DESC
			LIMIT $2
		) latest
		ORDER BY idx ASC
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Index, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Timestamp); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// DeleteCandles removes every candle stored for symbol
func (db *DB) DeleteCandles(ctx context.Context, symbol string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM candles WHERE symbol = $1`, symbol)
	return err
}

// AppendHistory inserts a prediction log entry
func (db *DB) AppendHistory(ctx context.Context, entry models.PredictionHistoryEntry) error {
	factors, err := json.Marshal(entry.Factors)
	if err != nil {
		return err
	}
	prediction, err := json.Marshal(entry.Prediction)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO prediction_history (
			id, symbol, direction, probability, confidence, factors, prediction, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.ID, entry.Prediction.Symbol, string(entry.Prediction.Direction),
		entry.Prediction.Probability, entry.Prediction.Confidence, factors, prediction, entry.Timestamp)
	return err
}

// UpdateOutcome back-fills the realized outcome of a logged prediction
func (db *DB) UpdateOutcome(ctx context.Context, id string, actual models.Direction, correct bool) error {
	res, err := db.ExecContext(ctx, `
		UPDATE prediction_history
		SET actual_outcome = $1, correct = $2
		WHERE id = $3
	`, string(actual), correct, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownPrediction, id)
	}
	return nil
}

// RecentHistory returns the latest limit entries, oldest first
func (db *DB) RecentHistory(ctx context.Context, limit int) ([]models.PredictionHistoryEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, factors, prediction, actual_outcome, correct, created_at FROM (
			SELECT id, seq, factors, prediction, actual_outcome, correct, created_at
			FROM prediction_history
			ORDER BY seq DESC
			LIMIT $1
		) latest
		ORDER BY seq ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PredictionHistoryEntry
	for rows.Next() {
		var (
			e                   models.PredictionHistoryEntry
			factors, prediction []byte
			actual              sql.NullString
			correct             sql.NullBool
		)
		if err := rows.Scan(&e.ID, &factors, &prediction, &actual, &correct, &e.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factors, &e.Factors); err != nil {
			return nil, fmt.Errorf("decode factors of %s: %w", e.ID, err)
		}
		if err := json.Unmarshal(prediction, &e.Prediction); err != nil {
			return nil, fmt.Errorf("decode prediction %s: %w", e.ID, err)
		}
		if actual.Valid && correct.Valid {
			d := models.Direction(actual.String)
			c := correct.Bool
			e.ActualOutcome = &d
			e.Correct = &c
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadWeights returns the saved weight snapshot, if any
func (db *DB) LoadWeights(ctx context.Context) (models.ModelWeights, bool, error) {
	var raw []byte
	err := db.QueryRowContext(ctx, `SELECT weights FROM model_weights WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ModelWeights{}, false, nil
		}
		return models.ModelWeights{}, false, err
	}

	var w models.ModelWeights
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.ModelWeights{}, false, fmt.Errorf("decode weights: %w", err)
	}
	return w, true, nil
}

// SaveWeights stores the weight snapshot, replacing the previous one
func (db *DB) SaveWeights(ctx context.Context, w models.ModelWeights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO model_weights (id, weights, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id)
		DO UPDATE SET weights = EXCLUDED.weights, updated_at = EXCLUDED.updated_at
	`, raw)
	return err
}
