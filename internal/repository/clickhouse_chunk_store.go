package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/cache"
	ch "github.com/danielhafezi/BetaAnalysisTool/pkg/clickhouse"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
)

const chunkTable = "beta_chunks"

var chunkSchema = []string{
	`CREATE TABLE IF NOT EXISTS beta_chunks (
		chunk_key  String,
		instrument String,
		ts         DateTime64(3, 'UTC'),
		open       Float64,
		high       Float64,
		low        Float64,
		close      Float64,
		volume     Float64
	) ENGINE = MergeTree()
	ORDER BY (chunk_key, ts)`,
}

// ClickHouseChunkStore persists candle chunks in a single MergeTree table,
// one row per candle, keyed by the span's chunk key.
type ClickHouseChunkStore struct {
	client *ch.Client
	l      *applogger.Logger
	now    func() time.Time
}

func NewClickHouseChunkStore(ctx context.Context, client *ch.Client, l *applogger.Logger) (*ClickHouseChunkStore, error) {
	if err := client.InitSchema(ctx, chunkSchema); err != nil {
		return nil, err
	}
	return &ClickHouseChunkStore{client: client, l: l, now: time.Now}, nil
}

func (s *ClickHouseChunkStore) Get(ctx context.Context, instrument string, start, end time.Time) ([]models.Candle, bool, error) {
	key := cache.ChunkKey(instrument, start, end)

	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT ts, open, high, low, close, volume
		 FROM `+chunkTable+`
		 WHERE chunk_key = ?
		 ORDER BY ts`, key)
	if err != nil {
		return nil, false, fmt.Errorf("chunk query: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, false, fmt.Errorf("chunk scan: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("chunk rows: %w", err)
	}
	if len(candles) == 0 {
		return nil, false, nil
	}

	if candles[0].Timestamp.After(start) || candles[len(candles)-1].Timestamp.Before(end) {
		return nil, false, nil
	}
	return cache.SliceCandles(candles, start, end), true, nil
}

func (s *ClickHouseChunkStore) Put(ctx context.Context, instrument string, start, end time.Time, candles []models.Candle) error {
	key := cache.ChunkKey(instrument, start, end)

	tx, err := s.client.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("chunk tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+chunkTable+` (chunk_key, instrument, ts, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("chunk prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, key, instrument, c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("chunk insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chunk commit: %w", err)
	}
	return nil
}

// Sweep deletes whole chunks whose key-embedded date is older than maxAge.
// Eviction is by key date, not row timestamp, so a chunk disappears as a
// unit the same way the file backend evicts.
func (s *ClickHouseChunkStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)

	rows, err := s.client.DB().QueryContext(ctx, `SELECT DISTINCT chunk_key FROM `+chunkTable)
	if err != nil {
		return 0, fmt.Errorf("chunk keys: %w", err)
	}
	var stale []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return 0, fmt.Errorf("chunk key scan: %w", err)
		}
		date, ok := cache.ChunkKeyDate(key)
		if !ok {
			continue
		}
		if date.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("chunk keys: %w", err)
	}

	for _, key := range stale {
		if _, err := s.client.DB().ExecContext(ctx,
			`ALTER TABLE `+chunkTable+` DELETE WHERE chunk_key = ?`, key); err != nil {
			return 0, fmt.Errorf("chunk delete %s: %w", key, err)
		}
	}
	if len(stale) > 0 && s.l != nil {
		s.l.Info("swept stale chunks", applogger.Int("removed", len(stale)))
	}
	return len(stale), nil
}

func (s *ClickHouseChunkStore) Close() error {
	return s.client.Close()
}
