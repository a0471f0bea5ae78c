package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hiddenLiquidity/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchange_logs (
	chain_id BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	block_hash TEXT NOT NULL,
	tx_hash TEXT NOT NULL,
	tx_index BIGINT NOT NULL,
	log_index BIGINT NOT NULL,
	address TEXT NOT NULL,
	topics TEXT[] NOT NULL,
	data TEXT NOT NULL,
	removed BOOLEAN NOT NULL DEFAULT false,
	block_ts BIGINT NOT NULL,
	fhe_cost BIGINT NOT NULL DEFAULT 0,
	ingested_at TEXT NOT NULL,
	PRIMARY KEY (tx_hash, log_index)
);
CREATE INDEX IF NOT EXISTS exchange_logs_block_idx ON exchange_logs (chain_id, block_number);

CREATE TABLE IF NOT EXISTS pool_snapshots (
	chain_id BIGINT NOT NULL,
	pool TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	exchange TEXT NOT NULL,
	tx_hash TEXT NOT NULL,
	reserve_base TEXT NOT NULL,
	reserve_eth TEXT NOT NULL,
	block_ts BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool, block_number)
);

CREATE TABLE IF NOT EXISTS pool_window_activity (
	chain_id BIGINT NOT NULL,
	pool TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts TIMESTAMPTZ NOT NULL,
	window_end_ts TIMESTAMPTZ NOT NULL,
	swap_count BIGINT NOT NULL,
	add_count BIGINT NOT NULL,
	remove_count BIGINT NOT NULL,
	traders BIGINT NOT NULL,
	providers BIGINT NOT NULL,
	last_block BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS indexer_state (
	name TEXT PRIMARY KEY,
	last_processed BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for exchange logs, pool snapshots and activity.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutLogBatch inserts log records. Records already stored are left untouched.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, lr := range logs {
		batch.Queue(`
			INSERT INTO exchange_logs (
				chain_id, block_number, block_hash, tx_hash, tx_index, log_index,
				address, topics, data, removed, block_ts, fhe_cost, ingested_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			int64(lr.ChainID),
			int64(lr.BlockNumber),
			lr.BlockHash,
			lr.TxHash,
			int64(lr.TxIndex),
			int64(lr.LogIndex),
			lr.Address,
			lr.Topics,
			lr.Data,
			lr.Removed,
			int64(lr.Timestamp),
			int64(lr.FHECost),
			lr.IngestedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range logs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
	}
	return nil
}

// LogsInRange returns stored logs of blocks [from, to] in chain order.
func (s *Store) LogsInRange(ctx context.Context, from, to uint64) ([]model.LogRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, block_number, block_hash, tx_hash, tx_index, log_index,
			address, topics, data, removed, block_ts, fhe_cost, ingested_at
		FROM exchange_logs
		WHERE block_number BETWEEN $1 AND $2
		ORDER BY block_number, tx_index, log_index
	`, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []model.LogRecord
	for rows.Next() {
		var lr model.LogRecord
		var chainID, block, txIndex, logIndex, ts, fheCost int64
		if err := rows.Scan(&chainID, &block, &lr.BlockHash, &lr.TxHash, &txIndex, &logIndex,
			&lr.Address, &lr.Topics, &lr.Data, &lr.Removed, &ts, &fheCost, &lr.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		lr.ChainID = uint64(chainID)
		lr.BlockNumber = uint64(block)
		lr.TxIndex = uint64(txIndex)
		lr.LogIndex = uint64(logIndex)
		lr.Timestamp = uint64(ts)
		lr.FHECost = uint64(fheCost)
		if lr.Topics == nil {
			lr.Topics = []string{}
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// UpsertPoolSnapshots records reserve handles per pool and block.
func (s *Store) UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				chain_id, pool, block_number, exchange, tx_hash, reserve_base, reserve_eth, block_ts
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (chain_id, pool, block_number)
			DO UPDATE SET
				tx_hash = EXCLUDED.tx_hash,
				reserve_base = EXCLUDED.reserve_base,
				reserve_eth = EXCLUDED.reserve_eth,
				block_ts = EXCLUDED.block_ts
		`,
			int64(snap.ChainID),
			snap.Pool,
			int64(snap.BlockNumber),
			snap.Exchange,
			snap.TxHash,
			snap.ReserveBase,
			snap.ReserveEth,
			int64(snap.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertActivity inserts or updates window activity counts.
func (s *Store) UpsertActivity(ctx context.Context, activity []model.PoolWindowActivity) error {
	if len(activity) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range activity {
		batch.Queue(`
			INSERT INTO pool_window_activity (
				chain_id, pool, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, add_count, remove_count, traders, providers, last_block,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (chain_id, pool, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				add_count = EXCLUDED.add_count,
				remove_count = EXCLUDED.remove_count,
				traders = EXCLUDED.traders,
				providers = EXCLUDED.providers,
				last_block = GREATEST(pool_window_activity.last_block, EXCLUDED.last_block),
				updated_at = now()
		`,
			int64(a.ChainID),
			a.Pool,
			a.WindowSizeSecs,
			a.WindowStart,
			a.WindowEnd,
			int64(a.SwapCount),
			int64(a.AddCount),
			int64(a.RemoveCount),
			int64(a.Traders),
			int64(a.Providers),
			int64(a.LastBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range activity {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed marker for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts the last processed marker for a name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	return err
}

// ActivityStateName names the aggregation progress marker of one chain and window size.
func ActivityStateName(chainID, windowSeconds uint64) string {
	return fmt.Sprintf("activity:%d:%d", chainID, windowSeconds)
}

// Reset deletes everything recorded for chainID. A redeployment restarts block numbers
// and transaction hashes, so rows of the previous deployment would shadow new ones.
func (s *Store) Reset(ctx context.Context, chainID uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"exchange_logs", "pool_snapshots", "pool_window_activity"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE chain_id=$1", int64(chainID)); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM indexer_state WHERE name LIKE $1`, fmt.Sprintf("activity:%d:%%", chainID)); err != nil {
		return fmt.Errorf("reset indexer_state: %w", err)
	}
	return tx.Commit(ctx)
}
