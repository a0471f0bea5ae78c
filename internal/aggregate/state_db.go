package aggregate

import (
	"context"

	"hiddenLiquidity/internal/storage/postgres"
)

// DBStateStore keeps aggregation progress in the indexer_state table, one row per chain
// and window size.
type DBStateStore struct {
	store *postgres.Store
	name  string
}

func NewDBStateStore(store *postgres.Store, chainID, windowSeconds uint64) *DBStateStore {
	return &DBStateStore{store: store, name: postgres.ActivityStateName(chainID, windowSeconds)}
}

func (s *DBStateStore) Name() string {
	return s.name
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s.store == nil {
		return 0, false, nil
	}
	return s.store.LoadState(ctx, s.name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveState(ctx, s.name, ts)
}
