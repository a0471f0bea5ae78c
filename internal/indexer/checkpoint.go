package indexer

import (
	"time"

	"hiddenLiquidity/internal/storage"
)

// Checkpoint tracks the last block whose logs reached storage.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk. A disabled store loads nothing and
// saves nothing.
type CheckpointStore struct {
	file    storage.SnapshotStore
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{file: storage.SnapshotStore{Path: path}, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}
	var cp Checkpoint
	ok, err := c.file.Load(&cp)
	if err != nil || !ok {
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}

func (c *CheckpointStore) Save(lastProcessed uint64) error {
	if !c.enabled {
		return nil
	}
	return c.file.Save(Checkpoint{
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Reset forgets the checkpoint, for a fresh deployment whose blocks restart at one.
func (c *CheckpointStore) Reset() error {
	if !c.enabled {
		return nil
	}
	return c.file.Remove()
}
