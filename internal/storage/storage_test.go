package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/model"
)

func record(block, index uint64) model.LogRecord {
	return model.LogRecord{
		ChainID:     31337,
		BlockNumber: block,
		TxHash:      "0xabc",
		LogIndex:    index,
		Topics:      []string{"0x01"},
		Data:        "0x",
	}
}

func TestJsonlStorageRoundTrip(t *testing.T) {
	s := NewJsonlStorage(filepath.Join(t.TempDir(), "nested", "logs.jsonl"))
	ctx := context.Background()

	empty, err := s.ReadLogs()
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, s.PutLogBatch(ctx, []model.LogRecord{record(1, 0), record(1, 1)}))
	require.NoError(t, s.PutLogBatch(ctx, nil))
	require.NoError(t, s.PutLogBatch(ctx, []model.LogRecord{record(3, 0)}))

	all, err := s.ReadLogs()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "1:0xabc:1", all[1].Key())

	ranged, err := s.LogsInRange(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	require.Equal(t, uint64(3), ranged[0].BlockNumber)
}

func TestJsonlStorageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"block_number\":1}\nnot json\n"), 0o644))

	_, err := NewJsonlStorage(path).ReadLogs()
	require.ErrorContains(t, err, "line 2")
}

func TestSnapshotStore(t *testing.T) {
	s := &SnapshotStore{Path: filepath.Join(t.TempDir(), "state", "world.json")}

	var got map[string]int
	ok, err := s.Load(&got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Save(map[string]int{"block": 7}))
	ok, err = s.Load(&got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, got["block"])

	_, err = os.Stat(s.Path + ".tmp")
	require.True(t, os.IsNotExist(err))

	require.NoError(t, s.Remove())
	require.NoError(t, s.Remove())
	ok, err = s.Load(&got)
	require.NoError(t, err)
	require.False(t, ok)
}
