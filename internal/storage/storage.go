package storage

import (
	"context"

	"hiddenLiquidity/internal/model"
)

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// LogSource reads persisted log records back by inclusive block range.
type LogSource interface {
	LogsInRange(ctx context.Context, from, to uint64) ([]model.LogRecord, error)
}
