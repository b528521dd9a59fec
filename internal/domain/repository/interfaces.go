package repository

import (
	"context"
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// TransactionStore gives read-only access to a project's cleaned transactions.
type TransactionStore interface {
	// FetchTransactions returns every row of the project with paid_at in
	// [from, to) that passes the filters.
	FetchTransactions(ctx context.Context, projectID int64, from, to time.Time, filters models.Filters) ([]models.Transaction, error)
	// FirstTransactionDate returns the earliest paid_at of the project;
	// ok is false when the project has no transactions.
	FirstTransactionDate(ctx context.Context, projectID int64) (first time.Time, ok bool, err error)
	Health(ctx context.Context) error
}

// Publisher sends a JSON payload to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// JobQueue schedules background work.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCacheResult(cache string, hit bool)
	RecordSnapshotRows(rows int)
}
