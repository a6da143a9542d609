package tracking

import (
	"context"
)

// Store records deployment runs. SaveInProgress acquires the environment's deployment lock;
// Complete and Fail finish the record and release the lock.
type Store interface {
	SaveInProgress(ctx context.Context, record *Record) error
	Complete(ctx context.Context, record *Record) error
	Fail(ctx context.Context, record *Record, failedStep, errorMessage string) error
	Latest(ctx context.Context, environment string, limit int32) ([]EnvironmentIndex, error)
}
