package domain

import "context"

// LaunchHistory persists launch records. Implementations must append only.
type LaunchHistory interface {
	// Record stores one launch. Callers treat failures as non-fatal.
	Record(ctx context.Context, rec LaunchRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]LaunchRecord, error)
}
