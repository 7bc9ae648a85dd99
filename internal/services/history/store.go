package history

import (
	"context"

	"github.com/sensorgrid/telemetry-relay/internal/model"
)

const (
	// DefaultLimit is the history window a viewer hydrates on subscribe.
	DefaultLimit = 100
	// MaxLimit caps a single retrieval to avoid heavy queries.
	MaxLimit = 1000
)

// Store is append-only persistence of validated readings. Append assigns
// and returns the sequence id; Recent returns the n most recently appended
// readings oldest-first.
type Store interface {
	Append(ctx context.Context, r *model.Reading) (int64, error)
	Recent(ctx context.Context, limit int) ([]model.Reading, error)
}

// ClampLimit normalizes a requested history size: non-positive falls back
// to the default, anything above the cap is clamped.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
