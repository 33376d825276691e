// Package rankstore defines the ordered-set ranking cache and errors.
package rankstore

import (
	"context"

	"github.com/okian/arena/internal/domain/model"
)

// Member is one cached (user, best value) pair within a leaderboard key.
type Member struct {
	UserID int64
	Value  int64
}

// Store provides read/write access to the cached ranking state. Every
// entry is derived from the authoritative score store and safe to drop;
// implementations must be safe for concurrent use by request handlers,
// mirror workers, and the reconciler.
type Store interface {
	// UpsertIfGreater sets the member's value only if no prior value
	// exists or the prior value is lower. It never lowers a value.
	// Returns true when the store changed.
	UpsertIfGreater(ctx context.Context, key model.LeaderboardKey, userID, value int64) (bool, error)

	// Value returns the member's cached value. Returns ErrNotFound when
	// the user is not cached under the key.
	Value(ctx context.Context, key model.LeaderboardKey, userID int64) (int64, error)

	// Rank returns the member's 1-based position, ordered by value
	// descending then user id ascending. Returns ErrNotFound when absent.
	Rank(ctx context.Context, key model.LeaderboardKey, userID int64) (int, error)

	// TopN returns up to n members ordered best first.
	TopN(ctx context.Context, key model.LeaderboardKey, n int) ([]Member, error)

	// RangeByPosition returns members at 1-based inclusive positions
	// [start, end]. A start beyond the population yields an empty slice.
	RangeByPosition(ctx context.Context, key model.LeaderboardKey, start, end int) ([]Member, error)

	// Cardinality returns the number of members under the key.
	Cardinality(ctx context.Context, key model.LeaderboardKey) (int, error)

	// Remove deletes one member from the key's set.
	Remove(ctx context.Context, key model.LeaderboardKey, userID int64) error

	// Clear drops one key's set; ClearAll drops every set and the
	// per-user best scalars. Used by the reconciler before a rebuild.
	Clear(ctx context.Context, key model.LeaderboardKey) error
	ClearAll(ctx context.Context) error

	// UpsertBest and Best maintain the per-user best-score scalar,
	// independent of any leaderboard key.
	UpsertBest(ctx context.Context, userID, value int64) (bool, error)
	Best(ctx context.Context, userID int64) (int64, error)

	// Close shuts the store down; all subsequent operations return
	// ErrUnavailable.
	Close() error
}
