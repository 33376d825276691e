// Package directory resolves user and game identities from the
// relational store. Lookups only decorate ranking responses; a failed
// lookup degrades a label, never a ranking.
package directory

import (
	"context"
	"errors"

	"github.com/okian/arena/internal/domain/model"
)

// ErrNotFound marks an unknown user or game id.
var ErrNotFound = errors.New("not found")

// Users resolves user identities.
type Users interface {
	// Username returns the display name for a user id.
	Username(ctx context.Context, id int64) (string, error)

	// EnsureUser inserts the user if absent. Used by seeding.
	EnsureUser(ctx context.Context, id int64, username string) error
}

// Games resolves game identities and enumerates registered games.
type Games interface {
	// Name returns the display name for a game id.
	Name(ctx context.Context, id int64) (string, error)

	// List returns every registered game.
	List(ctx context.Context) ([]model.Game, error)

	// Count returns the number of registered games.
	Count(ctx context.Context) (int64, error)

	// EnsureGame inserts the game if absent. Used by seeding.
	EnsureGame(ctx context.Context, id int64, name string) error
}
