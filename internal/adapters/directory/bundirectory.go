package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/okian/arena/internal/domain/model"
)

// BunDirectory implements Users and Games on a bun-managed database.
type BunDirectory struct {
	DB *bun.DB
}

// New wraps an existing bun connection.
func New(db *bun.DB) *BunDirectory {
	return &BunDirectory{DB: db}
}

// CreateSchema creates the users and games tables. Used by tests and the
// seed tool.
func (d *BunDirectory) CreateSchema(ctx context.Context) error {
	for _, m := range []interface{}{(*userRow)(nil), (*gameRow)(nil)} {
		if _, err := d.DB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create directory tables: %w", err)
		}
	}
	return nil
}

// Username returns the display name for a user id.
func (d *BunDirectory) Username(ctx context.Context, id int64) (string, error) {
	row := new(userRow)
	err := d.DB.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup user %d: %w", id, err)
	}
	return row.Username, nil
}

// EnsureUser inserts the user if absent.
func (d *BunDirectory) EnsureUser(ctx context.Context, id int64, username string) error {
	row := userRow{ID: id, Username: username}
	_, err := d.DB.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", id, err)
	}
	return nil
}

// Name returns the display name for a game id.
func (d *BunDirectory) Name(ctx context.Context, id int64) (string, error) {
	row := new(gameRow)
	err := d.DB.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup game %d: %w", id, err)
	}
	return row.Name, nil
}

// List returns every registered game ordered by id.
func (d *BunDirectory) List(ctx context.Context) ([]model.Game, error) {
	var rows []gameRow
	err := d.DB.NewSelect().Model(&rows).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]model.Game, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Game{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// Count returns the number of registered games.
func (d *BunDirectory) Count(ctx context.Context) (int64, error) {
	n, err := d.DB.NewSelect().Model((*gameRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return int64(n), nil
}

// EnsureGame inserts the game if absent.
func (d *BunDirectory) EnsureGame(ctx context.Context, id int64, name string) error {
	row := gameRow{ID: id, Name: name}
	_, err := d.DB.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure game %d: %w", id, err)
	}
	return nil
}
