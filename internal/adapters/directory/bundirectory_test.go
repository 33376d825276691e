package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/okian/arena/internal/domain/model"
)

func newTestDirectory(t *testing.T) *BunDirectory {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	dir := New(db)
	require.NoError(t, dir.CreateSchema(context.Background()))
	return dir
}

func TestBunDirectory_Users(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, dir.EnsureUser(ctx, 1, "alice"))

	name, err := dir.Username(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	// Ensure is idempotent and keeps the original name.
	require.NoError(t, dir.EnsureUser(ctx, 1, "other"))
	name, err = dir.Username(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	_, err = dir.Username(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBunDirectory_Games(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, dir.EnsureGame(ctx, 2, "tetris"))
	require.NoError(t, dir.EnsureGame(ctx, 1, "snake"))

	name, err := dir.Name(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "tetris", name)

	_, err = dir.Name(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))

	games, err := dir.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.Game{{ID: 1, Name: "snake"}, {ID: 2, Name: "tetris"}}, games)

	count, err := dir.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
