package directory

import "github.com/uptrace/bun"

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk"`
	Username string `bun:"username,notnull"`
}

type gameRow struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID   int64  `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}
