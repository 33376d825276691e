package scorestore

import (
	"time"

	"github.com/uptrace/bun"
)

// scoreRow is the bun mapping for one immutable submission.
type scoreRow struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	GameID      int64     `bun:"game_id,notnull"`
	Value       int64     `bun:"value,notnull"`
	SubmittedAt time.Time `bun:"submitted_at,notnull"`
}
