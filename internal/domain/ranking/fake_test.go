package ranking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/model"
)

// fakeScores is an in-memory scorestore.Store with the same ordering
// semantics as the SQL implementation.
type fakeScores struct {
	mu          sync.Mutex
	rows        []model.Score
	nextID      int64
	failInsert  bool
	failQueries bool
}

func newFakeScores() *fakeScores {
	return &fakeScores{}
}

func (f *fakeScores) add(userID, gameID, value int64) model.Score {
	s, _ := f.Insert(context.Background(), userID, gameID, value)
	return s
}

func (f *fakeScores) Insert(ctx context.Context, userID, gameID, value int64) (model.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return model.Score{}, scorestore.ErrPersistence
	}
	f.nextID++
	s := model.Score{ID: f.nextID, UserID: userID, GameID: gameID, Value: value, SubmittedAt: time.Now().UTC()}
	f.rows = append(f.rows, s)
	return s, nil
}

func (f *fakeScores) inScope(s model.Score, key model.LeaderboardKey) bool {
	return key.IsGlobal() || s.GameID == key.GameID()
}

func (f *fakeScores) bests(key model.LeaderboardKey) []scorestore.BestRow {
	best := make(map[int64]int64)
	for _, s := range f.rows {
		if !f.inScope(s, key) {
			continue
		}
		if old, ok := best[s.UserID]; !ok || s.Value > old {
			best[s.UserID] = s.Value
		}
	}
	out := make([]scorestore.BestRow, 0, len(best))
	for id, v := range best {
		out = append(out, scorestore.BestRow{UserID: id, Best: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Best != out[j].Best {
			return out[i].Best > out[j].Best
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (f *fakeScores) BestPerUser(ctx context.Context, key model.LeaderboardKey, limit int) ([]scorestore.BestRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return nil, scorestore.ErrPersistence
	}
	out := f.bests(key)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeScores) RankOfUser(ctx context.Context, key model.LeaderboardKey, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return 0, scorestore.ErrPersistence
	}
	for i, row := range f.bests(key) {
		if row.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, scorestore.ErrNotFound
}

func (f *fakeScores) UserStats(ctx context.Context, key model.LeaderboardKey, userID int64) (model.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return model.UserStats{}, scorestore.ErrPersistence
	}
	var stats model.UserStats
	var sum int64
	for _, s := range f.rows {
		if s.UserID != userID || !f.inScope(s, key) {
			continue
		}
		stats.Count++
		sum += s.Value
		if s.Value > stats.Best {
			stats.Best = s.Value
		}
	}
	if stats.Count == 0 {
		return model.UserStats{}, scorestore.ErrNotFound
	}
	stats.Average = float64(sum) / float64(stats.Count)
	return stats, nil
}

func (f *fakeScores) DistinctPlayerCount(ctx context.Context, key model.LeaderboardKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return 0, scorestore.ErrPersistence
	}
	seen := make(map[int64]struct{})
	for _, s := range f.rows {
		if f.inScope(s, key) {
			seen[s.UserID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (f *fakeScores) ScoreCount(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return 0, scorestore.ErrPersistence
	}
	return int64(len(f.rows)), nil
}

func (f *fakeScores) TopPerformers(ctx context.Context, start, end time.Time, limit int) ([]scorestore.PerformerRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return nil, scorestore.ErrPersistence
	}
	type agg struct {
		best  int64
		count int64
		sum   int64
	}
	byUser := make(map[int64]*agg)
	for _, s := range f.rows {
		if s.SubmittedAt.Before(start) || !s.SubmittedAt.Before(end) {
			continue
		}
		a, ok := byUser[s.UserID]
		if !ok {
			a = &agg{}
			byUser[s.UserID] = a
		}
		a.count++
		a.sum += s.Value
		if s.Value > a.best {
			a.best = s.Value
		}
	}
	out := make([]scorestore.PerformerRow, 0, len(byUser))
	for id, a := range byUser {
		out = append(out, scorestore.PerformerRow{
			UserID:  id,
			Best:    a.best,
			Count:   a.count,
			Average: float64(a.sum) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Best != out[j].Best {
			return out[i].Best > out[j].Best
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeScores) UserScores(ctx context.Context, userID, gameID int64, limit int) ([]model.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return nil, scorestore.ErrPersistence
	}
	var out []model.Score
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		s := f.rows[i]
		if s.UserID == userID && (gameID == 0 || s.GameID == gameID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeScores) RecentScores(ctx context.Context, limit int) ([]model.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return nil, scorestore.ErrPersistence
	}
	var out []model.Score
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

func (f *fakeScores) HasSubmissionBetween(ctx context.Context, userID, gameID int64, start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQueries {
		return false, scorestore.ErrPersistence
	}
	for _, s := range f.rows {
		if s.UserID == userID && s.GameID == gameID &&
			!s.SubmittedAt.Before(start) && s.SubmittedAt.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

// fakeUsers is an in-memory directory.Users.
type fakeUsers struct {
	mu    sync.Mutex
	names map[int64]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{names: make(map[int64]string)}
}

func (f *fakeUsers) Username(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[id]
	if !ok {
		return "", errors.New("not found")
	}
	return name, nil
}

func (f *fakeUsers) EnsureUser(ctx context.Context, id int64, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.names[id]; !ok {
		f.names[id] = username
	}
	return nil
}

// fakeGames is an in-memory directory.Games.
type fakeGames struct {
	mu    sync.Mutex
	games map[int64]string
}

func newFakeGames() *fakeGames {
	return &fakeGames{games: make(map[int64]string)}
}

func (f *fakeGames) Name(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.games[id]
	if !ok {
		return "", errors.New("not found")
	}
	return name, nil
}

func (f *fakeGames) List(ctx context.Context) ([]model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Game, 0, len(f.games))
	for id, name := range f.games {
		out = append(out, model.Game{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGames) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.games)), nil
}

func (f *fakeGames) EnsureGame(ctx context.Context, id int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.games[id]; !ok {
		f.games[id] = name
	}
	return nil
}

// captureQueue records enqueued mirror jobs.
type captureQueue struct {
	mu   sync.Mutex
	jobs []queue.Mirror
	full bool
}

func (q *captureQueue) Enqueue(ctx context.Context, m queue.Mirror) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, m)
	return true
}

func (q *captureQueue) all() []queue.Mirror {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]queue.Mirror, len(q.jobs))
	copy(out, q.jobs)
	return out
}
