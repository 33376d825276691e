package rankstore

import (
	"context"
	"sync"
	"time"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// One treap per leaderboard key. Ordering: value DESC, then userID ASC.
// The BST comparator treats "less" as "ranks earlier", so an in-order
// traversal produces the leaderboard from best to worst. Subtree sizes
// make Rank and RangeByPosition O(log n) order-statistic walks.

// treap node
type node struct {
	userID int64
	value  int64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aValue, aID) ranks earlier than (bValue, bID).
func less(aValue, aID, bValue, bID int64) bool {
	if aValue != bValue {
		return aValue > bValue // higher value ranks earlier
	}
	return aID < bID // tie-break: user id ascending
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// valueToPriority keeps higher values near the root. The offset maps the
// signed value range onto uint64 so negative values still order below.
func valueToPriority(value int64) uint64 {
	const offset = uint64(1) << 63
	return uint64(value) + offset
}

func insert(n *node, userID, value int64) *node {
	if n == nil {
		return &node{userID: userID, value: value, prio: valueToPriority(value), size: 1}
	}
	if less(value, userID, n.value, n.userID) {
		n.left = insert(n.left, userID, value)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, userID, value)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, userID, value int64) *node {
	if n == nil {
		return nil
	}
	if value == n.value && userID == n.userID {
		// Merge children by rotating the higher priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, userID, value)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, userID, value)
		}
	} else if less(value, userID, n.value, n.userID) {
		n.left = deleteNode(n.left, userID, value)
	} else {
		n.right = deleteNode(n.right, userID, value)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based position of (userID, value), or 0 when the
// node is absent. O(log n) via subtree sizes.
func rankOf(n *node, userID, value int64) int {
	rank := 0
	for n != nil {
		if value == n.value && userID == n.userID {
			return rank + nsize(n.left) + 1
		}
		if less(value, userID, n.value, n.userID) {
			n = n.left
		} else {
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectRange appends members at 0-based inclusive indexes [lo, hi] in
// rank order.
func collectRange(n *node, lo, hi int, out *[]Member) {
	if n == nil || hi < 0 || lo > hi {
		return
	}
	if lo < 0 {
		lo = 0
	}
	ls := nsize(n.left)
	if lo < ls {
		right := hi
		if right > ls-1 {
			right = ls - 1
		}
		collectRange(n.left, lo, right, out)
	}
	if lo <= ls && ls <= hi {
		*out = append(*out, Member{UserID: n.userID, Value: n.value})
	}
	if hi > ls {
		collectRange(n.right, lo-ls-1, hi-ls-1, out)
	}
}

// treapSet is one leaderboard key's ordered set.
type treapSet struct {
	root *node
	byID map[int64]int64 // current value per user
}

func newTreapSet() *treapSet {
	return &treapSet{byID: make(map[int64]int64)}
}

// TreapStore keeps one treap per leaderboard key plus the per-user best
// scalar map, all guarded by a single RWMutex.
type TreapStore struct {
	mu     sync.RWMutex
	sets   map[model.LeaderboardKey]*treapSet
	best   map[int64]int64
	closed bool

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		sets:                  make(map[model.LeaderboardKey]*treapSet),
		best:                  make(map[int64]int64),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)

	return s
}

// startMetricsUpdater starts a background goroutine that publishes the
// global cardinality gauge at the configured interval.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				n := 0
				if set, ok := s.sets[model.GlobalKey()]; ok {
					n = len(set.byID)
				}
				s.mu.RUnlock()
				metrics.UpdateCachedPlayers(n)
			}
		}
	}()
}

// Close shuts down the store. All subsequent operations fail with
// ErrUnavailable; this is also how tests force the cache offline.
func (s *TreapStore) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *TreapStore) set(key model.LeaderboardKey) *treapSet {
	set, ok := s.sets[key]
	if !ok {
		set = newTreapSet()
		s.sets[key] = set
	}
	return set
}

// UpsertIfGreater implements Store.UpsertIfGreater in O(log n) expected time.
func (s *TreapStore) UpsertIfGreater(ctx context.Context, key model.LeaderboardKey, userID, value int64) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		metrics.RecordErrorByComponent("rankstore", "unavailable")
		return false, ErrUnavailable
	}

	set := s.set(key)
	if old, ok := set.byID[userID]; ok {
		if value <= old { // not an improvement
			return false, nil
		}
		set.root = deleteNode(set.root, userID, old)
	}
	set.byID[userID] = value
	set.root = insert(set.root, userID, value)
	return true, nil
}

// Value returns the cached value for a member.
func (s *TreapStore) Value(ctx context.Context, key model.LeaderboardKey, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrUnavailable
	}
	set, ok := s.sets[key]
	if !ok {
		return 0, ErrNotFound
	}
	v, ok := set.byID[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

// Rank returns the 1-based position of a member in O(log n).
func (s *TreapStore) Rank(ctx context.Context, key model.LeaderboardKey, userID int64) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrUnavailable
	}
	set, ok := s.sets[key]
	if !ok {
		return 0, ErrNotFound
	}
	v, ok := set.byID[userID]
	if !ok {
		return 0, ErrNotFound
	}
	r := rankOf(set.root, userID, v)
	if r == 0 {
		return 0, ErrNotFound
	}
	return r, nil
}

// TopN returns up to n members ordered best first.
func (s *TreapStore) TopN(ctx context.Context, key model.LeaderboardKey, n int) ([]Member, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrUnavailable
	}
	set, ok := s.sets[key]
	if !ok {
		return []Member{}, nil
	}
	out := make([]Member, 0, n)
	collectRange(set.root, 0, n-1, &out)
	return out, nil
}

// RangeByPosition returns members at 1-based inclusive positions [start, end].
func (s *TreapStore) RangeByPosition(ctx context.Context, key model.LeaderboardKey, startPos, endPos int) ([]Member, error) {
	if startPos < 1 || endPos < startPos {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrUnavailable
	}
	set, ok := s.sets[key]
	if !ok {
		return []Member{}, nil
	}
	out := make([]Member, 0, endPos-startPos+1)
	collectRange(set.root, startPos-1, endPos-1, &out)
	return out, nil
}

// Cardinality returns the number of members under the key.
func (s *TreapStore) Cardinality(ctx context.Context, key model.LeaderboardKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrUnavailable
	}
	set, ok := s.sets[key]
	if !ok {
		return 0, nil
	}
	return len(set.byID), nil
}

// Remove deletes one member from the key's set.
func (s *TreapStore) Remove(ctx context.Context, key model.LeaderboardKey, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	v, ok := set.byID[userID]
	if !ok {
		return nil
	}
	set.root = deleteNode(set.root, userID, v)
	delete(set.byID, userID)
	return nil
}

// Clear drops one key's set.
func (s *TreapStore) Clear(ctx context.Context, key model.LeaderboardKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}
	delete(s.sets, key)
	return nil
}

// ClearAll drops every set and the per-user best scalars.
func (s *TreapStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}
	s.sets = make(map[model.LeaderboardKey]*treapSet)
	s.best = make(map[int64]int64)
	return nil
}

// UpsertBest raises the per-user best scalar, never lowering it.
func (s *TreapStore) UpsertBest(ctx context.Context, userID, value int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrUnavailable
	}
	if old, ok := s.best[userID]; ok && value <= old {
		return false, nil
	}
	s.best[userID] = value
	return true, nil
}

// Best returns the per-user best scalar.
func (s *TreapStore) Best(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrUnavailable
	}
	v, ok := s.best[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}
