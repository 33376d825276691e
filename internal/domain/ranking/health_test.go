package ranking

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arena/internal/adapters/rankstore"
	"github.com/okian/arena/internal/domain/model"
)

func TestMonitor_HealthAndStaleness(t *testing.T) {
	Convey("Given a monitor over cache and score store", t, func() {
		ctx := context.Background()
		cache := rankstore.NewTreapStore(ctx)
		defer cache.Close()
		scores := newFakeScores()
		games := newFakeGames()
		rec := NewReconciler(cache, scores, games)
		mon := NewMonitor(cache, scores, games, rec)

		Convey("When the cache answers probes", func() {
			So(mon.IsHealthy(ctx), ShouldBeTrue)
		})

		Convey("When the cache is down", func() {
			So(cache.Close(), ShouldBeNil)
			So(mon.IsHealthy(ctx), ShouldBeFalse)
			So(mon.Stale(ctx), ShouldBeTrue)
		})

		Convey("When the cache holds far fewer players than the store", func() {
			for i := int64(1); i <= 10; i++ {
				scores.add(i, 1, i)
			}
			// Only one player mirrored; 1 < 10/2.
			_, _ = cache.UpsertIfGreater(ctx, model.GlobalKey(), 1, 1)

			So(mon.Stale(ctx), ShouldBeTrue)
		})

		Convey("When the cache tracks the store closely", func() {
			for i := int64(1); i <= 10; i++ {
				scores.add(i, 1, i)
				_, _ = cache.UpsertIfGreater(ctx, model.GlobalKey(), i, i)
			}

			So(mon.Stale(ctx), ShouldBeFalse)
		})
	})
}

func TestMonitor_Statistics(t *testing.T) {
	Convey("Given a populated engine", t, func() {
		ctx := context.Background()
		cache := rankstore.NewTreapStore(ctx)
		defer cache.Close()
		scores := newFakeScores()
		games := newFakeGames()
		rec := NewReconciler(cache, scores, games)
		mon := NewMonitor(cache, scores, games, rec)

		_ = games.EnsureGame(ctx, 1, "snake")
		_ = games.EnsureGame(ctx, 2, "tetris")
		scores.add(1, 1, 10)
		scores.add(1, 1, 20)
		scores.add(2, 2, 30)
		_, _ = cache.UpsertIfGreater(ctx, model.GlobalKey(), 1, 20)
		_, _ = cache.UpsertIfGreater(ctx, model.GlobalKey(), 2, 30)

		Convey("When taking a statistics snapshot", func() {
			stats, err := mon.Statistics(ctx)

			Convey("Then all counters line up", func() {
				So(err, ShouldBeNil)
				So(stats.CachedPlayerCount, ShouldEqual, 2)
				So(stats.DBPlayerCount, ShouldEqual, 2)
				So(stats.DBScoreCount, ShouldEqual, 3)
				So(stats.GameCount, ShouldEqual, 2)
				So(stats.CacheHealthy, ShouldBeTrue)
				So(stats.ResyncRecommended, ShouldBeFalse)
			})
		})

		Convey("When the cache is down", func() {
			So(cache.Close(), ShouldBeNil)
			stats, err := mon.Statistics(ctx)

			Convey("Then the snapshot recommends a resync", func() {
				So(err, ShouldBeNil)
				So(stats.CacheHealthy, ShouldBeFalse)
				So(stats.CachedPlayerCount, ShouldEqual, 0)
				So(stats.ResyncRecommended, ShouldBeTrue)
			})
		})
	})
}

func TestMonitor_RunTriggersResync(t *testing.T) {
	Convey("Given a stale cache and fast timers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cache := rankstore.NewTreapStore(ctx)
		defer cache.Close()
		scores := newFakeScores()
		games := newFakeGames()
		_ = games.EnsureGame(ctx, 1, "snake")
		for i := int64(1); i <= 20; i++ {
			scores.add(i, 1, i)
		}

		rec := NewReconciler(cache, scores, games)
		mon := NewMonitor(cache, scores, games, rec,
			WithProbeInterval(10*time.Millisecond),
			WithResyncInterval(time.Hour),
		)

		Convey("When the monitor runs", func() {
			go mon.Run(ctx)

			Convey("Then the probe repairs the cache", func() {
				deadline := time.After(2 * time.Second)
				for {
					n, err := cache.Cardinality(ctx, model.GlobalKey())
					if err == nil && n == 20 {
						break
					}
					select {
					case <-deadline:
						t.Fatal("resync was not triggered in time")
					case <-time.After(10 * time.Millisecond):
					}
				}

				n, err := cache.Cardinality(ctx, model.GlobalKey())
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 20)
			})
		})
	})
}
