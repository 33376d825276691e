package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arena/internal/adapters/http/api"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/ranking"
	"github.com/okian/arena/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockEngine implements api.Dependencies.
type mockEngine struct {
	entries    []model.RankEntry
	rank       int
	rankErr    error
	performers []model.PeriodPerformer
	score      model.Score
	submitErr  error
	scores     []model.Score
	stats      model.Statistics
	resyncs    int
	submits    []string
}

func (m *mockEngine) GlobalTopN(ctx context.Context, n int) ([]model.RankEntry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", model.ErrInvalidInput)
	}
	if n > len(m.entries) {
		n = len(m.entries)
	}
	return m.entries[:n], nil
}

func (m *mockEngine) GameTopN(ctx context.Context, gameID int64, n int) ([]model.RankEntry, error) {
	return m.GlobalTopN(ctx, n)
}

func (m *mockEngine) UserGlobalRank(ctx context.Context, userID int64) (int, error) {
	if m.rankErr != nil {
		return 0, m.rankErr
	}
	return m.rank, nil
}

func (m *mockEngine) UserGameRank(ctx context.Context, gameID, userID int64) (int, error) {
	return m.UserGlobalRank(ctx, userID)
}

func (m *mockEngine) RangeByPosition(ctx context.Context, key model.LeaderboardKey, start, end int) ([]model.RankEntry, error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("%w: malformed range", model.ErrInvalidInput)
	}
	return m.entries, nil
}

func (m *mockEngine) Neighbors(ctx context.Context, key model.LeaderboardKey, userID int64, radius int) ([]model.RankEntry, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius out of range", model.ErrInvalidInput)
	}
	return m.entries, nil
}

func (m *mockEngine) TopPerformersInPeriod(ctx context.Context, start, end time.Time, n int) ([]model.PeriodPerformer, error) {
	return m.performers, nil
}

func (m *mockEngine) Submit(ctx context.Context, userID, gameID, value int64, submissionID string) (model.Score, error) {
	if m.submitErr != nil {
		return model.Score{}, m.submitErr
	}
	if value < 0 {
		return model.Score{}, fmt.Errorf("%w: score must not be negative", model.ErrInvalidInput)
	}
	m.submits = append(m.submits, submissionID)
	return m.score, nil
}

func (m *mockEngine) RecentScores(ctx context.Context, limit int) ([]model.Score, error) {
	return m.scores, nil
}

func (m *mockEngine) UserScores(ctx context.Context, userID, gameID int64, limit int) ([]model.Score, error) {
	return m.scores, nil
}

func (m *mockEngine) TriggerFullResync() {
	m.resyncs++
}

func (m *mockEngine) GetStats(ctx context.Context) (model.Statistics, error) {
	return m.stats, nil
}

func newTestMux(engine *mockEngine) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(engine).Register(context.Background(), mux)
	return mux
}

func TestLeaderboardEndpoints(t *testing.T) {
	Convey("Given a server with a populated engine", t, func() {
		engine := &mockEngine{
			entries: []model.RankEntry{
				{Rank: 1, UserID: 2, Username: "bob", Value: 150},
				{Rank: 2, UserID: 1, Username: "alice", Value: 100},
			},
		}
		mux := newTestMux(engine)

		Convey("When fetching the global leaderboard", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard/global?limit=2", nil))

			Convey("Then the entries come back as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []model.RankEntry
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Username, ShouldEqual, "bob")
			})
		})

		Convey("When fetching a game leaderboard", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard/game/10?limit=1", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the game id is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard/game/abc", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard/global?limit=x", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRankEndpoints(t *testing.T) {
	Convey("Given a server", t, func() {
		engine := &mockEngine{rank: 3}
		mux := newTestMux(engine)

		Convey("When fetching a global rank", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/global/7", nil))

			Convey("Then the rank comes back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"rank":3`)
			})
		})

		Convey("When fetching a game rank", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/game/10/7", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"game_id":10`)
		})

		Convey("When the user is unranked", func() {
			engine.rankErr = model.ErrNotFound
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/global/7", nil))

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the path is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/game/10", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRangeAndNeighborsEndpoints(t *testing.T) {
	Convey("Given a server", t, func() {
		engine := &mockEngine{
			entries: []model.RankEntry{{Rank: 3, UserID: 3, Value: 97}},
		}
		mux := newTestMux(engine)

		Convey("When fetching a valid range", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/range/global?start=3&end=5", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the range is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/range/global?start=0&end=5", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching neighbors", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/neighbors/global/3?radius=2", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When fetching game neighbors", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/neighbors/game/10/3", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestScoresEndpoints(t *testing.T) {
	Convey("Given a server", t, func() {
		engine := &mockEngine{
			score:  model.Score{ID: 1, UserID: 1, GameID: 10, Value: 85},
			scores: []model.Score{{ID: 1, UserID: 1, GameID: 10, Value: 85}},
		}
		mux := newTestMux(engine)

		Convey("When submitting a valid score", func() {
			body := strings.NewReader(`{"user_id":1,"game_id":10,"value":85}`)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", body))

			Convey("Then the stored row comes back as 201", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var got model.Score
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.Value, ShouldEqual, 85)
			})
		})

		Convey("When submitting a negative score", func() {
			body := strings.NewReader(`{"user_id":1,"game_id":10,"value":-5}`)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", body))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When submitting a duplicate", func() {
			engine.submitErr = ranking.ErrDuplicateSubmission
			body := strings.NewReader(`{"submission_id":"sub-1","user_id":1,"game_id":10,"value":85}`)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", body))

			Convey("Then it is acknowledged without a new row", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the body is not JSON", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", strings.NewReader("nope")))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When listing recent scores", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores/recent", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When listing one user's scores", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores/user/1?game=10", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	Convey("Given a server", t, func() {
		engine := &mockEngine{
			stats: model.Statistics{CachedPlayerCount: 5, DBPlayerCount: 5, CacheHealthy: true},
		}
		mux := newTestMux(engine)

		Convey("When triggering a resync", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/resync", nil))

			Convey("Then the trigger is accepted immediately", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(engine.resyncs, ShouldEqual, 1)
			})
		})

		Convey("When resync is requested with GET", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/resync", nil))

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When fetching stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

			Convey("Then the snapshot comes back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got model.Statistics
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.CachedPlayerCount, ShouldEqual, 5)
				So(got.CacheHealthy, ShouldBeTrue)
			})
		})
	})
}

func TestPerformersEndpoint(t *testing.T) {
	Convey("Given a server", t, func() {
		engine := &mockEngine{
			performers: []model.PeriodPerformer{{Rank: 1, UserID: 1, Best: 100, Count: 3, Average: 80}},
		}
		mux := newTestMux(engine)

		Convey("When fetching performers for a period", func() {
			start := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
			end := time.Now().UTC().Format(time.RFC3339)
			url := fmt.Sprintf("/performers?start=%s&end=%s&limit=5", start, end)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the period is missing", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/performers", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
