package ranking

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
)

func TestWriter_Submit(t *testing.T) {
	Convey("Given a writer over the score store and mirror queue", t, func() {
		ctx := context.Background()
		scores := newFakeScores()
		mirrors := &captureQueue{}
		writer := NewWriter(scores, mirrors)

		Convey("When submitting a valid score", func() {
			score, err := writer.Submit(ctx, 1, 10, 85, "")

			Convey("Then the row is durable and a mirror job is queued", func() {
				So(err, ShouldBeNil)
				So(score.ID, ShouldNotEqual, 0)
				So(score.Value, ShouldEqual, 85)

				count, _ := scores.ScoreCount(ctx)
				So(count, ShouldEqual, 1)

				jobs := mirrors.all()
				So(jobs, ShouldHaveLength, 1)
				So(jobs[0].Key, ShouldResemble, model.GameKey(10))
				So(jobs[0].UserID, ShouldEqual, 1)
				So(jobs[0].Value, ShouldEqual, 85)
			})
		})

		Convey("When submitting a negative score", func() {
			_, err := writer.Submit(ctx, 1, 10, -5, "")

			Convey("Then the request is rejected with no row and no mirror", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)

				count, _ := scores.ScoreCount(ctx)
				So(count, ShouldEqual, 0)
				So(mirrors.all(), ShouldBeEmpty)
			})
		})

		Convey("When submitting with bad identifiers", func() {
			_, err := writer.Submit(ctx, 0, 10, 5, "")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)

			_, err = writer.Submit(ctx, 1, 0, 5, "")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the durable insert fails", func() {
			scores.failInsert = true
			_, err := writer.Submit(ctx, 1, 10, 85, "")

			Convey("Then the failure surfaces and nothing is mirrored", func() {
				So(errors.Is(err, scorestore.ErrPersistence), ShouldBeTrue)
				So(mirrors.all(), ShouldBeEmpty)
			})
		})

		Convey("When the mirror queue is saturated", func() {
			mirrors.full = true
			score, err := writer.Submit(ctx, 1, 10, 85, "")

			Convey("Then the submission still succeeds", func() {
				So(err, ShouldBeNil)
				So(score.ID, ShouldNotEqual, 0)

				count, _ := scores.ScoreCount(ctx)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

func TestWriter_Dedupe(t *testing.T) {
	Convey("Given a writer with submission id tracking", t, func() {
		ctx := context.Background()
		scores := newFakeScores()
		mirrors := &captureQueue{}
		writer := NewWriter(scores, mirrors, WithDeduper(dedupe.NewInMemoryDeduper()))

		Convey("When the same submission id arrives twice", func() {
			_, err := writer.Submit(ctx, 1, 10, 85, "sub-1")
			So(err, ShouldBeNil)

			_, err = writer.Submit(ctx, 1, 10, 85, "sub-1")

			Convey("Then the duplicate writes no second row", func() {
				So(errors.Is(err, ErrDuplicateSubmission), ShouldBeTrue)

				count, _ := scores.ScoreCount(ctx)
				So(count, ShouldEqual, 1)
				So(mirrors.all(), ShouldHaveLength, 1)
			})
		})

		Convey("When the insert fails for a recorded id", func() {
			scores.failInsert = true
			_, err := writer.Submit(ctx, 1, 10, 85, "sub-2")
			So(errors.Is(err, scorestore.ErrPersistence), ShouldBeTrue)

			Convey("Then the id can be retried after the failure", func() {
				scores.failInsert = false
				_, err := writer.Submit(ctx, 1, 10, 85, "sub-2")
				So(err, ShouldBeNil)
			})
		})

		Convey("When submission ids differ", func() {
			_, err := writer.Submit(ctx, 1, 10, 85, "sub-3")
			So(err, ShouldBeNil)
			_, err = writer.Submit(ctx, 1, 10, 90, "sub-4")
			So(err, ShouldBeNil)

			count, _ := scores.ScoreCount(ctx)
			So(count, ShouldEqual, 2)
		})
	})
}
