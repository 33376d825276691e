package model

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLeaderboardKey(t *testing.T) {
	convey.Convey("Given leaderboard keys", t, func() {
		convey.Convey("The global key is global and renders its cache key", func() {
			k := GlobalKey()
			convey.So(k.IsGlobal(), convey.ShouldBeTrue)
			convey.So(k.GameID(), convey.ShouldEqual, 0)
			convey.So(k.String(), convey.ShouldEqual, "leaderboard:global")
		})

		convey.Convey("A game key carries its id and renders its cache key", func() {
			k := GameKey(42)
			convey.So(k.IsGlobal(), convey.ShouldBeFalse)
			convey.So(k.GameID(), convey.ShouldEqual, 42)
			convey.So(k.String(), convey.ShouldEqual, "leaderboard:game:42")
		})

		convey.Convey("Keys are comparable map keys", func() {
			seen := map[LeaderboardKey]int{
				GlobalKey(): 1,
				GameKey(1):  2,
				GameKey(2):  3,
			}
			convey.So(seen[GlobalKey()], convey.ShouldEqual, 1)
			convey.So(seen[GameKey(1)], convey.ShouldEqual, 2)
			convey.So(seen[GameKey(2)], convey.ShouldEqual, 3)
			convey.So(GameKey(1), convey.ShouldNotEqual, GlobalKey())
		})
	})
}
