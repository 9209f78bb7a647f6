package ranking

import (
	"testing"

	"github.com/okian/jmscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestApplyPersonal(t *testing.T) {
	Convey("Given an account with mixed modes", t, func() {
		acc := model.Account{ID: "alice"}
		for i := 0; i < PersonalLimit; i++ {
			applyPersonal(&acc, model.PersonalRankingEntry{Mode: model.ModeHard, Score: int64(100 + i)})
		}
		applyPersonal(&acc, model.PersonalRankingEntry{Mode: model.ModeNormal, Score: 50})

		Convey("Then all entries are sorted across modes", func() {
			So(len(acc.Rankings), ShouldEqual, PersonalLimit+1)
			So(acc.Rankings[0].Score, ShouldEqual, 109)
			So(acc.Rankings[PersonalLimit].Score, ShouldEqual, 50)
		})

		Convey("When a full mode receives an equal score", func() {
			updated := applyPersonal(&acc, model.PersonalRankingEntry{Mode: model.ModeHard, Score: 100})

			Convey("Then nothing is replaced", func() {
				So(updated, ShouldBeFalse)
				So(acc.ModeCount(model.ModeHard), ShouldEqual, PersonalLimit)
			})
		})

		Convey("When a non-full mode receives a low score", func() {
			updated := applyPersonal(&acc, model.PersonalRankingEntry{Mode: model.ModeNormal, Score: 1})

			Convey("Then it is appended", func() {
				So(updated, ShouldBeTrue)
				So(acc.ModeCount(model.ModeNormal), ShouldEqual, 2)
				So(acc.Rankings[len(acc.Rankings)-1].Score, ShouldEqual, 1)
			})
		})
	})
}

func TestResolvePage(t *testing.T) {
	Convey("Given 25 sorted entries", t, func() {
		entries := make([]model.LeaderboardEntry, 25)
		for i := range entries {
			entries[i].PlayerID = string(rune('a' + i))
		}

		Convey("Then the page follows the player, then the request", func() {
			So(resolvePage(entries, GlobalQuery{View: 2, PlayerID: "a"}), ShouldEqual, 0)
			So(resolvePage(entries, GlobalQuery{View: 0, PlayerID: "o"}), ShouldEqual, 1)
			So(resolvePage(entries, GlobalQuery{View: 2, PlayerID: "zz"}), ShouldEqual, 2)
			So(resolvePage(entries, GlobalQuery{View: AutoPage}), ShouldEqual, 0)
			So(resolvePage(entries, GlobalQuery{View: -3}), ShouldEqual, 0)
			So(resolvePage(nil, GlobalQuery{View: 4}), ShouldEqual, 4)
		})
	})
}
