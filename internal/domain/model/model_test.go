package model_test

import (
	"testing"

	model "github.com/okian/jmscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestLeaderboardKey(t *testing.T) {
	convey.Convey("Given a player id and a mode", t, func() {
		convey.Convey("When building the composite key", func() {
			key := model.LeaderboardKey("hipnosis", model.ModeHard)

			convey.Convey("Then it should concatenate id and decimal mode", func() {
				convey.So(key, convey.ShouldEqual, "hipnosis1")
			})
		})

		convey.Convey("When the player id is empty", func() {
			key := model.LeaderboardKey("", model.ModeDeath)

			convey.Convey("Then the key should be the mode alone", func() {
				convey.So(key, convey.ShouldEqual, "2")
			})
		})
	})
}

func TestSubmission(t *testing.T) {
	convey.Convey("Given a submission", t, func() {
		sub := model.Submission{
			PlayerID:    "p1",
			Mode:        model.ModeNormal,
			Score:       120_000,
			JewelCount:  450,
			Level:       12,
			Class:       102,
			ElapsedTime: 654_321,
			Replay:      []byte{1, 2, 3},
		}

		convey.Convey("When building the leaderboard entry", func() {
			entry := sub.Entry("0000000000000042")

			convey.Convey("Then it should copy every ranking field", func() {
				convey.So(entry.EntryID, convey.ShouldEqual, "0000000000000042")
				convey.So(entry.PlayerID, convey.ShouldEqual, "p1")
				convey.So(entry.Score, convey.ShouldEqual, 120_000)
				convey.So(entry.JewelCount, convey.ShouldEqual, 450)
				convey.So(entry.Level, convey.ShouldEqual, 12)
				convey.So(entry.Class, convey.ShouldEqual, 102)
				convey.So(entry.ElapsedTime, convey.ShouldEqual, 654_321)
				convey.So(entry.Key(), convey.ShouldEqual, sub.Key())
			})
		})

		convey.Convey("When building the personal entry", func() {
			pe := sub.PersonalEntry()

			convey.Convey("Then it should carry mode and stats", func() {
				convey.So(pe.Mode, convey.ShouldEqual, model.ModeNormal)
				convey.So(pe.Score, convey.ShouldEqual, 120_000)
				convey.So(pe.Class, convey.ShouldEqual, 102)
			})
		})
	})
}

func TestAccountModeCount(t *testing.T) {
	convey.Convey("Given an account with rankings in several modes", t, func() {
		acc := model.Account{ID: "p1", Rankings: []model.PersonalRankingEntry{
			{Mode: 0, Score: 10}, {Mode: 1, Score: 9}, {Mode: 0, Score: 8},
		}}

		convey.Convey("Then counts should be per mode", func() {
			convey.So(acc.ModeCount(0), convey.ShouldEqual, 2)
			convey.So(acc.ModeCount(1), convey.ShouldEqual, 1)
			convey.So(acc.ModeCount(2), convey.ShouldEqual, 0)
		})
	})
}
