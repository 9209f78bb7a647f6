package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func validSubmission() model.Submission {
	return model.Submission{
		PlayerID:    "player01",
		Mode:        model.ModeHard,
		Score:       1234567,
		JewelCount:  321,
		Level:       25,
		Class:       202,
		ElapsedTime: 987654,
	}
}

func TestValidator(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given the default validator", t, func() {
		v := scoring.NewValidator()

		convey.Convey("When the submission is within limits", func() {
			s := validSubmission()

			convey.Convey("Then it is accepted", func() {
				convey.So(v.Validate(ctx, &s), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the id is empty", func() {
			s := validSubmission()
			s.PlayerID = ""

			convey.Convey("Then it is accepted", func() {
				convey.So(v.Validate(ctx, &s), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a field is out of range", func() {
			cases := map[string]func(*model.Submission){
				"long id":        func(s *model.Submission) { s.PlayerID = "abcdefghijklmnopq" },
				"unknown mode":   func(s *model.Submission) { s.Mode = 3 },
				"negative score": func(s *model.Submission) { s.Score = -1 },
				"huge score":     func(s *model.Submission) { s.Score = 10_000_000_000 },
				"jewel":          func(s *model.Submission) { s.JewelCount = 10_000 },
				"level":          func(s *model.Submission) { s.Level = 1000 },
				"class":          func(s *model.Submission) { s.Class = -3 },
				"time":           func(s *model.Submission) { s.ElapsedTime = -5 },
			}

			convey.Convey("Then it is rejected with ErrInvalidSubmission", func() {
				for _, mutate := range cases {
					s := validSubmission()
					mutate(&s)
					err := v.Validate(ctx, &s)
					convey.So(errors.Is(err, scoring.ErrInvalidSubmission), convey.ShouldBeTrue)
				}
			})
		})
	})

	convey.Convey("Given a validator with custom options", t, func() {
		v := scoring.NewValidator(scoring.WithModes(model.ModeNormal), scoring.WithMaxScore(1000))

		convey.Convey("Then the options narrow what is accepted", func() {
			s := validSubmission()
			s.Score = 10
			convey.So(errors.Is(v.Validate(ctx, &s), scoring.ErrInvalidSubmission), convey.ShouldBeTrue)

			s.Mode = model.ModeNormal
			convey.So(v.Validate(ctx, &s), convey.ShouldBeNil)

			s.Score = 1001
			convey.So(errors.Is(v.Validate(ctx, &s), scoring.ErrInvalidSubmission), convey.ShouldBeTrue)
		})
	})
}
