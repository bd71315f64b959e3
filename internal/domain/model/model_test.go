package model_test

import (
	"testing"

	"github.com/openhire/ranker/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoringConfigValidate(t *testing.T) {
	Convey("Given scoring config validation", t, func() {
		valid := model.ScoringConfig{
			ID:                      "cfg-1",
			NegativeMarkingFraction: 0.25,
			RecencyWindowDays:       30,
			RecencyBoostPercent:     10,
			IsDefault:               true,
		}

		Convey("Then a well-formed default config passes", func() {
			So(valid.Validate(), ShouldBeNil)
		})

		Convey("Then a job override passes", func() {
			cfg := valid
			cfg.IsDefault = false
			cfg.JobID = "job-1"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then zeroed knobs pass", func() {
			cfg := model.ScoringConfig{ID: "cfg-2"}
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then a negative marking fraction above 1 fails", func() {
			cfg := valid
			cfg.NegativeMarkingFraction = 1.5
			So(cfg.Validate(), ShouldEqual, model.ErrInvalidConfig)
		})

		Convey("Then a negative marking fraction below 0 fails", func() {
			cfg := valid
			cfg.NegativeMarkingFraction = -0.1
			So(cfg.Validate(), ShouldEqual, model.ErrInvalidConfig)
		})

		Convey("Then a recency boost above 100 fails", func() {
			cfg := valid
			cfg.RecencyBoostPercent = 150
			So(cfg.Validate(), ShouldEqual, model.ErrInvalidConfig)
		})

		Convey("Then a boost without a window fails", func() {
			cfg := valid
			cfg.RecencyWindowDays = 0
			So(cfg.Validate(), ShouldEqual, model.ErrInvalidConfig)
		})

		Convey("Then a default config bound to a job fails", func() {
			cfg := valid
			cfg.JobID = "job-1"
			So(cfg.Validate(), ShouldEqual, model.ErrInvalidConfig)
		})
	})
}

func TestAssessmentAnswerAnswered(t *testing.T) {
	Convey("Given answer rows", t, func() {
		text := "option B"

		Convey("Then a row with answer text counts as answered", func() {
			a := model.AssessmentAnswer{QuestionID: "q1", AnswerText: &text}
			So(a.Answered(), ShouldBeTrue)
		})

		Convey("Then a row without answer text counts as unanswered", func() {
			a := model.AssessmentAnswer{QuestionID: "q1"}
			So(a.Answered(), ShouldBeFalse)
		})

		Convey("Then an empty string still counts as answered", func() {
			empty := ""
			a := model.AssessmentAnswer{QuestionID: "q1", AnswerText: &empty}
			So(a.Answered(), ShouldBeTrue)
		})
	})
}
