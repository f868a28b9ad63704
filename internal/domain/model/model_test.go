package model_test

import (
	"errors"
	"testing"

	"github.com/okian/lomba/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseCategory(t *testing.T) {
	Convey("Given category strings", t, func() {
		Convey("When the value is a known literal", func() {
			c, err := model.ParseCategory(" Putri ")

			Convey("Then it parses", func() {
				So(err, ShouldBeNil)
				So(c, ShouldEqual, model.CategoryPutri)
				So(c.Valid(), ShouldBeTrue)
			})
		})

		Convey("When the value has the wrong case", func() {
			_, err := model.ParseCategory("putra")

			Convey("Then it is an invalid category", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, model.ErrInvalidCategory), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, `"putra"`)
			})
		})

		Convey("When the value is empty", func() {
			_, err := model.ParseCategory("")
			So(errors.Is(err, model.ErrInvalidCategory), ShouldBeTrue)
		})

		Convey("Then Categories lists both literals", func() {
			So(model.Categories(), ShouldResemble, []model.Category{model.CategoryPutra, model.CategoryPutri})
			So(model.Category("Mixed").Valid(), ShouldBeFalse)
		})
	})
}

func TestScoreKey(t *testing.T) {
	Convey("Given two rows from the same judge", t, func() {
		a := model.Score{TeamID: "t1", CompetitionID: "c1", JudgeID: "j1", TotalScore: 10}
		b := model.Score{TeamID: "t1", CompetitionID: "c1", JudgeID: "j1", TotalScore: 20}
		m := model.Score{TeamID: "t1", CompetitionID: "c1", JudgeID: "j1", MemberName: "Ayu"}

		Convey("Then team-level rows share a key regardless of total", func() {
			So(a.Key(), ShouldEqual, b.Key())
		})

		Convey("And a member row has its own key", func() {
			So(m.Key(), ShouldNotEqual, a.Key())
		})
	})
}

func TestCompetitionHasCriterion(t *testing.T) {
	Convey("Given a competition with criteria", t, func() {
		c := model.Competition{Criteria: []model.Criterion{{ID: "k1", Name: "Kerapian"}}}
		So(c.HasCriterion("k1"), ShouldBeTrue)
		So(c.HasCriterion("k2"), ShouldBeFalse)
	})
}
