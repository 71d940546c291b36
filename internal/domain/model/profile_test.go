package model_test

import (
	"testing"

	"github.com/okian/gamespin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWonCollection(t *testing.T) {
	Convey("Given an empty won collection", t, func() {
		var w model.WonCollection

		Convey("When adding the same entry twice", func() {
			first := w.Add("halo")
			second := w.Add("halo")

			Convey("Then it should appear once", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(w, ShouldResemble, model.WonCollection{"halo"})
			})
		})

		Convey("When adding an empty id", func() {
			So(w.Add(""), ShouldBeFalse)
			So(len(w), ShouldEqual, 0)
		})
	})

	Convey("Given a collection with repeats", t, func() {
		w := model.WonCollection{"b", "a", "", "b", "c", "a"}

		Convey("When normalized", func() {
			n := w.Normalize()

			Convey("Then repeats are dropped in first-appearance order", func() {
				So(n, ShouldResemble, model.WonCollection{"b", "a", "c"})
				So(len(w), ShouldEqual, 6)
			})
		})
	})
}

func TestProfileClone(t *testing.T) {
	Convey("Given a profile", t, func() {
		p := model.Profile{Username: "alice", Won: model.WonCollection{"a"}}

		Convey("When the clone is mutated", func() {
			c := p.Clone()
			c.Won.Add("b")

			Convey("Then the original is unchanged", func() {
				So(p.Won, ShouldResemble, model.WonCollection{"a"})
				So(c.Won, ShouldResemble, model.WonCollection{"a", "b"})
			})
		})
	})
}
