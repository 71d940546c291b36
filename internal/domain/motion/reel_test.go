package motion

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/okian/gamespin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	ticks     int
	completed []model.Entry
}

func (r *recorder) Tick()                  { r.ticks++ }
func (r *recorder) Complete(e model.Entry) { r.completed = append(r.completed, e) }

func strip(n int) []model.Entry {
	out := make([]model.Entry, n)
	for i := range out {
		out[i] = model.Entry{ID: fmt.Sprintf("g%d", i), Title: fmt.Sprintf("Game %d", i)}
	}
	return out
}

func TestReelSpin(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g := Geometry{ItemWidth: 100, ViewportWidth: 800}

	Convey("Given an idle reel without jitter", t, func() {
		rec := &recorder{}
		r, err := NewReel(g, WithListener(rec), WithJitter(0, 0))
		So(err, ShouldBeNil)
		So(r.Phase(), ShouldEqual, Idle)

		items := strip(86)

		Convey("When a spin runs at 60fps to completion", func() {
			So(r.Start(start, items, 43), ShouldBeNil)
			So(r.Running(), ShouldBeTrue)

			prev := -1.0
			monotonic := true
			inBounds := true
			b := r.Bounds()
			var last Frame
			for ms := 0; ms <= 6000; ms += 16 {
				last = r.Frame(start.Add(time.Duration(ms) * time.Millisecond))
				if last.Offset < prev {
					monotonic = false
				}
				if !b.Contains(last.Offset) {
					inBounds = false
				}
				prev = last.Offset
			}

			Convey("Then offsets never move backwards or leave bounds", func() {
				So(monotonic, ShouldBeTrue)
				So(inBounds, ShouldBeTrue)
			})

			Convey("Then it lands exactly on the target under the marker", func() {
				So(last.Offset, ShouldEqual, g.OffsetFor(43))
				So(r.Offset(), ShouldEqual, 3950)
				So(g.IndexAt(r.Offset()), ShouldEqual, 43)
				So(last.Velocity, ShouldEqual, 0)
			})

			Convey("Then completion fires exactly once with the winner", func() {
				So(len(rec.completed), ShouldEqual, 1)
				So(rec.completed[0].ID, ShouldEqual, "g43")
				So(r.Phase(), ShouldEqual, Idle)

				r.Frame(start.Add(7 * time.Second))
				So(len(rec.completed), ShouldEqual, 1)
			})

			Convey("Then one tick fires per crossed item", func() {
				So(rec.ticks, ShouldEqual, 39)
			})
		})

		Convey("When the landing frame arrives late", func() {
			So(r.Start(start, items, 43), ShouldBeNil)
			f := r.Frame(start.Add(10 * time.Second))

			Convey("Then it still lands on the target", func() {
				So(f.Landed, ShouldBeTrue)
				So(f.Offset, ShouldEqual, 3950)
				So(f.Winner.ID, ShouldEqual, "g43")
			})

			Convey("Then the tick burst is capped", func() {
				So(f.Ticks, ShouldEqual, DefaultTickCap)
				So(rec.ticks, ShouldEqual, DefaultTickCap)
			})
		})

		Convey("When Start is called while running", func() {
			So(r.Start(start, items, 43), ShouldBeNil)
			r.Frame(start.Add(time.Second))
			before := r.Plan()
			err := r.Start(start.Add(2*time.Second), items, 10)

			Convey("Then it is rejected and the running spin is untouched", func() {
				So(errors.Is(err, ErrAlreadyRunning), ShouldBeTrue)
				So(r.Plan(), ShouldResemble, before)
				So(r.TargetIndex(), ShouldEqual, 43)
			})
		})

		Convey("When a spin starts again after landing", func() {
			So(r.Start(start, items, 43), ShouldBeNil)
			r.Frame(start.Add(6 * time.Second))
			later := start.Add(time.Minute)
			err := r.Start(later, items, 30)

			Convey("Then the offset restarts at zero", func() {
				So(err, ShouldBeNil)
				So(r.Offset(), ShouldEqual, 0)
				So(r.Plan().Start, ShouldEqual, later)
			})
		})

		Convey("When Start gets bad input", func() {
			So(errors.Is(r.Start(start, nil, 0), ErrEmptyReel), ShouldBeTrue)
			So(errors.Is(r.Start(start, items, 86), ErrInvalidTarget), ShouldBeTrue)
			So(errors.Is(r.Start(start, items, -1), ErrInvalidTarget), ShouldBeTrue)
			So(r.Phase(), ShouldEqual, Idle)
		})

		Convey("When the reel is idle", func() {
			f := r.Frame(start)

			Convey("Then frames are inert", func() {
				So(f.Phase, ShouldEqual, Idle)
				So(f.Ticks, ShouldEqual, 0)
				So(rec.completed, ShouldBeEmpty)
			})
		})
	})
}

func TestReelVelocity(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g := Geometry{ItemWidth: 100, ViewportWidth: 800}

	Convey("Given a running reel", t, func() {
		r, err := NewReel(g, WithJitter(0, 0))
		So(err, ShouldBeNil)
		So(r.Start(start, strip(86), 43), ShouldBeNil)

		Convey("When consecutive frames are 16ms apart", func() {
			a := r.Frame(start.Add(1000 * time.Millisecond))
			b := r.Frame(start.Add(1016 * time.Millisecond))

			Convey("Then velocity is distance over delta", func() {
				So(b.Velocity, ShouldAlmostEqual, (b.Offset-a.Offset)/0.016, 1e-6)
			})
		})

		Convey("When the process was suspended between frames", func() {
			a := r.Frame(start.Add(1000 * time.Millisecond))
			b := r.Frame(start.Add(2000 * time.Millisecond))

			Convey("Then the delta is clamped but position follows elapsed time", func() {
				So(b.Velocity, ShouldAlmostEqual, (b.Offset-a.Offset)/DefaultDeltaClamp.Seconds(), 1e-6)
				So(b.Offset, ShouldEqual, r.Plan().PositionAt(2*time.Second, r.Bounds()))
			})
		})
	})
}

func TestReelResize(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a reel spinning toward a target", t, func() {
		r, err := NewReel(Geometry{ItemWidth: 100, ViewportWidth: 800}, WithJitter(0, 0))
		So(err, ShouldBeNil)
		So(r.Start(start, strip(86), 43), ShouldBeNil)
		r.Frame(start.Add(3 * time.Second))

		Convey("When the viewport grows so the target is out of range", func() {
			So(r.Resize(8000), ShouldBeNil)

			Convey("Then the offset is re-clamped at once", func() {
				So(r.Bounds().Max, ShouldEqual, 600)
				So(r.Offset(), ShouldBeLessThanOrEqualTo, 600)
			})

			Convey("Then later frames stay in the new bounds", func() {
				f := r.Frame(start.Add(4 * time.Second))
				So(f.Offset, ShouldBeLessThanOrEqualTo, 600)
				f = r.Frame(start.Add(6 * time.Second))
				So(f.Offset, ShouldEqual, 600)
				So(f.Landed, ShouldBeTrue)
			})
		})

		Convey("When the viewport is invalid", func() {
			So(errors.Is(r.Resize(-1), ErrInvalidLayout), ShouldBeTrue)
			So(r.Geometry().ViewportWidth, ShouldEqual, 800)
		})
	})

	Convey("Given a target clamped at plan time", t, func() {
		rec := &recorder{}
		r, err := NewReel(Geometry{ItemWidth: 100, ViewportWidth: 400}, WithJitter(0, 0), WithListener(rec))
		So(err, ShouldBeNil)
		So(r.Start(start, strip(10), 9), ShouldBeNil)

		Convey("Then the landing is the bound and the intended winner is still reported", func() {
			f := r.Frame(start.Add(6 * time.Second))
			So(f.Offset, ShouldEqual, 600)
			So(rec.completed[0].ID, ShouldEqual, "g9")
		})
	})
}

func TestReelJitter(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a reel with a fixed jitter source", t, func() {
		r, err := NewReel(Geometry{ItemWidth: 100, ViewportWidth: 800},
			WithRandom(func() float64 { return 0.99 }))
		So(err, ShouldBeNil)
		So(r.Start(start, strip(86), 43), ShouldBeNil)

		Convey("Then jitter applies only in the opening window and is clamped", func() {
			early := r.Frame(start.Add(50 * time.Millisecond))
			clean := r.Plan().PositionAt(50*time.Millisecond, r.Bounds())
			So(early.Offset-clean, ShouldAlmostEqual, 0.49*DefaultJitterAmp, 1e-9)

			late := r.Frame(start.Add(500 * time.Millisecond))
			So(late.Offset, ShouldEqual, r.Plan().PositionAt(500*time.Millisecond, r.Bounds()))
		})
	})

	Convey("Given jitter at the very start of the strip", t, func() {
		r, err := NewReel(Geometry{ItemWidth: 100, ViewportWidth: 800},
			WithRandom(func() float64 { return 0 }))
		So(err, ShouldBeNil)
		So(r.Start(start, strip(86), 43), ShouldBeNil)

		Convey("Then negative jitter cannot push the offset below zero", func() {
			So(r.Frame(start).Offset, ShouldEqual, 0)
		})
	})
}

func TestCrossings(t *testing.T) {
	Convey("Given item boundaries every 100 units", t, func() {
		So(crossings(0, 99, 100, 8), ShouldEqual, 0)
		So(crossings(99, 101, 100, 8), ShouldEqual, 1)
		So(crossings(0, 350, 100, 8), ShouldEqual, 3)
		So(crossings(0, 5000, 100, 8), ShouldEqual, 8)
		So(crossings(350, 150, 100, 8), ShouldEqual, 2)
	})
}

func TestBuildLayout(t *testing.T) {
	Convey("Given a small catalog", t, func() {
		entries := strip(5)
		winner := model.Entry{ID: "winner"}
		rng := rand.New(rand.NewPCG(1, 2))

		Convey("When a layout is built", func() {
			l, err := BuildLayout(entries, winner, rng)

			Convey("Then the winner sits at the fixed target index", func() {
				So(err, ShouldBeNil)
				So(len(l.Items), ShouldEqual, 86)
				So(l.TargetIndex, ShouldEqual, 43)
				So(l.Winner(), ShouldResemble, winner)
			})
		})

		Convey("When the catalog is empty", func() {
			_, err := BuildLayout(nil, winner, rng)
			So(errors.Is(err, ErrEmptyCatalog), ShouldBeTrue)
			_, err = PickWinner(nil, rng)
			So(errors.Is(err, ErrEmptyCatalog), ShouldBeTrue)
		})

		Convey("When a winner is picked", func() {
			w, err := PickWinner(entries, rng)
			So(err, ShouldBeNil)
			So(entries, ShouldContain, w)
		})
	})
}

func TestReelOptions(t *testing.T) {
	Convey("Given reel options", t, func() {
		g := Geometry{ItemWidth: 100, ViewportWidth: 800}

		Convey("When a valid one second curve is supplied", func() {
			r, err := NewReel(g, WithCurve(NewCurve(time.Second)), WithDeltaClamp(20*time.Millisecond))
			So(err, ShouldBeNil)

			Convey("Then plans use it and the delta clamp is kept", func() {
				So(r.Start(time.Unix(0, 0), strip(86), 43), ShouldBeNil)
				So(r.Plan().Duration(), ShouldEqual, time.Second)
				So(r.deltaClamp, ShouldEqual, 20*time.Millisecond)
			})
		})

		Convey("When an invalid curve or clamp is supplied", func() {
			r, err := NewReel(g, WithCurve(Curve{}), WithDeltaClamp(0))
			So(err, ShouldBeNil)

			Convey("Then the defaults stay", func() {
				So(r.curve, ShouldResemble, DefaultCurve())
				So(r.deltaClamp, ShouldEqual, DefaultDeltaClamp)
			})
		})
	})
}
