package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"

	"github.com/okian/gamespin/internal/adapters/http/gateclient"
	"github.com/okian/gamespin/internal/client"
	"github.com/okian/gamespin/internal/domain/catalog"
	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/internal/domain/motion"
	"github.com/okian/gamespin/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

type grantingGate struct{}

func (grantingGate) Authorize(context.Context, string) (gateclient.Grant, error) {
	return gateclient.Grant{Outcome: gateclient.OutcomeGranted, SpinID: "spin-1"}, nil
}

func (grantingGate) Status(context.Context, string) (gateclient.Status, error) {
	return gateclient.Status{CanSpin: true}, nil
}

func (grantingGate) LoadProfile(context.Context, string) (model.Profile, bool, error) {
	return model.Profile{}, false, nil
}

func (grantingGate) SaveProfile(context.Context, model.Profile) error { return nil }

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func TestRenderer(t *testing.T) {
	Convey("Given a 40x9 screen and a strip of 10-cell cards", t, func() {
		screen := newScreen(t, 40, 9)
		r := NewRenderer(screen)
		items := []model.Entry{
			{ID: "a", Title: "Alpha", Rarity: model.RarityCommon},
			{ID: "b", Title: "Beta", Rarity: model.RarityLegendary},
			{ID: "c", Title: "Gamma", Rarity: model.RarityRare},
			{ID: "d", Title: "Delta", Rarity: model.RarityEpic},
			{ID: "e", Title: "Eps", Rarity: model.RarityUncommon},
		}

		Convey("When drawn at offset 10", func() {
			r.Draw(View{Items: items, ItemWidth: 10, Offset: 10, Header: "hdr", Status: "ready"})

			Convey("Then the first visible card is Beta", func() {
				ch, _, style, _ := screen.GetContent(0, 4)
				So(ch, ShouldEqual, '│')
				_, bg, _ := style.Decompose()
				So(bg, ShouldEqual, RarityColor(model.RarityLegendary))

				ch, _, _, _ = screen.GetContent(1, 4)
				So(ch, ShouldEqual, 'B')
			})

			Convey("And the marker sits at the center column", func() {
				ch, _, _, _ := screen.GetContent(20, 2)
				So(ch, ShouldEqual, '▼')
				ch, _, _, _ = screen.GetContent(20, 6)
				So(ch, ShouldEqual, '▲')
			})

			Convey("And header and status are written", func() {
				ch, _, _, _ := screen.GetContent(0, 0)
				So(ch, ShouldEqual, 'h')
				ch, _, _, _ = screen.GetContent(0, 8)
				So(ch, ShouldEqual, 'r')
			})
		})

		Convey("When the strip ends before the screen does", func() {
			r.Draw(View{Items: items[:1], ItemWidth: 10, Offset: 0})

			Convey("Then cells past the strip stay blank", func() {
				ch, _, _, _ := screen.GetContent(15, 4)
				So(ch, ShouldEqual, ' ')
				So(r.Width(), ShouldEqual, 40)
			})
		})
	})
}

func TestKeyAction(t *testing.T) {
	Convey("Key presses map to actions", t, func() {
		So(KeyAction(tcell.KeyRune, ' '), ShouldEqual, ActionSpin)
		So(KeyAction(tcell.KeyEnter, 0), ShouldEqual, ActionSpin)
		So(KeyAction(tcell.KeyRune, 's'), ShouldEqual, ActionStatus)
		So(KeyAction(tcell.KeyRune, 'q'), ShouldEqual, ActionQuit)
		So(KeyAction(tcell.KeyEscape, 0), ShouldEqual, ActionQuit)
		So(KeyAction(tcell.KeyCtrlC, 0), ShouldEqual, ActionQuit)
		So(KeyAction(tcell.KeyRune, 'x'), ShouldEqual, ActionNone)
	})
}

func TestFormatRemaining(t *testing.T) {
	Convey("Remaining waits round up to whole seconds", t, func() {
		So(FormatRemaining(0), ShouldEqual, "0:00")
		So(FormatRemaining(-time.Second), ShouldEqual, "0:00")
		So(FormatRemaining(time.Millisecond), ShouldEqual, "0:01")
		So(FormatRemaining(500*time.Second), ShouldEqual, "8:20")
		So(FormatRemaining(10*time.Minute), ShouldEqual, "10:00")
	})
}

func TestAudio(t *testing.T) {
	Convey("Given a tone of 100 samples", t, func() {
		tn := newTone(beep.SampleRate(1000), 440, 100*time.Millisecond, 0.5)
		buf := make([][2]float64, 64)

		Convey("Then it streams exactly its length and stays in range", func() {
			n, ok := tn.Stream(buf)
			So(n, ShouldEqual, 64)
			So(ok, ShouldBeTrue)
			for _, s := range buf {
				So(s[0], ShouldBeBetweenOrEqual, -0.5, 0.5)
			}

			n, ok = tn.Stream(buf)
			So(n, ShouldEqual, 36)
			So(ok, ShouldBeTrue)

			n, ok = tn.Stream(buf)
			So(n, ShouldEqual, 0)
			So(ok, ShouldBeFalse)
			So(tn.Err(), ShouldBeNil)
		})
	})

	Convey("Given audio that was never initialized", t, func() {
		a := NewAudio()

		Convey("Then signals are silently dropped", func() {
			So(func() {
				a.Tick()
				a.Complete(model.Entry{Rarity: model.RarityEpic})
				a.Close()
			}, ShouldNotPanic)
		})
	})

	Convey("Rarer entries chime higher", t, func() {
		So(chimeBase(model.RarityLegendary), ShouldBeGreaterThan, chimeBase(model.RarityRare))
		So(chimeBase("mystery"), ShouldEqual, chimeBase(model.RarityCommon))
	})
}

func TestAppFrames(t *testing.T) {
	Convey("Given an app over an idle session", t, func() {
		cat, err := catalog.Default()
		So(err, ShouldBeNil)
		mock := clock.NewMock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
		s, err := client.New("alice", grantingGate{}, cat.Entries(), motion.Geometry{ItemWidth: 16, ViewportWidth: 80},
			client.WithClock(mock))
		So(err, ShouldBeNil)
		app := NewApp(newScreen(t, 80, 12), s, 0, nil)

		Convey("When ticks arrive while idle", func() {
			app.step()
			app.step()

			Convey("Then the reel is not advanced", func() {
				So(app.frames, ShouldEqual, 0)
			})
		})

		Convey("When a spin runs past its duration", func() {
			res, err := s.Spin(context.Background())
			So(err, ShouldBeNil)
			app.step()
			So(app.frames, ShouldEqual, 1)

			mock.Advance(10 * time.Second)
			app.step()
			landed := app.frames
			app.step()

			Convey("Then the landing frame is the last one evaluated", func() {
				So(landed, ShouldEqual, 2)
				So(app.frames, ShouldEqual, 2)
				So(s.Running(), ShouldBeFalse)
				So(strings.HasSuffix(app.status, res.Winner.Title), ShouldBeTrue)
			})
		})
	})
}
