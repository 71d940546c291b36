package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/gamespin/internal/client"
	"github.com/okian/gamespin/pkg/logger"
)

const defaultFrameInterval = 16 * time.Millisecond

// Action is a user command decoded from a key press.
type Action int

// User commands.
const (
	ActionNone Action = iota
	ActionSpin
	ActionStatus
	ActionQuit
)

// KeyAction maps a key event to an Action.
func KeyAction(key tcell.Key, ch rune) Action {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyEnter:
		return ActionSpin
	case tcell.KeyRune:
		switch ch {
		case ' ':
			return ActionSpin
		case 's', 'S':
			return ActionStatus
		case 'q', 'Q':
			return ActionQuit
		}
	}
	return ActionNone
}

// App runs the interactive loop for one session.
type App struct {
	screen        tcell.Screen
	renderer      *Renderer
	session       *client.Session
	frameInterval time.Duration
	log           logger.Logger

	status   string
	cooldown time.Time
	busy     bool
	frames   int
	results  chan spinOutcome
	statusCh chan statusOutcome
}

type spinOutcome struct {
	res client.Result
	err error
}

type statusOutcome struct {
	el  client.Eligibility
	err error
}

// NewApp wires a session to an initialized screen.
func NewApp(screen tcell.Screen, s *client.Session, frameInterval time.Duration, log logger.Logger) *App {
	if frameInterval <= 0 {
		frameInterval = defaultFrameInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		screen:        screen,
		renderer:      NewRenderer(screen),
		session:       s,
		frameInterval: frameInterval,
		log:           log,
		status:        "space: spin   s: status   q: quit",
		results:       make(chan spinOutcome, 1),
		statusCh:      make(chan statusOutcome, 1),
	}
}

// Run draws frames until ctx is cancelled or the user quits. A spin in
// progress is allowed to land before quitting.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	a.resize()
	a.refreshStatus(ctx)

	ticker := time.NewTicker(a.frameInterval)
	defer ticker.Stop()

	quitting := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				a.screen.Sync()
				a.resize()
			case *tcell.EventKey:
				if a.Handle(ctx, KeyAction(ev.Key(), ev.Rune())) {
					quitting = true
				}
			}
		case out := <-a.results:
			a.busy = false
			a.status = a.describe(out.res, out.err)
		case out := <-a.statusCh:
			a.status = a.describeStatus(out.el, out.err)
		case <-ticker.C:
			a.step()
			a.draw()
			if quitting && !a.session.Running() && !a.busy {
				return nil
			}
		}
	}
}

// step advances the reel while a spin runs. The frame that lands is the
// last one evaluated; an idle reel is only redrawn.
func (a *App) step() {
	if !a.session.Running() {
		return
	}
	a.frames++
	if f := a.session.Frame(); f.Landed {
		a.status = "won " + f.Winner.Title
	}
}

// Handle applies one action and reports whether the app should quit.
func (a *App) Handle(ctx context.Context, act Action) bool {
	switch act {
	case ActionQuit:
		if a.session.Running() {
			a.status = "landing before exit..."
		}
		return true
	case ActionSpin:
		if a.busy || a.session.Running() {
			return false
		}
		a.busy = true
		a.status = "asking the gate..."
		go func() {
			res, err := a.session.Spin(ctx)
			a.results <- spinOutcome{res: res, err: err}
		}()
	case ActionStatus:
		a.refreshStatus(ctx)
	}
	return false
}

func (a *App) refreshStatus(ctx context.Context) {
	go func() {
		el, err := a.session.Status(ctx)
		select {
		case a.statusCh <- statusOutcome{el: el, err: err}:
		default:
		}
	}()
}

func (a *App) resize() {
	if err := a.session.Reel().Resize(float64(a.renderer.Width())); err != nil {
		a.log.Warn(context.Background(), "resize rejected", logger.Error(err))
	}
}

func (a *App) draw() {
	reel := a.session.Reel()
	p := a.session.Profile()
	a.renderer.Draw(View{
		Items:     reel.Items(),
		ItemWidth: reel.Geometry().ItemWidth,
		Offset:    reel.Offset(),
		Header:    fmt.Sprintf("gamespin | %s | %d won", a.session.Identity(), len(p.Won)),
		Status:    a.statusLine(),
	})
}

func (a *App) statusLine() string {
	if a.cooldown.IsZero() {
		return a.status
	}
	left := time.Until(a.cooldown)
	if left <= 0 {
		a.cooldown = time.Time{}
		return "ready to spin"
	}
	return a.status + " " + FormatRemaining(left)
}

func (a *App) describe(res client.Result, err error) string {
	if err != nil {
		a.log.Error(context.Background(), "spin failed", logger.Error(err))
		return "spin failed: " + err.Error()
	}
	switch res.Outcome {
	case client.OutcomeStarted:
		a.cooldown = time.Time{}
		return "spinning..."
	case client.OutcomeCooldown:
		a.cooldown = time.Now().Add(res.Remaining)
		return "cooldown"
	case client.OutcomeUnavailable:
		a.cooldown = time.Now().Add(res.Remaining)
		return "gate store down; estimated wait"
	default:
		return "gate unreachable; try again"
	}
}

func (a *App) describeStatus(el client.Eligibility, err error) string {
	if err != nil {
		return "status unknown: " + err.Error()
	}
	if el.CanSpin {
		a.cooldown = time.Time{}
		return "ready to spin"
	}
	a.cooldown = time.Now().Add(el.Remaining)
	if !el.Authoritative {
		return "estimated wait"
	}
	return "next spin in"
}

// FormatRemaining renders a wait as m:ss, rounding up.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
