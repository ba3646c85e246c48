package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/trailgrid/game/engine"
)

// frameInterval paces progress bar redraws (~60 FPS)
const frameInterval = 16 * time.Millisecond

// Screen is the part of tcell.Screen the app needs
type Screen interface {
	Canvas
	PollEvent() tcell.Event
	PostEvent(ev tcell.Event) error
}

// Game is the engine surface the terminal drives
type Game interface {
	HandleInput(key string) engine.InputResult
	Snapshot() engine.Snapshot
	Subscribe(listener engine.RenderListener) func()
}

// App runs one game in a terminal
type App struct {
	screen   Screen
	game     Game
	renderer *Renderer
	progress Progress
	status   string
	logger   *log.Entry
}

// NewApp creates an app drawing game onto screen
func NewApp(screen Screen, game Game) *App {
	return &App{
		screen:   screen,
		game:     game,
		renderer: NewRenderer(screen),
		status:   "press space to teleport to the main grid",
		logger:   log.WithField("component", "terminal"),
	}
}

// Run processes terminal events until the player quits, the screen is
// finalized or ctx is done. The caller owns screen Init and Fini.
func (a *App) Run(ctx context.Context) error {
	// Render events arrive on the engine's commit path; hand them to the
	// event loop instead of drawing there
	unsubscribe := a.game.Subscribe(func(ev engine.RenderEvent) {
		if err := a.screen.PostEvent(tcell.NewEventInterrupt(ev)); err != nil {
			a.logger.WithError(err).Debug("render event dropped")
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)

	events := make(chan tcell.Event, 100)
	go func() {
		defer close(events)
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !a.handleEvent(ev) {
				return nil
			}
			a.draw()

		case <-ticker.C:
			if a.progress.Animating() {
				a.progress.Advance(frameInterval)
				a.draw()
			}
		}
	}
}

// handleEvent applies one terminal event and reports whether to keep running
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if isQuit(ev.Key(), ev.Rune()) {
			return false
		}
		if key, ok := keyFor(ev.Key(), ev.Rune()); ok {
			a.press(key)
		}

	case *tcell.EventInterrupt:
		if rev, ok := ev.Data().(engine.RenderEvent); ok {
			a.rendered(rev)
		}
	}
	return true
}

func (a *App) press(key string) {
	res := a.game.HandleInput(key)

	switch res.Outcome {
	case engine.Scheduled:
		a.progress.Start(res.Delay)
		if res.Delay > 0 {
			a.status = fmt.Sprintf("moving %s (%dms)", res.Key, res.Delay.Milliseconds())
		}
	case engine.Busy:
		a.status = "busy: a move is still pending"
	case engine.NoOp:
		a.status = "edge of the grid"
	case engine.Teleported:
		a.progress.Stop()
		a.status = fmt.Sprintf("teleported to the %s grid", res.Grid)
	}
}

// rendered updates the status line after a commit or teleport
func (a *App) rendered(ev engine.RenderEvent) {
	if ev.Type == engine.EventTeleport {
		return
	}
	a.progress.Stop()

	switch {
	case ev.Stale:
		a.status = fmt.Sprintf("late arrival on the %s grid, +%d", ev.Grid, ev.ScoreDelta)
	case ev.Collected != "":
		a.status = fmt.Sprintf("collected %s, +%d", ev.Collected, ev.ScoreDelta)
	case ev.ScoreDelta > 0:
		a.status = fmt.Sprintf("+%d", ev.ScoreDelta)
	default:
		a.status = ""
	}
}

func (a *App) draw() {
	a.renderer.Draw(Frame{
		Snapshot: a.game.Snapshot(),
		Status:   a.status,
		Progress: a.progress.Value(),
	})
}
