package renderer

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/logging"
)

// wheelRows is how many rows one wheel step scrolls.
const wheelRows = 3

// Result reports what handling an event did.
type Result struct {
	Quit  bool
	Click lines.ClickResult
}

// HandleEvent applies a terminal event to the view.
func (v *View) HandleEvent(screen tcell.Screen, ev tcell.Event) (Result, error) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(e)

	case *tcell.EventMouse:
		x, y := e.Position()
		switch {
		case e.Buttons()&tcell.Button1 != 0:
			res, err := v.Click(x, y)
			return Result{Click: res}, err
		case e.Buttons()&tcell.WheelUp != 0:
			v.ScrollBy(-wheelRows)
		case e.Buttons()&tcell.WheelDown != 0:
			v.ScrollBy(wheelRows)
		}

	case *tcell.EventResize:
		w, h := e.Size()
		vx, vy, _, _ := v.Bounds()
		v.SetBounds(vx, vy, w-vx, h-vy)
		screen.Sync()
	}
	return Result{}, nil
}

func (v *View) handleKey(e *tcell.EventKey) (Result, error) {
	_, _, _, height := v.Bounds()
	switch e.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Result{Quit: true}, nil
	case tcell.KeyUp:
		return Result{}, v.CursorUp()
	case tcell.KeyDown:
		return Result{}, v.CursorDown()
	case tcell.KeyPgUp:
		v.ScrollBy(-height)
	case tcell.KeyPgDn:
		v.ScrollBy(height)
	case tcell.KeyEnter:
		v.ToggleFoldAtCursor()
	case tcell.KeyRune:
		switch e.Rune() {
		case 'q':
			return Result{Quit: true}, nil
		case 'k':
			return Result{}, v.CursorUp()
		case 'j':
			return Result{}, v.CursorDown()
		case 'z':
			v.ToggleFoldAtCursor()
		}
	}
	return Result{}, nil
}

// Wake makes a running event loop redraw. It is safe from any goroutine.
func Wake(screen tcell.Screen) {
	_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Run draws the view full screen and handles events until the user quits
// or ctx is done. Model updates made from other goroutines show up after a
// call to Wake.
func Run(ctx context.Context, screen tcell.Screen, v *View, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	w, h := screen.Size()
	v.SetBounds(0, 0, w, h)

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	for {
		v.Draw(screen)
		screen.Show()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			res, err := v.HandleEvent(screen, ev)
			if err != nil {
				return fmt.Errorf("handle event: %w", err)
			}
			if res.Quit {
				return nil
			}
			if res.Click.Kind == lines.ClickNavigateTo {
				logger.Info("navigate to %s at %s", res.Click.Location.URI, res.Click.Location.Range.Start)
			}
		}
	}
}
