package terminal

import (
	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/trailgrid/game/engine"
)

// keyFor maps a terminal key to the key identifier the engine accepts.
// Anything else is reported as not a game key.
func keyFor(key tcell.Key, ch rune) (string, bool) {
	switch key {
	case tcell.KeyUp:
		return string(engine.KeyUp), true
	case tcell.KeyDown:
		return string(engine.KeyDown), true
	case tcell.KeyLeft:
		return string(engine.KeyLeft), true
	case tcell.KeyRight:
		return string(engine.KeyRight), true
	case tcell.KeyRune:
		if ch == ' ' {
			return string(engine.KeySpace), true
		}
	}
	return "", false
}

// isQuit reports whether the key ends the session
func isQuit(key tcell.Key, ch rune) bool {
	return key == tcell.KeyEscape || key == tcell.KeyCtrlC || (key == tcell.KeyRune && ch == 'q')
}
