package engine

import "strings"

// ParseKey normalizes an input key identifier. Browser key names are
// accepted as is, along with lower-case direction words and "space".
func ParseKey(raw string) Key {
	switch raw {
	case string(KeyUp), string(KeyDown), string(KeyLeft), string(KeyRight), string(KeySpace):
		return Key(raw)
	}

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "up", "arrowup":
		return KeyUp
	case "down", "arrowdown":
		return KeyDown
	case "left", "arrowleft":
		return KeyLeft
	case "right", "arrowright":
		return KeyRight
	case "space", "spacebar", "teleport":
		return KeySpace
	}
	return KeyOther
}

// Direction returns the move a key requests, if any
func (k Key) Direction() (Direction, bool) {
	switch k {
	case KeyUp:
		return Up, true
	case KeyDown:
		return Down, true
	case KeyLeft:
		return Left, true
	case KeyRight:
		return Right, true
	}
	return "", false
}

// ClampMove returns the cell one step from pos in dir, or pos itself when
// the step would leave a grid of the given size
func ClampMove(pos Position, dir Direction, size int) Position {
	next := pos

	switch dir {
	case Up:
		if pos.Y > 0 {
			next.Y--
		}
	case Down:
		if pos.Y < size-1 {
			next.Y++
		}
	case Left:
		if pos.X > 0 {
			next.X--
		}
	case Right:
		if pos.X < size-1 {
			next.X++
		}
	}

	return next
}

// Award returns the score for arriving on a cell of the given kind: the
// one-time rewards for rare and ultra-rare cells, one point for an
// untrailed normal main cell, nothing otherwise. The small grid never scores.
func Award(grid GridID, kind CellKind, trailed bool) int {
	switch {
	case grid == Small:
		return 0
	case kind == UltraRare:
		return UltraRareScore
	case kind == Rare:
		return RareScore
	case !trailed:
		return NormalScore
	default:
		return 0
	}
}
