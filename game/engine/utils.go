package engine

// CountKind counts the cells of the given kind in a grid view
func CountKind(view GridView, kind CellKind) int {
	count := 0
	for _, row := range view.Cells {
		for _, cell := range row {
			if cell.Kind == kind {
				count++
			}
		}
	}
	return count
}

// MaxPotentialScore is the score still collectable on a main grid view:
// every remaining reward plus one point per untrailed normal cell
func MaxPotentialScore(view GridView) int {
	if view.ID == Small {
		return 0
	}
	total := 0
	for _, row := range view.Cells {
		for _, cell := range row {
			total += Award(Main, cell.Kind, cell.Trailed)
		}
	}
	return total
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// FindNearestReward finds the closest rare or ultra-rare cell on the active
// grid of a snapshot and returns its position, kind and distance
func FindNearestReward(snap Snapshot) (Position, CellKind, int, bool) {
	view := snap.Small
	if snap.ActiveGrid == Main {
		view = snap.Main
	}

	minDistance := -1
	var nearestPos Position
	var nearestKind CellKind

	for y, row := range view.Cells {
		for x, cell := range row {
			if cell.Kind != Rare && cell.Kind != UltraRare {
				continue
			}
			pos := Position{X: x, Y: y}
			distance := ManhattanDistance(snap.Position, pos)
			if minDistance == -1 || distance < minDistance {
				minDistance = distance
				nearestPos = pos
				nearestKind = cell.Kind
			}
		}
	}

	return nearestPos, nearestKind, minDistance, minDistance != -1
}
