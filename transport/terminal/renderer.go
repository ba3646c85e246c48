package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/trailgrid/game/engine"
)

const (
	gridTop      = 3
	cellWidth    = 2
	gridGap      = 4
	progressBars = 20
)

// Glyphs
const (
	glyphToken     = '@'
	glyphPending   = '+'
	glyphNormal    = '.'
	glyphTrailed   = '#'
	glyphRare      = 'r'
	glyphUltraRare = 'U'
	glyphBarFull   = '='
	glyphBarEmpty  = ' '
)

var (
	styleDefault   = tcell.StyleDefault
	styleTitle     = tcell.StyleDefault.Bold(true)
	styleDim       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleToken     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true).Reverse(true)
	stylePending   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleTrailed   = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleRare      = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleUltraRare = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
)

// Canvas is the part of a tcell.Screen the renderer draws on
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Clear()
	Show()
	Size() (int, int)
}

// Frame is everything one redraw shows
type Frame struct {
	Snapshot engine.Snapshot
	Status   string
	Progress float32 // 0..1 while a move is pending
}

// Renderer paints frames onto a canvas
type Renderer struct {
	canvas Canvas
}

// NewRenderer creates a renderer for canvas
func NewRenderer(canvas Canvas) *Renderer {
	return &Renderer{canvas: canvas}
}

// Draw clears the canvas and paints f
func (r *Renderer) Draw(f Frame) {
	snap := f.Snapshot
	r.canvas.Clear()

	r.text(0, 0, styleTitle, "Trail Grid")
	r.text(12, 0, styleDefault, fmt.Sprintf("score: %d   grid: %s   moves: %d", snap.Score, snap.ActiveGrid, snap.TotalMoves))
	if snap.Seed != "" {
		r.text(0, 1, styleDim, "seed: "+snap.Seed)
	}

	smallX, mainX := r.origins(snap)
	r.text(smallX, gridTop-1, labelStyle(snap, engine.Small), "small")
	r.text(mainX, gridTop-1, labelStyle(snap, engine.Main), "main")
	r.grid(smallX, snap.Small, snap)
	r.grid(mainX, snap.Main, snap)

	y := gridTop + max(snap.Small.Size, snap.Main.Size) + 1
	if snap.Motion == engine.Pending {
		r.bar(0, y, f.Progress)
	}
	r.text(0, y+1, styleDefault, f.Status)
	r.text(0, y+2, styleDim, "arrows: move   space: teleport   q: quit")

	r.canvas.Show()
}

// origins returns the left column of the small and the main grid
func (r *Renderer) origins(snap engine.Snapshot) (int, int) {
	return 0, snap.Small.Size*cellWidth + gridGap
}

func labelStyle(snap engine.Snapshot, id engine.GridID) tcell.Style {
	if snap.ActiveGrid == id {
		return styleTitle
	}
	return styleDim
}

func (r *Renderer) grid(left int, view engine.GridView, snap engine.Snapshot) {
	active := view.ID == snap.ActiveGrid

	for y, row := range view.Cells {
		for x, cell := range row {
			pos := engine.Position{X: x, Y: y}
			glyph, style := cellGlyph(cell)

			switch {
			case active && pos == snap.Position:
				glyph, style = glyphToken, styleToken
			case active && snap.Pending != nil && pos == *snap.Pending:
				glyph, style = glyphPending, stylePending
			case !active:
				style = styleDim
			}

			r.canvas.SetContent(left+x*cellWidth, gridTop+y, glyph, nil, style)
		}
	}
}

func cellGlyph(cell engine.Cell) (rune, tcell.Style) {
	switch {
	case cell.Kind == engine.UltraRare:
		return glyphUltraRare, styleUltraRare
	case cell.Kind == engine.Rare:
		return glyphRare, styleRare
	case cell.Trailed:
		return glyphTrailed, styleTrailed
	default:
		return glyphNormal, styleDefault
	}
}

func (r *Renderer) bar(x, y int, progress float32) {
	filled := int(progress*progressBars + 0.5)
	filled = min(max(filled, 0), progressBars)

	r.canvas.SetContent(x, y, '[', nil, styleDefault)
	for i := 0; i < progressBars; i++ {
		glyph := glyphBarEmpty
		if i < filled {
			glyph = glyphBarFull
		}
		r.canvas.SetContent(x+1+i, y, glyph, nil, stylePending)
	}
	r.canvas.SetContent(x+1+progressBars, y, ']', nil, styleDefault)
}

func (r *Renderer) text(x, y int, style tcell.Style, s string) {
	for i, ch := range []rune(s) {
		r.canvas.SetContent(x+i, y, ch, nil, style)
	}
}
