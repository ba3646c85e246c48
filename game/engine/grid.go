package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// RandomSource yields uniform samples in [0,1); *rand.Rand satisfies it
type RandomSource interface {
	Float64() float64
}

// SeedFromPhrase derives a deterministic int64 seed from a seed phrase
func SeedFromPhrase(phrase string) int64 {
	sum := sha256.Sum256([]byte(phrase))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// NewRandomSource returns a reproducible random source for the seed phrase
func NewRandomSource(phrase string) *rand.Rand {
	return rand.New(rand.NewSource(SeedFromPhrase(phrase)))
}

// Grid is one square board of cells
type Grid struct {
	id    GridID
	size  int
	cells [][]Cell
}

// NewGrid creates a grid of the given size with every cell Normal
func NewGrid(id GridID, size int) *Grid {
	cells := make([][]Cell, size)
	for y := range cells {
		cells[y] = make([]Cell, size)
		for x := range cells[y] {
			cells[y][x] = Cell{Kind: Normal}
		}
	}
	return &Grid{id: id, size: size, cells: cells}
}

// ID returns the grid identity
func (g *Grid) ID() GridID {
	return g.id
}

// Size returns the width (and height) of the grid
func (g *Grid) Size() int {
	return g.size
}

// InBounds reports whether pos lies inside the grid
func (g *Grid) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < g.size && pos.Y >= 0 && pos.Y < g.size
}

// At returns the cell at pos; out-of-bounds positions read as an untrailed Normal cell
func (g *Grid) At(pos Position) Cell {
	if !g.InBounds(pos) {
		return Cell{Kind: Normal}
	}
	return g.cells[pos.Y][pos.X]
}

// SetKind overwrites the kind of the cell at pos
func (g *Grid) SetKind(pos Position, kind CellKind) {
	if g.InBounds(pos) {
		g.cells[pos.Y][pos.X].Kind = kind
	}
}

// View returns a deep copy of the grid's cells
func (g *Grid) View() GridView {
	cells := make([][]Cell, g.size)
	for y := range g.cells {
		cells[y] = make([]Cell, g.size)
		copy(cells[y], g.cells[y])
	}
	return GridView{ID: g.id, Size: g.size, Cells: cells}
}

// Count returns the number of cells of the given kind
func (g *Grid) Count(kind CellKind) int {
	count := 0
	for _, row := range g.cells {
		for _, cell := range row {
			if cell.Kind == kind {
				count++
			}
		}
	}
	return count
}

// GridModel holds the persistent cell state of both grids
type GridModel struct {
	small *Grid
	main  *Grid
}

// NewGridModel builds both grids from the configuration. The small grid is
// all Normal; every main cell draws a single sample, checked against the
// ultra-rare probability first and the rare probability second.
func NewGridModel(config *GameConfig, rnd RandomSource) (*GridModel, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if rnd == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	m := &GridModel{
		small: NewGrid(Small, config.SmallGridSize),
		main:  NewGrid(Main, config.MainGridSize),
	}
	seedRewards(m.main, rnd, config.UltraRareProbability, config.RareProbability)
	return m, nil
}

func seedRewards(g *Grid, rnd RandomSource, ultraRare, rare float64) {
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			u := rnd.Float64()
			switch {
			case u < ultraRare:
				g.cells[y][x].Kind = UltraRare
			case u < rare:
				g.cells[y][x].Kind = Rare
			default:
				g.cells[y][x].Kind = Normal
			}
		}
	}
}

// Grid returns the grid with the given identity
func (m *GridModel) Grid(id GridID) *Grid {
	if id == Main {
		return m.main
	}
	return m.small
}

// KindAt returns the kind of the cell at pos
func (m *GridModel) KindAt(id GridID, pos Position) CellKind {
	return m.Grid(id).At(pos).Kind
}

// Consume downgrades a Rare or UltraRare cell to Normal and returns the
// kind it had before. Consuming a Normal cell is a no-op.
func (m *GridModel) Consume(id GridID, pos Position) CellKind {
	g := m.Grid(id)
	kind := g.At(pos).Kind
	if kind == Rare || kind == UltraRare {
		g.SetKind(pos, Normal)
	}
	return kind
}

// IsTrailed reports whether the cell at pos carries the trail
func (m *GridModel) IsTrailed(id GridID, pos Position) bool {
	return m.Grid(id).At(pos).Trailed
}

// MarkTrailed sets the trail flag on the cell at pos; once set it stays set
func (m *GridModel) MarkTrailed(id GridID, pos Position) {
	g := m.Grid(id)
	if g.InBounds(pos) {
		g.cells[pos.Y][pos.X].Trailed = true
	}
}
