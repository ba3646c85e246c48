package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Input
	HandleInput(key string) InputResult
	Teleport() InputResult

	// Read-only accessors for renderers
	CurrentScore() int
	CurrentPosition() Position
	ActiveGrid() GridID
	Motion() MotionState
	Snapshot() Snapshot

	// Render notifications
	Subscribe(listener RenderListener) func()

	// History and configuration
	GetMoveHistory() []MoveHistoryEntry
	GetConfig() *GameConfig

	Close()
}

// GameEngine implements the Engine interface. It owns the whole session
// context: both grids, the trail log, the move scheduler, the token's
// position and the score. A mutex serializes input handling with the
// scheduler's timer callbacks.
type GameEngine struct {
	mu sync.Mutex

	// Events waiting for delivery, in commit order. The goroutine that
	// finds draining unset delivers them all with mu released.
	outbox   []queuedEvent
	draining bool

	config *GameConfig
	clock  Clock
	logger *log.Entry
	seed   string
	rnd    RandomSource

	grids     *GridModel
	trail     *TrailTracker
	scheduler *MoveScheduler

	active GridID
	pos    Position
	score  int
	epoch  uint64 // number of teleports so far
	closed bool

	history    []MoveHistoryEntry
	totalMoves int

	listeners    map[int]RenderListener
	nextListener int
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithClock sets the clock that drives move delays
func WithClock(clock Clock) Option {
	return func(e *GameEngine) {
		e.clock = clock
	}
}

// WithSeed sets the phrase the main grid's rewards are seeded from
func WithSeed(seed string) Option {
	return func(e *GameEngine) {
		e.seed = seed
	}
}

// WithRandomSource seeds the main grid from rnd instead of the seed phrase
func WithRandomSource(rnd RandomSource) Option {
	return func(e *GameEngine) {
		e.rnd = rnd
	}
}

// WithLogger sets the log entry engine events are written to
func WithLogger(entry *log.Entry) Option {
	return func(e *GameEngine) {
		e.logger = entry
	}
}

// NewEngine creates a new game engine with the provided configuration. The
// traveler starts at (0,0) of the small grid with a score of zero.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config:    config,
		active:    Small,
		trail:     NewTrailTracker(),
		listeners: make(map[int]RenderListener),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		e.clock = NewSystemClock()
	}
	if e.logger == nil {
		e.logger = log.WithField("component", "engine")
	}
	if e.seed == "" {
		e.seed = config.Seed
	}
	if e.seed == "" {
		e.seed = uuid.NewString()
	}
	if e.rnd == nil {
		e.rnd = NewRandomSource(e.seed)
	}

	grids, err := NewGridModel(config, e.rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to build grids: %w", err)
	}
	e.grids = grids
	e.scheduler = NewMoveScheduler(e.clock, config.MoveDelay(), config.RareMoveDelay())

	e.logger.WithFields(log.Fields{
		"seed":        e.seed,
		"rare":        grids.Grid(Main).Count(Rare),
		"ultra_rare":  grids.Grid(Main).Count(UltraRare),
		"main_size":   config.MainGridSize,
		"small_size":  config.SmallGridSize,
		"config_name": config.Name,
	}).Debug("grids seeded")

	return e, nil
}

// NewEngineWithDefaults creates a new game engine with the classic configuration
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultGameConfig(), opts...)
	if err != nil {
		// the default configuration always validates
		panic(err)
	}
	return e
}

// HandleInput maps a key to a move or a teleport. Arrow keys request a
// move, space teleports, every other key is ignored without touching the
// motion lock.
func (e *GameEngine) HandleInput(raw string) InputResult {
	key := ParseKey(raw)
	if key == KeySpace {
		return e.Teleport()
	}

	dir, ok := key.Direction()
	if !ok {
		return InputResult{Key: key, Outcome: Ignored, Grid: e.ActiveGrid()}
	}

	return e.requestMove(key, dir)
}

func (e *GameEngine) requestMove(key Key, dir Direction) InputResult {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return InputResult{Key: key, Outcome: Ignored, Grid: e.active, From: e.pos, To: e.pos}
	}

	grid := e.grids.Grid(e.active)
	to := ClampMove(e.pos, dir, grid.Size())
	move, outcome := e.scheduler.Request(e.active, e.pos, to, grid.At(to), e.epoch)

	result := InputResult{Key: key, Outcome: outcome, Grid: e.active, From: e.pos, To: to}
	if outcome == NoOp {
		e.addHistoryLocked(MoveHistoryEntry{Action: string(dir), Outcome: NoOp, Grid: e.active, From: e.pos, To: e.pos})
	}
	if outcome != Scheduled {
		e.mu.Unlock()
		return result
	}

	result.Delay = move.Delay
	e.logger.WithFields(log.Fields{
		"grid":  move.Grid,
		"from":  move.From,
		"to":    move.To,
		"delay": move.Delay,
	}).Debug("move scheduled")

	id := move.ID
	if e.scheduler.Arm(func() { e.fire(id) }) {
		e.mu.Unlock()
		return result
	}

	// zero delay commits before the request returns
	ev, ok := e.commitLocked(id)
	if !ok {
		e.mu.Unlock()
		return result
	}
	e.dispatchAndUnlock(ev)
	return result
}

// fire runs when a pending move's delay has elapsed
func (e *GameEngine) fire(id uint64) {
	e.mu.Lock()
	ev, ok := e.commitLocked(id)
	if !ok {
		e.mu.Unlock()
		return
	}
	e.dispatchAndUnlock(ev)
}

// commitLocked applies the pending move identified by id. Caller holds e.mu.
func (e *GameEngine) commitLocked(id uint64) (RenderEvent, bool) {
	move, ok := e.scheduler.Complete(id)
	if !ok {
		return RenderEvent{}, false
	}
	if move.Epoch != e.epoch {
		return e.commitStaleLocked(move), true
	}

	grid := move.Grid
	trailed := e.grids.IsTrailed(grid, move.To)

	if grid == Main {
		e.trail.RecordVisit(move.From)
		e.grids.MarkTrailed(Main, move.From)
	}
	e.pos = move.To

	kind := e.grids.Consume(grid, move.To)
	delta := Award(grid, kind, trailed)
	e.score += delta

	ev := RenderEvent{
		Type:       EventMove,
		Grid:       grid,
		FromGrid:   grid,
		From:       move.From,
		To:         move.To,
		Score:      e.score,
		ScoreDelta: delta,
		Collected:  collected(kind),
		Timestamp:  e.clock.Now(),
	}
	if grid == Main {
		ev.Trail = e.trail.Positions()
	}

	e.addHistoryLocked(MoveHistoryEntry{
		Action:     string(directionBetween(move.From, move.To)),
		Outcome:    Scheduled,
		Grid:       grid,
		From:       move.From,
		To:         move.To,
		DelayMS:    move.Delay.Milliseconds(),
		ScoreDelta: delta,
		Collected:  ev.Collected,
	})

	e.logger.WithFields(log.Fields{
		"grid":      grid,
		"from":      move.From,
		"to":        move.To,
		"score":     e.score,
		"delta":     delta,
		"collected": ev.Collected,
	}).Debug("move committed")

	return ev, true
}

// commitStaleLocked applies a move that was still in flight when the
// traveler teleported away. The reward on the cell it was headed for is
// collected on the grid it was requested on, but the token stays put.
func (e *GameEngine) commitStaleLocked(move PendingMove) RenderEvent {
	trailed := e.grids.IsTrailed(move.Grid, move.To)
	kind := e.grids.Consume(move.Grid, move.To)
	delta := Award(move.Grid, kind, trailed)
	e.score += delta

	e.addHistoryLocked(MoveHistoryEntry{
		Action:     string(directionBetween(move.From, move.To)),
		Outcome:    Scheduled,
		Grid:       move.Grid,
		From:       move.From,
		To:         move.To,
		DelayMS:    move.Delay.Milliseconds(),
		ScoreDelta: delta,
		Collected:  collected(kind),
	})

	e.logger.WithFields(log.Fields{
		"grid":   move.Grid,
		"to":     move.To,
		"active": e.active,
		"delta":  delta,
	}).Warn("move committed after teleport")

	return RenderEvent{
		Type:       EventStaleCommit,
		Grid:       e.active,
		FromGrid:   move.Grid,
		From:       move.From,
		To:         move.To,
		Score:      e.score,
		ScoreDelta: delta,
		Collected:  collected(kind),
		Stale:      true,
		Timestamp:  e.clock.Now(),
	}
}

// Teleport switches to the other grid, placing the token at (0,0) and
// clearing the trail log. Under the "block" policy it is rejected as busy
// while a move is in flight.
func (e *GameEngine) Teleport() InputResult {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return InputResult{Key: KeySpace, Outcome: Ignored, Grid: e.active, From: e.pos, To: e.pos}
	}
	if e.scheduler.Locked() && e.config.BlocksTeleportWhilePending() {
		e.mu.Unlock()
		return InputResult{Key: KeySpace, Outcome: Busy, Grid: e.active, From: e.pos, To: e.pos}
	}

	fromGrid, fromPos := e.active, e.pos
	e.active = fromGrid.Other()
	e.pos = Position{}
	e.trail.Reset()
	e.epoch++

	ev := RenderEvent{
		Type:      EventTeleport,
		Grid:      e.active,
		FromGrid:  fromGrid,
		From:      fromPos,
		To:        e.pos,
		Score:     e.score,
		Timestamp: e.clock.Now(),
	}

	e.addHistoryLocked(MoveHistoryEntry{
		Action:  "teleport",
		Outcome: Teleported,
		Grid:    e.active,
		From:    fromPos,
		To:      e.pos,
	})

	e.logger.WithFields(log.Fields{
		"from_grid": fromGrid,
		"to_grid":   e.active,
		"pending":   e.scheduler.Locked(),
	}).Debug("teleported")

	result := InputResult{Key: KeySpace, Outcome: Teleported, Grid: e.active, From: fromPos, To: e.pos}
	e.dispatchAndUnlock(ev)
	return result
}

// queuedEvent is a render event and the listeners registered when it was
// committed
type queuedEvent struct {
	ev        RenderEvent
	listeners []RenderListener
}

// dispatchAndUnlock queues ev and releases e.mu. Unless another goroutine is
// already delivering, it then delivers every queued event in order, taking
// e.mu only to pop the queue. Listeners may read engine state and send input;
// events they cause are delivered after the current one.
func (e *GameEngine) dispatchAndUnlock(ev RenderEvent) {
	listeners := make([]RenderListener, 0, len(e.listeners))
	for id := 0; id < e.nextListener; id++ {
		if l, ok := e.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	e.outbox = append(e.outbox, queuedEvent{ev: ev, listeners: listeners})

	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	defer func() {
		e.draining = false
		e.mu.Unlock()
	}()

	for len(e.outbox) > 0 {
		next := e.outbox[0]
		e.outbox[0] = queuedEvent{}
		e.outbox = e.outbox[1:]

		e.mu.Unlock()
		e.deliver(next)
		e.mu.Lock()
	}
}

// deliver runs listeners without e.mu, retaking it if one panics so the
// drain loop's deferred unlock stays balanced
func (e *GameEngine) deliver(q queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			panic(r)
		}
	}()
	for _, l := range q.listeners {
		l(q.ev)
	}
}

// Subscribe registers a render listener and returns its cancel function
func (e *GameEngine) Subscribe(listener RenderListener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextListener
	e.nextListener++
	e.listeners[id] = listener

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// CurrentScore returns the current score
func (e *GameEngine) CurrentScore() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

// CurrentPosition returns the token's position on the active grid
func (e *GameEngine) CurrentPosition() Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

// ActiveGrid returns the grid the traveler occupies
func (e *GameEngine) ActiveGrid() GridID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Motion returns the scheduler state
func (e *GameEngine) Motion() MotionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.State()
}

// PendingMove returns the move in flight, if any
func (e *GameEngine) PendingMove() (PendingMove, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Pending()
}

// Seed returns the phrase the main grid was seeded from
func (e *GameEngine) Seed() string {
	return e.seed
}

// Snapshot returns a copy of the whole session state
func (e *GameEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		ActiveGrid: e.active,
		Position:   e.pos,
		Score:      e.score,
		Motion:     e.scheduler.State(),
		Trail:      e.trail.Positions(),
		Small:      e.grids.Grid(Small).View(),
		Main:       e.grids.Grid(Main).View(),
		Seed:       e.seed,
		ConfigName: e.config.Name,
		TotalMoves: e.totalMoves,
	}
	if move, ok := e.scheduler.Pending(); ok {
		to := move.To
		snap.Pending = &to
	}
	return snap
}

// GetMoveHistory returns the recorded history, oldest first
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]MoveHistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// GetConfig returns the game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// Grids exposes the grid model for inspection and test setup
func (e *GameEngine) Grids() *GridModel {
	return e.grids
}

// Close stops the move in flight and turns further input into no-ops
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.scheduler.Cancel()
}

// addHistoryLocked appends an entry, keeping at most MaxHistoryEntries. Caller holds e.mu.
func (e *GameEngine) addHistoryLocked(entry MoveHistoryEntry) {
	e.totalMoves++
	entry.MoveNumber = e.totalMoves
	entry.Timestamp = e.clock.Now().Unix()

	e.history = append(e.history, entry)
	if len(e.history) > MaxHistoryEntries {
		e.history = e.history[len(e.history)-MaxHistoryEntries:]
	}
}

func collected(kind CellKind) CellKind {
	if kind == Rare || kind == UltraRare {
		return kind
	}
	return ""
}

func directionBetween(from, to Position) Direction {
	switch {
	case to.Y < from.Y:
		return Up
	case to.Y > from.Y:
		return Down
	case to.X < from.X:
		return Left
	default:
		return Right
	}
}
