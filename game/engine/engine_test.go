package engine

import (
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestConfig returns classic rules with no random rewards, so tests
// place rewards explicitly
func createTestConfig() *GameConfig {
	config := DefaultGameConfig()
	config.Name = "Engine Test Config"
	config.Description = "Configuration for engine integration tests"
	config.RareProbability = 0
	config.UltraRareProbability = 0
	return config
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func newTestEngine(t *testing.T, config *GameConfig) (*GameEngine, *ManualClock) {
	t.Helper()
	clock := NewManualClock(testEpoch)
	e, err := NewEngine(config, WithClock(clock), WithSeed("test-seed"), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return e, clock
}

// onMain teleports the traveler to the main grid
func onMain(t *testing.T, e *GameEngine) {
	t.Helper()
	if r := e.Teleport(); r.Outcome != Teleported || r.Grid != Main {
		t.Fatalf("Expected teleport to main, got %+v", r)
	}
}

func TestNewEngine(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())

	if e.ActiveGrid() != Small {
		t.Errorf("Expected to start on the small grid, got %s", e.ActiveGrid())
	}
	if e.CurrentPosition() != (Position{}) {
		t.Errorf("Expected to start at (0,0), got %+v", e.CurrentPosition())
	}
	if e.CurrentScore() != 0 {
		t.Errorf("Expected initial score 0, got %d", e.CurrentScore())
	}
	if e.Motion() != Idle {
		t.Errorf("Expected Idle, got %s", e.Motion())
	}
	if e.Seed() != "test-seed" {
		t.Errorf("Expected seed test-seed, got %q", e.Seed())
	}

	snap := e.Snapshot()
	if snap.Small.Size != DefaultSmallGridSize || snap.Main.Size != DefaultMainGridSize {
		t.Errorf("Unexpected grid sizes %d/%d", snap.Small.Size, snap.Main.Size)
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.MainGridSize = 0

	if _, err := NewEngine(config); err == nil {
		t.Fatal("Expected error for invalid config")
	}
	if _, err := NewEngine(nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}

func TestNewEngine_GeneratesSeed(t *testing.T) {
	e, err := NewEngine(createTestConfig(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if e.Seed() == "" {
		t.Error("Expected a generated seed")
	}
}

func TestEngine_SmallGridMovesAreInstant(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())

	result := e.HandleInput("ArrowRight")
	if result.Outcome != Scheduled {
		t.Fatalf("Expected Scheduled, got %s", result.Outcome)
	}
	if result.Delay != 0 {
		t.Errorf("Expected zero delay on the small grid, got %v", result.Delay)
	}
	if e.Motion() != Idle {
		t.Error("Expected zero-delay move to commit before returning")
	}
	if e.CurrentPosition() != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected (1,0), got %+v", e.CurrentPosition())
	}
	if e.CurrentScore() != 0 {
		t.Errorf("Expected small grid moves not to score, got %d", e.CurrentScore())
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("Expected no timers, got %d", clock.PendingTimers())
	}
	if len(e.Snapshot().Trail) != 0 {
		t.Error("Expected no trail on the small grid")
	}
}

func TestEngine_SmallGridRewardsDoNotScore(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())
	e.Grids().Grid(Small).SetKind(Position{X: 1, Y: 0}, Rare)

	result := e.HandleInput("ArrowRight")
	if result.Delay != 0 {
		t.Errorf("Expected instant move, got %v", result.Delay)
	}
	if e.CurrentScore() != 0 {
		t.Errorf("Expected score 0, got %d", e.CurrentScore())
	}
}

func TestEngine_NormalMainMove(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)

	result := e.HandleInput("ArrowRight")
	if result.Outcome != Scheduled {
		t.Fatalf("Expected Scheduled, got %s", result.Outcome)
	}
	if result.Delay != DefaultMoveDelay {
		t.Errorf("Expected %v delay, got %v", DefaultMoveDelay, result.Delay)
	}
	if e.Motion() != Pending {
		t.Fatal("Expected Pending during the delay")
	}
	if e.CurrentPosition() != (Position{}) {
		t.Error("Expected position unchanged before commit")
	}

	clock.Advance(DefaultMoveDelay - time.Millisecond)
	if e.Motion() != Pending {
		t.Fatal("Expected still Pending before the delay elapsed")
	}

	clock.Advance(time.Millisecond)
	if e.Motion() != Idle {
		t.Fatal("Expected Idle after commit")
	}
	if e.CurrentPosition() != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected (1,0), got %+v", e.CurrentPosition())
	}
	if e.CurrentScore() != NormalScore {
		t.Errorf("Expected score %d, got %d", NormalScore, e.CurrentScore())
	}
	if !e.Grids().IsTrailed(Main, Position{}) {
		t.Error("Expected departure cell to be trailed")
	}
	if e.Grids().IsTrailed(Main, Position{X: 1, Y: 0}) {
		t.Error("Expected occupied cell not to be trailed")
	}
}

func TestEngine_TrailedCellIsFreeAndScoresNothing(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)

	e.HandleInput("ArrowRight")
	clock.Advance(DefaultMoveDelay)

	result := e.HandleInput("ArrowLeft")
	if result.Delay != 0 {
		t.Errorf("Expected instant move onto trail, got %v", result.Delay)
	}
	if e.Motion() != Idle {
		t.Error("Expected inline commit")
	}
	if e.CurrentPosition() != (Position{}) {
		t.Errorf("Expected (0,0), got %+v", e.CurrentPosition())
	}
	if e.CurrentScore() != NormalScore {
		t.Errorf("Expected score to stay %d, got %d", NormalScore, e.CurrentScore())
	}
	if !e.Grids().IsTrailed(Main, Position{X: 1, Y: 0}) {
		t.Error("Expected (1,0) trailed after leaving it")
	}
	// the occupied cell keeps its trail flag
	if !e.Grids().IsTrailed(Main, Position{}) {
		t.Error("Expected (0,0) to remain trailed")
	}

	trail := e.Snapshot().Trail
	if len(trail) != 2 || trail[0] != (Position{}) || trail[1] != (Position{X: 1, Y: 0}) {
		t.Errorf("Unexpected trail log %+v", trail)
	}
}

func TestEngine_RewardCells(t *testing.T) {
	tests := []struct {
		name  string
		kind  CellKind
		delay time.Duration
		score int
	}{
		{"rare", Rare, DefaultRareMoveDelay, RareScore},
		{"ultra rare", UltraRare, DefaultMoveDelay, UltraRareScore},
		{"normal", Normal, DefaultMoveDelay, NormalScore},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, clock := newTestEngine(t, createTestConfig())
			onMain(t, e)
			target := Position{X: 0, Y: 1}
			e.Grids().Grid(Main).SetKind(target, test.kind)

			var events []RenderEvent
			e.Subscribe(func(ev RenderEvent) { events = append(events, ev) })

			result := e.HandleInput("ArrowDown")
			if result.Delay != test.delay {
				t.Errorf("Expected delay %v, got %v", test.delay, result.Delay)
			}

			clock.Advance(test.delay)
			if e.CurrentScore() != test.score {
				t.Errorf("Expected score %d, got %d", test.score, e.CurrentScore())
			}
			if kind := e.Grids().KindAt(Main, target); kind != Normal {
				t.Errorf("Expected reward consumed to normal, got %s", kind)
			}
			if len(events) != 1 {
				t.Fatalf("Expected 1 event, got %d", len(events))
			}
			if events[0].ScoreDelta != test.score {
				t.Errorf("Expected event delta %d, got %d", test.score, events[0].ScoreDelta)
			}
			if test.kind != Normal && events[0].Collected != test.kind {
				t.Errorf("Expected collected %s, got %q", test.kind, events[0].Collected)
			}
		})
	}
}

func TestEngine_RewardCollectedOnce(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)
	e.Grids().Grid(Main).SetKind(Position{X: 1, Y: 0}, Rare)

	e.HandleInput("ArrowRight")
	clock.Advance(DefaultRareMoveDelay)
	e.HandleInput("ArrowLeft")
	e.HandleInput("ArrowRight")

	// (1,0) is now a trailed normal cell
	if e.CurrentScore() != RareScore {
		t.Errorf("Expected score %d, got %d", RareScore, e.CurrentScore())
	}
	if e.Motion() != Idle {
		t.Error("Expected trailed return moves to be instant")
	}
}

func TestEngine_BusyWhilePending(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)

	if r := e.HandleInput("ArrowRight"); r.Outcome != Scheduled {
		t.Fatalf("Expected Scheduled, got %s", r.Outcome)
	}
	for i := 0; i < 5; i++ {
		if r := e.HandleInput("ArrowDown"); r.Outcome != Busy {
			t.Errorf("Expected Busy on repeat %d, got %s", i, r.Outcome)
		}
	}

	clock.Advance(time.Second)
	if e.CurrentPosition() != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected only the first move to commit, got %+v", e.CurrentPosition())
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("Expected no stray timers, got %d", clock.PendingTimers())
	}
}

func TestEngine_BoundaryIsNoOp(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)

	for _, key := range []string{"ArrowUp", "ArrowLeft"} {
		r := e.HandleInput(key)
		if r.Outcome != NoOp {
			t.Errorf("Expected NoOp for %s at the corner, got %s", key, r.Outcome)
		}
	}
	if e.Motion() != Idle {
		t.Error("Expected a wall bump not to lock input")
	}
	if clock.PendingTimers() != 0 {
		t.Error("Expected no timer for a wall bump")
	}
	if r := e.HandleInput("ArrowRight"); r.Outcome != Scheduled {
		t.Errorf("Expected next move to be accepted, got %s", r.Outcome)
	}
}

func TestEngine_IgnoredKeys(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())
	onMain(t, e)
	e.HandleInput("ArrowRight")

	for _, key := range []string{"a", "Enter", "Escape", ""} {
		if r := e.HandleInput(key); r.Outcome != Ignored {
			t.Errorf("Expected Ignored for %q, got %s", key, r.Outcome)
		}
	}
	if e.Motion() != Pending {
		t.Error("Expected ignored keys to leave the pending move alone")
	}
}

func TestEngine_Teleport(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)

	e.HandleInput("ArrowRight")
	clock.Advance(DefaultMoveDelay)
	e.HandleInput("ArrowDown")
	clock.Advance(DefaultMoveDelay)

	r := e.HandleInput(" ")
	if r.Outcome != Teleported {
		t.Fatalf("Expected Teleported, got %s", r.Outcome)
	}
	if e.ActiveGrid() != Small {
		t.Errorf("Expected small grid, got %s", e.ActiveGrid())
	}
	if e.CurrentPosition() != (Position{}) {
		t.Errorf("Expected (0,0) after teleport, got %+v", e.CurrentPosition())
	}
	if len(e.Snapshot().Trail) != 0 {
		t.Error("Expected trail log reset by teleport")
	}
	// trail flags on the grid persist
	if !e.Grids().IsTrailed(Main, Position{X: 1, Y: 0}) {
		t.Error("Expected main grid trail flags to persist")
	}
	if e.Grids().IsTrailed(Main, Position{X: 1, Y: 1}) {
		t.Error("Expected teleport not to mark the departure cell")
	}
	if e.CurrentScore() != 2*NormalScore {
		t.Errorf("Expected score kept across teleport, got %d", e.CurrentScore())
	}

	onMain(t, e)
	if e.CurrentPosition() != (Position{}) {
		t.Error("Expected main grid entry at (0,0)")
	}
}

func TestEngine_TeleportWhilePendingGoesStale(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)
	e.Grids().Grid(Main).SetKind(Position{X: 1, Y: 0}, Rare)

	var events []RenderEvent
	e.Subscribe(func(ev RenderEvent) { events = append(events, ev) })

	e.HandleInput("ArrowRight")
	if r := e.Teleport(); r.Outcome != Teleported {
		t.Fatalf("Expected teleport allowed while pending, got %s", r.Outcome)
	}
	if r := e.HandleInput("ArrowRight"); r.Outcome != Busy {
		t.Errorf("Expected Busy until the old move commits, got %s", r.Outcome)
	}

	clock.Advance(DefaultRareMoveDelay)

	if e.ActiveGrid() != Small || e.CurrentPosition() != (Position{}) {
		t.Errorf("Expected token to stay at small (0,0), got %s %+v", e.ActiveGrid(), e.CurrentPosition())
	}
	if e.CurrentScore() != RareScore {
		t.Errorf("Expected the stale commit to collect the reward, got %d", e.CurrentScore())
	}
	if e.Grids().KindAt(Main, Position{X: 1, Y: 0}) != Normal {
		t.Error("Expected the reward consumed")
	}
	if e.Grids().IsTrailed(Main, Position{}) {
		t.Error("Expected a stale commit not to lay trail")
	}
	if e.Motion() != Idle {
		t.Error("Expected Idle after the stale commit")
	}

	if len(events) != 2 || events[0].Type != EventTeleport || events[1].Type != EventStaleCommit {
		t.Fatalf("Expected teleport then stale commit, got %+v", events)
	}
	if !events[1].Stale || events[1].FromGrid != Main || events[1].Grid != Small {
		t.Errorf("Unexpected stale event %+v", events[1])
	}
}

func TestEngine_TeleportBlockedWhilePending(t *testing.T) {
	config := createTestConfig()
	config.TeleportWhilePending = TeleportBlock
	e, clock := newTestEngine(t, config)
	onMain(t, e)

	e.HandleInput("ArrowRight")
	if r := e.Teleport(); r.Outcome != Busy {
		t.Fatalf("Expected Busy, got %s", r.Outcome)
	}
	if e.ActiveGrid() != Main {
		t.Error("Expected to stay on the main grid")
	}

	clock.Advance(DefaultMoveDelay)
	if e.CurrentPosition() != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected normal commit, got %+v", e.CurrentPosition())
	}
	if r := e.Teleport(); r.Outcome != Teleported {
		t.Errorf("Expected teleport once Idle, got %s", r.Outcome)
	}
}

func TestEngine_ZeroDelayConfig(t *testing.T) {
	config := createTestConfig()
	config.MoveDelayMS = 0
	config.RareMoveDelayMS = 0
	e, clock := newTestEngine(t, config)
	onMain(t, e)

	for i := 0; i < 3; i++ {
		if r := e.HandleInput("ArrowRight"); r.Outcome != Scheduled {
			t.Fatalf("Expected Scheduled, got %s", r.Outcome)
		}
	}
	if e.CurrentPosition() != (Position{X: 3, Y: 0}) {
		t.Errorf("Expected (3,0), got %+v", e.CurrentPosition())
	}
	if e.CurrentScore() != 3 {
		t.Errorf("Expected score 3, got %d", e.CurrentScore())
	}
	if clock.PendingTimers() != 0 {
		t.Error("Expected no timers with zero delays")
	}
}

func TestEngine_SubscribeAndUnsubscribe(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())

	var got []RenderEvent
	cancel := e.Subscribe(func(ev RenderEvent) { got = append(got, ev) })

	e.HandleInput("ArrowDown")
	onMain(t, e)
	e.HandleInput("ArrowRight")
	clock.Advance(DefaultMoveDelay)

	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(got))
	}
	if got[0].Type != EventMove || got[0].Grid != Small {
		t.Errorf("Unexpected first event %+v", got[0])
	}
	if got[1].Type != EventTeleport || got[1].Grid != Main {
		t.Errorf("Unexpected second event %+v", got[1])
	}
	if got[2].Score != NormalScore || len(got[2].Trail) != 1 {
		t.Errorf("Unexpected third event %+v", got[2])
	}

	cancel()
	e.HandleInput("ArrowLeft")
	if len(got) != 3 {
		t.Errorf("Expected no events after unsubscribe, got %d", len(got))
	}
}

func TestEngine_ListenerCanReadState(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)

	var score int
	e.Subscribe(func(ev RenderEvent) { score = e.CurrentScore() })

	e.HandleInput("ArrowRight")
	clock.Advance(DefaultMoveDelay)
	if score != NormalScore {
		t.Errorf("Expected listener to observe score %d, got %d", NormalScore, score)
	}
}

func TestEngine_SnapshotIsCopy(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())

	snap := e.Snapshot()
	snap.Main.Cells[0][0].Kind = UltraRare
	if e.Grids().KindAt(Main, Position{}) != Normal {
		t.Error("Expected snapshot mutation not to reach the engine")
	}
}

func TestEngine_SnapshotPending(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())
	onMain(t, e)
	e.HandleInput("ArrowDown")

	snap := e.Snapshot()
	if snap.Motion != Pending {
		t.Error("Expected Pending in snapshot")
	}
	if snap.Pending == nil || *snap.Pending != (Position{X: 0, Y: 1}) {
		t.Errorf("Expected pending destination (0,1), got %v", snap.Pending)
	}
	move, ok := e.PendingMove()
	if !ok || move.Grid != Main || move.Delay != DefaultMoveDelay {
		t.Errorf("Unexpected pending move %+v", move)
	}
}

func TestEngine_MoveHistory(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())

	e.HandleInput("ArrowUp") // wall
	e.HandleInput("ArrowRight")
	onMain(t, e)
	e.HandleInput("ArrowDown")
	clock.Advance(DefaultMoveDelay)

	history := e.GetMoveHistory()
	if len(history) != 4 {
		t.Fatalf("Expected 4 history entries, got %d", len(history))
	}

	expected := []struct {
		action  string
		outcome Outcome
	}{
		{"up", NoOp},
		{"right", Scheduled},
		{"teleport", Teleported},
		{"down", Scheduled},
	}
	for i, want := range expected {
		if history[i].Action != want.action || history[i].Outcome != want.outcome {
			t.Errorf("Entry %d: expected %s/%s, got %s/%s", i, want.action, want.outcome, history[i].Action, history[i].Outcome)
		}
		if history[i].MoveNumber != i+1 {
			t.Errorf("Entry %d: expected move number %d, got %d", i, i+1, history[i].MoveNumber)
		}
	}
	if history[3].DelayMS != DefaultMoveDelay.Milliseconds() || history[3].ScoreDelta != NormalScore {
		t.Errorf("Unexpected last entry %+v", history[3])
	}
	if e.Snapshot().TotalMoves != 4 {
		t.Errorf("Expected 4 total moves, got %d", e.Snapshot().TotalMoves)
	}
}

func TestEngine_MoveHistoryCapped(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())

	for i := 0; i < MaxHistoryEntries+10; i++ {
		e.HandleInput("ArrowUp")
	}

	history := e.GetMoveHistory()
	if len(history) != MaxHistoryEntries {
		t.Fatalf("Expected %d entries, got %d", MaxHistoryEntries, len(history))
	}
	if history[0].MoveNumber != 11 {
		t.Errorf("Expected oldest entries dropped, first is %d", history[0].MoveNumber)
	}
}

func TestEngine_Close(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)
	e.HandleInput("ArrowRight")

	e.Close()
	if e.Motion() != Idle {
		t.Error("Expected Close to cancel the pending move")
	}
	clock.Advance(time.Second)
	if e.CurrentPosition() != (Position{}) {
		t.Error("Expected cancelled move never to commit")
	}
	if r := e.HandleInput("ArrowRight"); r.Outcome != Ignored {
		t.Errorf("Expected input ignored after Close, got %s", r.Outcome)
	}
	if r := e.Teleport(); r.Outcome != Ignored {
		t.Errorf("Expected teleport ignored after Close, got %s", r.Outcome)
	}
	e.Close()
}

func TestEngine_SameSeedSameGrid(t *testing.T) {
	config := DefaultGameConfig()
	a, err := NewEngine(config, WithSeed("alpha"), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	b, err := NewEngine(config, WithSeed("alpha"), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	va, vb := a.Snapshot().Main, b.Snapshot().Main
	for y := range va.Cells {
		for x := range va.Cells[y] {
			if va.Cells[y][x] != vb.Cells[y][x] {
				t.Fatalf("Grids differ at (%d,%d)", x, y)
			}
		}
	}
}

func TestEngine_ConcurrentInput(t *testing.T) {
	config := createTestConfig()
	config.MoveDelayMS = 1
	config.RareMoveDelayMS = 2
	e, err := NewEngine(config, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer e.Close()
	e.Teleport()

	keys := []string{"ArrowRight", "ArrowDown", "ArrowLeft", "ArrowUp", " "}
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.HandleInput(keys[(i+offset)%len(keys)])
				_ = e.Snapshot()
			}
		}(g)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for e.Motion() == Pending && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if e.Motion() != Idle {
		t.Fatal("Expected the engine to settle")
	}

	snap := e.Snapshot()
	size := snap.Small.Size
	if snap.ActiveGrid == Main {
		size = snap.Main.Size
	}
	if snap.Position.X < 0 || snap.Position.X >= size || snap.Position.Y < 0 || snap.Position.Y >= size {
		t.Errorf("Position %+v out of bounds", snap.Position)
	}
	if snap.Score < 0 {
		t.Errorf("Expected non-negative score, got %d", snap.Score)
	}
}

func TestEngine_UltraRareThenNormalSequence(t *testing.T) {
	e, clock := newTestEngine(t, createTestConfig())
	onMain(t, e)
	reward := Position{X: 1, Y: 0}
	next := Position{X: 2, Y: 0}
	e.Grids().Grid(Main).SetKind(reward, UltraRare)

	e.HandleInput("ArrowRight")
	clock.Advance(DefaultMoveDelay)

	if e.CurrentScore() != UltraRareScore {
		t.Fatalf("Expected score %d after the ultra rare cell, got %d", UltraRareScore, e.CurrentScore())
	}
	if e.Grids().IsTrailed(Main, reward) {
		t.Error("Expected (1,0) untrailed while the token stands on it")
	}
	if !e.Grids().IsTrailed(Main, Position{}) {
		t.Error("Expected departure cell (0,0) trailed")
	}

	result := e.HandleInput("ArrowRight")
	if result.Delay != DefaultMoveDelay {
		t.Errorf("Expected delay %v onto an untrailed normal cell, got %v", DefaultMoveDelay, result.Delay)
	}
	clock.Advance(DefaultMoveDelay)

	if e.CurrentScore() != UltraRareScore+NormalScore {
		t.Errorf("Expected score %d, got %d", UltraRareScore+NormalScore, e.CurrentScore())
	}
	if !e.Grids().IsTrailed(Main, reward) {
		t.Error("Expected (1,0) trailed after leaving it")
	}
	if e.Grids().IsTrailed(Main, next) {
		t.Error("Expected (2,0) untrailed")
	}
	if kind := e.Grids().KindAt(Main, reward); kind != Normal {
		t.Errorf("Expected (1,0) consumed to normal, got %s", kind)
	}
	if pos := e.CurrentPosition(); pos != next {
		t.Errorf("Expected position %+v, got %+v", next, pos)
	}
}

func TestEngine_ListenerReadsStateDuringConcurrentInput(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig())

	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	first := true
	var grids []GridID
	e.Subscribe(func(ev RenderEvent) {
		mu.Lock()
		block := first
		first = false
		mu.Unlock()

		if block {
			close(entered)
			<-release
		}
		_ = e.CurrentScore()

		mu.Lock()
		grids = append(grids, ev.Grid)
		mu.Unlock()
	})

	firstDone := make(chan InputResult, 1)
	go func() { firstDone <- e.HandleInput(" ") }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the listener to receive the first teleport")
	}

	secondDone := make(chan InputResult, 1)
	go func() { secondDone <- e.HandleInput(" ") }()

	select {
	case r := <-secondDone:
		if r.Outcome != Teleported {
			t.Errorf("Expected second input to teleport, got %s", r.Outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected second teleport to return while a listener is running")
	}

	close(release)

	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected first teleport to finish once the listener read state")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(grids) != 2 || grids[0] != Main || grids[1] != Small {
		t.Errorf("Expected events for main then small in commit order, got %v", grids)
	}
}
