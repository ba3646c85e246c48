// Package engine provides the core game logic for the Trail Grid game.
//
// The engine package implements the game mechanics including:
//   - Two grids (a small home grid and a larger main grid) with rare and
//     ultra-rare reward cells seeded from a reproducible random source
//   - A trail left on the main grid that makes revisits free
//   - The single-flight movement state machine that turns key presses into
//     delayed moves
//   - Teleporting between the two grids
//   - Configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GridModel holds both grids, TrailTracker keeps
// the trail log of the current main-grid visit, and MoveScheduler owns the
// Idle/Pending motion state and the timer of the move in flight. GameConfig
// defines grid sizes, reward probabilities and move delays loaded from JSON.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config, engine.WithSeed("demo"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gameEngine.Close()
//
//	gameEngine.Subscribe(func(ev engine.RenderEvent) {
//		fmt.Println(ev.Type, ev.To, ev.Score)
//	})
//
//	gameEngine.HandleInput(" ")          // teleport to the main grid
//	gameEngine.HandleInput("ArrowRight") // move after the cell's delay
//
// Game Rules:
//
// The traveler starts at (0,0) of the small grid. Moves on the small grid
// are instant and never score. On the main grid a move takes 300ms, or
// 1200ms onto a rare cell, and is free onto a cell the trail already covers.
// Entering an untrailed normal main cell scores 1, a rare cell 50 and an
// ultra-rare cell 1000; reward cells turn normal once collected. Only one
// move can be in flight at a time; further presses are dropped as busy.
package engine
