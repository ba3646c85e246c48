// Package config provides configuration management for the Trail Grid game.
//
// The config package handles:
//   - Loading game configurations from JSON files
//   - Default configuration management
//   - Configuration discovery and listing
//   - Saving validated configurations
//
// Configuration Format:
//
// Game configurations are stored as JSON files in the configs directory.
// Each configuration defines:
//   - Small and main grid sizes
//   - Rare and ultra-rare reward probabilities for the main grid
//   - Base and rare move delays in milliseconds
//   - The teleport policy while a move is in flight ("allow" or "block")
//   - An optional seed phrase for a reproducible main grid
//
// Fields left out of a file keep the classic defaults.
//
// Available Configurations:
//   - classic: 5x5 home grid, 20x20 main grid, 300ms/1200ms moves
//   - blitz: small grids, fast moves, teleports blocked while moving
//   - treasure: a large seeded grid dense with rewards
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("blitz")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
package config
