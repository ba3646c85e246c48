// Package validate checks game configuration JSON files. For each file it
// reports:
//   - unreadable files and malformed JSON
//   - unknown fields (usually a misspelled key)
//   - rule violations: grid sizes, probabilities, delays, teleport policy
//   - playability warnings, such as a main grid with no chance of rewards
//
// The trailgrid CLI exposes it as the "validate" command.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/trailgrid/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Info lines are only filled for valid files.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// File loads and validates a single configuration file
func File(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail(fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	return Bytes(result.File, data)
}

// Bytes validates configuration JSON held in memory
func Bytes(name string, data []byte) ValidationResult {
	result := ValidationResult{
		File:  name,
		Valid: true,
	}

	// Strict decode first so misspelled keys are caught before defaults hide them
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var strict engine.GameConfig
	if err := dec.Decode(&strict); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			result.fail(fmt.Sprintf("Invalid JSON: %v", err))
			return result
		}
		result.fail(fmt.Sprintf("Invalid field: %v", err))
	}

	config, err := engine.ParseGameConfig(data)
	if err != nil {
		result.fail(strings.TrimPrefix(err.Error(), engine.ErrInvalidConfig.Error()+": "))
		return result
	}
	if !result.Valid {
		return result
	}

	result.warnings(config)
	result.info(config)
	return result
}

// Dir validates every *.json file in dir, sorted by name
func Dir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding config files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, File(file))
	}
	return results, nil
}

// Report prints a concise report and returns whether every file is valid
func Report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  ✓ "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "⚠️  No configuration files found")
	case allValid:
		fmt.Fprintln(w, "✅ All configurations are valid!")
	default:
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

// ExpectedRareShare is the probability that a main cell is seeded Rare.
// Each cell draws one sample and ultra rare wins the low end of the range,
// so the rare share is what remains of rare_probability above it.
func ExpectedRareShare(config *engine.GameConfig) float64 {
	return max(config.RareProbability-config.UltraRareProbability, 0)
}

func (r *ValidationResult) fail(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) warnings(config *engine.GameConfig) {
	if config.RareProbability == 0 && config.UltraRareProbability == 0 {
		r.Warnings = append(r.Warnings, "No rewards: rare and ultra rare probabilities are both 0")
	}
	if config.RareProbability+config.UltraRareProbability > 0.5 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("More than half of the main grid is rewards (%.2f)",
			config.RareProbability+config.UltraRareProbability))
	}
	if config.RareMoveDelayMS < config.MoveDelayMS {
		r.Warnings = append(r.Warnings, fmt.Sprintf("rare_move_delay_ms (%d) is shorter than move_delay_ms (%d)",
			config.RareMoveDelayMS, config.MoveDelayMS))
	}
	if config.MainGridSize <= config.SmallGridSize {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Main grid (%d) is not larger than the small grid (%d)",
			config.MainGridSize, config.SmallGridSize))
	}
}

func (r *ValidationResult) info(config *engine.GameConfig) {
	cells := float64(config.MainGridSize * config.MainGridSize)
	policy := config.TeleportWhilePending
	if policy == "" {
		policy = engine.TeleportAllow
	}

	r.Info = append(r.Info,
		fmt.Sprintf("Name: %s", config.Name),
		fmt.Sprintf("Grids: small %dx%d, main %dx%d",
			config.SmallGridSize, config.SmallGridSize, config.MainGridSize, config.MainGridSize),
		fmt.Sprintf("Expected rewards: %.1f rare, %.2f ultra rare",
			cells*ExpectedRareShare(config), cells*config.UltraRareProbability),
		fmt.Sprintf("Delays: %dms normal, %dms rare", config.MoveDelayMS, config.RareMoveDelayMS),
		fmt.Sprintf("Teleport while pending: %s", policy),
	)
	if config.Seed != "" {
		r.Info = append(r.Info, fmt.Sprintf("Fixed seed: %s", config.Seed))
	}
}
