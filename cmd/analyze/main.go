// Command analyze samples seeded grids for configuration files and prints
// reward statistics: how many rare and ultra rare cells a main grid gets,
// the score a full sweep collects, and how long that sweep takes at the
// configured move delays. Configurations with a fixed seed are analyzed once.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/trailgrid/game/engine"
)

// Analysis summarizes the grids drawn for one configuration
type Analysis struct {
	Name           string
	Samples        int
	MainCells      int
	MinRare        int
	MaxRare        int
	AvgRare        float64
	AvgUltraRare   float64
	SeedsWithUltra int
	AvgMaxScore    float64
	AvgSweep       time.Duration // stepping onto every main cell once
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Print reward statistics for game configurations",
		ArgsUsage: "[config.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "samples",
				Value: 20,
				Usage: "Number of seeds drawn per configuration",
			},
			&cli.StringFlag{
				Name:  "seed",
				Value: "analyze",
				Usage: "Prefix of the sampled seed phrases",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = filepath.Glob(filepath.Join(cmd.String("config-dir"), "*.json"))
				if err != nil {
					return err
				}
				sort.Strings(files)
			}
			if len(files) == 0 {
				return fmt.Errorf("no configuration files found")
			}

			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))

				config, err := engine.LoadGameConfig(file)
				if err != nil {
					fmt.Fprintf(out, "Error: %v\n", err)
					continue
				}

				analysis, err := analyzeConfig(config, sampleSeeds(config, cmd.String("seed"), cmd.Int("samples")))
				if err != nil {
					fmt.Fprintf(out, "Error: %v\n", err)
					continue
				}
				printAnalysis(out, config, analysis)
			}
			return nil
		},
	}
}

// sampleSeeds returns the seed phrases to draw grids from
func sampleSeeds(config *engine.GameConfig, prefix string, n int) []string {
	if config.Seed != "" {
		return []string{config.Seed}
	}
	if n < 1 {
		n = 1
	}
	seeds := make([]string, n)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return seeds
}

func analyzeConfig(config *engine.GameConfig, seeds []string) (Analysis, error) {
	analysis := Analysis{
		Name:      config.Name,
		Samples:   len(seeds),
		MainCells: config.MainGridSize * config.MainGridSize,
		MinRare:   -1,
	}
	if len(seeds) == 0 {
		return analysis, fmt.Errorf("no seeds to sample")
	}

	var totalRare, totalUltra, totalScore int
	var totalSweep time.Duration

	for _, seed := range seeds {
		grids, err := engine.NewGridModel(config, engine.NewRandomSource(seed))
		if err != nil {
			return analysis, err
		}
		view := grids.Grid(engine.Main).View()

		rare := engine.CountKind(view, engine.Rare)
		ultra := engine.CountKind(view, engine.UltraRare)

		totalRare += rare
		totalUltra += ultra
		totalScore += engine.MaxPotentialScore(view)
		totalSweep += sweepTime(config, analysis.MainCells, rare)

		if ultra > 0 {
			analysis.SeedsWithUltra++
		}
		if analysis.MinRare == -1 || rare < analysis.MinRare {
			analysis.MinRare = rare
		}
		if rare > analysis.MaxRare {
			analysis.MaxRare = rare
		}
	}

	n := float64(len(seeds))
	analysis.AvgRare = float64(totalRare) / n
	analysis.AvgUltraRare = float64(totalUltra) / n
	analysis.AvgMaxScore = float64(totalScore) / n
	analysis.AvgSweep = totalSweep / time.Duration(len(seeds))
	return analysis, nil
}

// sweepTime approximates the time to step onto every main cell once from
// (0,0): rare cells cost the rare delay, everything else the base delay
func sweepTime(config *engine.GameConfig, cells, rare int) time.Duration {
	steps := cells - 1
	if steps < 0 {
		steps = 0
	}
	normal := max(steps-rare, 0)
	return time.Duration(normal)*config.MoveDelay() + time.Duration(min(rare, steps))*config.RareMoveDelay()
}

func printAnalysis(w io.Writer, config *engine.GameConfig, a Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Main Grid: %d x %d (%d cells)\n", config.MainGridSize, config.MainGridSize, a.MainCells)
	fmt.Fprintf(w, "Samples: %d\n", a.Samples)
	fmt.Fprintf(w, "Rare cells: avg %.1f (min %d, max %d)\n", a.AvgRare, a.MinRare, a.MaxRare)
	fmt.Fprintf(w, "Ultra rare cells: avg %.2f (%d/%d seeds have one)\n", a.AvgUltraRare, a.SeedsWithUltra, a.Samples)
	fmt.Fprintf(w, "Full sweep score: avg %.0f\n", a.AvgMaxScore)
	fmt.Fprintf(w, "Full sweep time: ~%s\n", a.AvgSweep.Round(time.Second))

	if a.AvgRare == 0 && a.AvgUltraRare == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: no rewards were drawn in any sample\n")
	} else {
		fmt.Fprintf(w, "✅ Rewards present\n")
	}
}
