package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/trailgrid/transport/terminal"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a session in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration to play (default: classic)",
			},
			&cli.StringFlag{
				Name:  "seed",
				Usage: "Seed phrase for the main grid",
			},
			&cli.BoolFlag{
				Name:  "serve",
				Usage: "Also serve HTTP so browsers and agents can watch the session",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs here instead of discarding them",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPlay(ctx, optionsFrom(cmd), cmd.String("config"), cmd.String("seed"), cmd.Bool("serve"), cmd.String("log-file"))
		},
	}
}

// runPlay creates one session and drives it from the terminal until the
// player quits
func runPlay(ctx context.Context, opts options, configName, seed string, serve bool, logFile string) error {
	// The screen owns the terminal; logs must not land on it
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initializeServices(opts)
	if err != nil {
		return err
	}
	svc.start(ctx, opts)
	defer svc.stop()

	info, err := svc.game.CreateSession(ctx, configName, seed)
	if err != nil {
		return err
	}
	sess, err := svc.sessions.Get(info.ID)
	if err != nil {
		return err
	}

	if serve {
		serveCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := serveHTTP(serveCtx, opts, svc); err != nil {
				log.WithError(err).Error("HTTP server stopped")
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	err = terminal.NewApp(screen, sess.Engine).Run(ctx)
	screen.Fini()
	if err != nil {
		return err
	}

	snap := sess.Engine.Snapshot()
	fmt.Fprintf(os.Stdout, "Session %s finished with score %d (seed %q)\n", info.ID, snap.Score, snap.Seed)
	return nil
}
