// Command trailgrid starts the Trail Grid game server.
//
// It supports these modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" – plays one session in the terminal, optionally serving HTTP alongside
//  4. "validate" – checks every configuration file in the config directory
//
// Flags control host/port, config directory, debug logging, session expiry,
// and optional ngrok tunneling for easy external access during development.
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/trailgrid/game/config"
	"github.com/wricardo/trailgrid/game/service"
	"github.com/wricardo/trailgrid/game/session"
	"github.com/wricardo/trailgrid/transport/websocket"
	"github.com/wricardo/trailgrid/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Trail Grid Server"
)

// Default session retention
const (
	defaultSessionTTL      = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// main loads .env, then runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Error loading .env file: %v", err)
		}
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// newCommand builds the command tree. Root flags are inherited by every
// subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "trailgrid",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
			&cli.DurationFlag{
				Name:  "session-ttl",
				Value: defaultSessionTTL,
				Usage: "Remove sessions not accessed for this long",
			},
			&cli.DurationFlag{
				Name:  "cleanup-interval",
				Value: defaultCleanupInterval,
				Usage: "How often expired sessions are removed",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.InfoLevel)
			}
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, optionsFrom(cmd))
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServer(ctx, optionsFrom(cmd))
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server when none is running",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, optionsFrom(cmd))
				},
			},
			playCommand(),
			{
				Name:  "validate",
				Usage: "Validate every configuration file in the config directory",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					results, err := validate.Dir(cmd.String("config-dir"))
					if err != nil {
						return err
					}
					if !validate.Report(cmd.Root().Writer, results) {
						return fmt.Errorf("configuration validation failed")
					}
					return nil
				},
			},
		},
	}
}

// options holds the settings shared by every mode
type options struct {
	Host            string
	Port            int
	ConfigDir       string
	Debug           bool
	Ngrok           bool
	NgrokAuth       string
	NgrokDomain     string
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		Host:            cmd.String("host"),
		Port:            cmd.Int("port"),
		ConfigDir:       cmd.String("config-dir"),
		Debug:           cmd.Bool("debug"),
		Ngrok:           cmd.Bool("ngrok"),
		NgrokAuth:       cmd.String("ngrok-auth"),
		NgrokDomain:     cmd.String("ngrok-domain"),
		SessionTTL:      cmd.Duration("session-ttl"),
		CleanupInterval: cmd.Duration("cleanup-interval"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// services is the wired game backend
type services struct {
	game     service.GameService
	sessions *session.Manager
	configs  *config.Manager
	hub      *websocket.Hub
}

// initializeServices wires the config and session managers, the websocket
// hub and the game service. Nothing runs until start is called.
func initializeServices(opts options) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	hub := websocket.NewHub()
	gameService := service.NewGameService(sessionManager, configManager, hub)
	hub.SetBackend(gameService)

	return &services{
		game:     gameService,
		sessions: sessionManager,
		configs:  configManager,
		hub:      hub,
	}, nil
}

// start runs the hub and the session cleanup routine until ctx is done
func (s *services) start(ctx context.Context, opts options) {
	go s.hub.Run(ctx)

	if opts.CleanupInterval > 0 && opts.SessionTTL > 0 {
		go s.sessions.RunCleanup(ctx, opts.CleanupInterval, opts.SessionTTL)
	}
}

// stop cancels every pending move timer
func (s *services) stop() {
	s.sessions.CloseAll()
}
