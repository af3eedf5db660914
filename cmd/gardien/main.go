package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gardien-bot/gardien/modbot/countstore"
	"github.com/gardien-bot/gardien/modbot/engine"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "gardien",
		Usage:   "community moderation bot for Discord",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "data-file",
			Usage:   "path of the JSON file holding the acceptance counter",
			Value:   "data.json",
			EnvVars: []string{"GARDIEN_DATA_FILE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis server URL; when set, the acceptance counter is kept in redis instead of the data file",
			EnvVars: []string{"GARDIEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"GARDIEN_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		counterCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to discord and run the bot",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "token",
			Usage:    "discord bot token",
			Required: true,
			EnvVars:  []string{"DISCORD_BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:     "log-channel",
			Usage:    "ID of the channel receiving moderation log entries",
			Required: true,
			EnvVars:  []string{"LOG_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:     "rules-channel",
			Usage:    "ID of the channel where members accept the rules",
			Required: true,
			EnvVars:  []string{"RULES_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:     "accept-role",
			Usage:    "ID of the role granted once the rules are accepted",
			Required: true,
			EnvVars:  []string{"ACCEPT_ROLE_ID"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database for the internal action history (eg, sqlite://data/gardien.db); disabled when empty",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   10,
		},
		&cli.BoolFlag{
			Name:    "db-tracing",
			Usage:   "trace audit database queries with OpenTelemetry",
			EnvVars: []string{"GARDIEN_DB_TRACING"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook mirroring moderation actions",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the keepalive HTTP server",
			Value:   ":8080",
			EnvVars: []string{"GARDIEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"GARDIEN_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := configLogger(cctx)
		defer configOTEL("gardien")()

		engConfig := engine.Config{
			LogChannelID:   cctx.String("log-channel"),
			RulesChannelID: cctx.String("rules-channel"),
			AcceptRoleID:   cctx.String("accept-role"),
		}
		if err := validateConfig(engConfig); err != nil {
			return err
		}

		srv, err := NewServer(Config{
			Logger:          logger,
			Token:           cctx.String("token"),
			Engine:          engConfig,
			DataFile:        cctx.String("data-file"),
			RedisURL:        cctx.String("redis-url"),
			DatabaseURL:     cctx.String("database-url"),
			MaxDBConns:      cctx.Int("max-db-connections"),
			DBTracing:       cctx.Bool("db-tracing"),
			SlackWebhookURL: cctx.String("slack-webhook-url"),
			Bind:            cctx.String("bind"),
		})
		if err != nil {
			return fmt.Errorf("failed to construct server: %w", err)
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run gardien: %w", err)
		}
		return nil
	},
}

var counterCmd = &cli.Command{
	Name:  "counter",
	Usage: "inspect or repair the acceptance counter",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "print the current acceptance number",
			Action: func(cctx *cli.Context) error {
				ctx := context.Background()
				store, err := configCountStore(cctx, configLogger(cctx))
				if err != nil {
					return err
				}
				state, err := store.Load(ctx)
				if err != nil {
					return err
				}
				fmt.Println(state.AcceptanceNumber)
				return nil
			},
		},
		{
			Name:      "set",
			Usage:     "overwrite the acceptance number",
			ArgsUsage: "<number>",
			Action: func(cctx *cli.Context) error {
				ctx := context.Background()
				if cctx.Args().Len() != 1 {
					return fmt.Errorf("expected exactly one argument: the new acceptance number")
				}
				n, err := strconv.Atoi(cctx.Args().First())
				if err != nil || n < 0 {
					return fmt.Errorf("acceptance number must be a non-negative integer: %q", cctx.Args().First())
				}
				store, err := configCountStore(cctx, configLogger(cctx))
				if err != nil {
					return err
				}
				if err := store.Save(ctx, countstore.State{AcceptanceNumber: n}); err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			},
		},
	},
}

func configLogger(cctx *cli.Context) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func configCountStore(cctx *cli.Context, logger *slog.Logger) (countstore.CountStore, error) {
	if url := cctx.String("redis-url"); url != "" {
		return countstore.NewRedisCountStore(url, logger)
	}
	return countstore.NewFileCountStore(cctx.String("data-file"), logger), nil
}

// Discord IDs are unsigned 64-bit integers ("snowflakes") serialized as decimal strings.
func validateConfig(config engine.Config) error {
	ids := []struct {
		name string
		val  string
	}{
		{"log-channel", config.LogChannelID},
		{"rules-channel", config.RulesChannelID},
		{"accept-role", config.AcceptRoleID},
	}
	for _, id := range ids {
		if _, err := strconv.ParseUint(id.val, 10, 64); err != nil {
			return fmt.Errorf("invalid %s identifier %q: expected a numeric discord ID", id.name, id.val)
		}
	}
	return nil
}
