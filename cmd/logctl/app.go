package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/V4T54L/safelog/internal/adapter/repository/logfile"
	"github.com/V4T54L/safelog/internal/domain"
	"github.com/V4T54L/safelog/internal/pkg/config"
	"github.com/V4T54L/safelog/internal/pkg/logger"
	"github.com/V4T54L/safelog/internal/usecase"
)

// Build information, set via ldflags.
var Version = "dev"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "logctl",
		Usage:   "Write and maintain redacted application log files",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Log directory",
				EnvVars: []string{"LOG_DIR"},
				Value:   "logs",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Level of logctl's own diagnostics",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			sweepCommand(),
			emitCommand(),
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Delete log files older than the retention window",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Usage:   "Number of days to keep",
				EnvVars: []string{"LOG_RETENTION_DAYS"},
				Value:   logfile.DefaultRetentionDays,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would be deleted without deleting",
			},
		},
		Action: func(c *cli.Context) error {
			ops := logger.NewWithWriter(c.App.ErrWriter, c.String("log-level"))
			sweeper := logfile.NewSweeper(c.String("dir"), ops, logfile.WithDryRun(c.Bool("dry-run")))

			result, err := sweeper.Sweep(c.Context, c.Int("days"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, string(out))
			if len(result.Errors) > 0 {
				return cli.Exit(fmt.Sprintf("%d file(s) could not be removed", len(result.Errors)), 2)
			}
			return nil
		},
	}
}

func emitCommand() *cli.Command {
	return &cli.Command{
		Name:  "emit",
		Usage: "Write one entry through the redacting logger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "level", Aliases: []string{"l"}, Value: "info", Usage: "error, warn, info or debug"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Entry message"},
			&cli.StringSliceFlag{Name: "meta", Usage: "Metadata as key=value, repeatable"},
			&cli.StringFlag{Name: "user", Usage: "User id for a user action"},
			&cli.StringFlag{Name: "action", Usage: "Log a user action instead of a plain entry"},
			&cli.StringFlag{Name: "security", Usage: "Log a security event with this name"},
			&cli.StringFlag{Name: "env", Usage: "Override APP_ENV", EnvVars: []string{"APP_ENV"}},
		},
		Action: func(c *cli.Context) error {
			meta, err := parseMeta(c.StringSlice("meta"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			cfg, err := config.Load()
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			cfg.LogDir = c.String("dir")
			if env := c.String("env"); env != "" {
				cfg.Environment = env
			}
			cfg.BackpressurePolicy = string(logfile.PolicyBlock)

			ops := logger.NewWithWriter(c.App.ErrWriter, c.String("log-level"))
			appLogger, err := usecase.Build(cfg, ops, nil)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			switch {
			case c.String("security") != "":
				appLogger.LogSecurityEvent(c.String("security"), meta)
			case c.String("action") != "":
				var userID any
				if u := c.String("user"); u != "" {
					userID = u
				}
				appLogger.LogUserAction(userID, c.String("action"), meta)
			default:
				level, err := domain.ParseLevel(c.String("level"))
				if err != nil {
					appLogger.Close()
					return cli.Exit(err.Error(), 1)
				}
				if c.String("message") == "" {
					appLogger.Close()
					return cli.Exit("--message is required", 1)
				}
				appLogger.Log(level, c.String("message"), meta)
			}

			if err := appLogger.Flush(context.Background()); err != nil {
				return err
			}
			return appLogger.Close()
		},
	}
}

// parseMeta turns key=value pairs into metadata. Values that are valid JSON
// (numbers, booleans, objects) keep their type; anything else is a string.
func parseMeta(pairs []string) (map[string]any, error) {
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q, expected key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			meta[key] = decoded
		} else {
			meta[key] = value
		}
	}
	return meta, nil
}
