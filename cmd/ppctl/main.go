package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

var portalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "host",
		Usage:   "method, hostname, and port of the portal (eg https://contoso.powerappsportals.com)",
		EnvVars: []string{"PORTAL_HOST"},
	},
	&cli.StringFlag{
		Name:    "cookie",
		Usage:   "Cookie header value of an authenticated portal browser session",
		EnvVars: []string{"PORTAL_COOKIE"},
	},
	&cli.StringFlag{
		Name:    "lang",
		Usage:   "language code for the legacy JSON endpoint",
		Value:   "en-US",
		EnvVars: []string{"PORTAL_LANG"},
	},
	&cli.IntFlag{
		Name:    "retries",
		Usage:   "number of retries for idempotent requests on network errors and 5xx responses",
		Value:   0,
		EnvVars: []string{"PORTAL_RETRIES"},
	},
	&cli.DurationFlag{
		Name:    "timeout",
		Usage:   "overall timeout for each HTTP request, including retries",
		Value:   defaultTimeout,
		EnvVars: []string{"PORTAL_TIMEOUT"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "log verbosity level (eg: warn, info, debug)",
		Value:   "warn",
		EnvVars: []string{"PPCTL_LOG_LEVEL", "LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:    "log-json",
		Usage:   "write logs as JSON instead of text",
		EnvVars: []string{"PPCTL_LOG_JSON"},
	},
}

func run(args []string) error {

	shutdownOTEL := func() {}
	app := cli.App{
		Name:    "ppctl",
		Usage:   "Power Pages portal Web API CLI tool",
		Version: versioninfo.Short(),
		Flags:   portalFlags,
		Before: func(cctx *cli.Context) error {
			configLogger(cctx, os.Stderr)
			shutdown, err := configOTEL(cctx.Context, "ppctl")
			if err != nil {
				return fmt.Errorf("setting up trace exporter: %w", err)
			}
			shutdownOTEL = shutdown
			return nil
		},
		After: func(cctx *cli.Context) error {
			shutdownOTEL()
			return nil
		},
	}
	app.Commands = []*cli.Command{
		cmdLogin,
		cmdLogout,
		cmdGet,
		cmdCreate,
		cmdUpdate,
		cmdSetColumn,
		cmdRefreshCache,
		cmdDelete,
		cmdAssociate,
		cmdDisassociate,
		cmdUpload,
		cmdDownload,
		cmdJSON,
		cmdBatch,
	}
	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cctx.Bool("log-json") {
		handler = slog.NewJSONHandler(writer, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
