package main

import (
	"io"
	"os"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/hyperfetch"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hyperfetch",
		Short: "A caching, rate-limited HTTP fetch service.",
		Long: `hyperfetch serves HTTP fetches through a shared response cache and a
per-host sliding-window byte budget. Use "serve" to run the service and
"fetch" to submit a request to a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newFetchCmd(), newKeyCmd())

	return root
}

// loadConfig reads path over the defaults (defaults only when empty) and applies the environment.
func loadConfig(path string) (*hyperfetch.Config, error) {
	cfg := hyperfetch.DefaultConfig()

	if path != "" {
		var err error

		cfg, err = hyperfetch.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	err := hyperfetch.ApplyEnv(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg hyperfetch.LogConfig, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel

	if cfg.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), ewrap.Wrapf(hyperfetch.ErrInvalidConfig, "log level %q", cfg.Level)
		}
	}

	if out == nil {
		out = os.Stderr
	}

	switch cfg.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	default:
		return zerolog.Nop(), ewrap.Wrapf(hyperfetch.ErrInvalidConfig, "log format %q", cfg.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
