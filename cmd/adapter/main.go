package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
)

// version is set at build time by GoReleaser via -ldflags.
var version = "dev"

// exitError carries a process exit code out of a command that has already
// printed its output.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	root := newRootCmd(os.Stdout)
	if err := root.Execute(); err != nil {
		if e, ok := err.(exitError); ok {
			os.Exit(e.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	engine     string
	logLevel   string
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "adapter",
		Short:         "Local audio analysis: sound event detection, speech duration and pacing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file (overrides NUPI_ADAPTER_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&flags.engine, "engine", "", "inference engine: auto, onnx or stub")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	serve := newServeCmd(&flags)
	root.AddCommand(
		serve,
		newPacingCmd(&flags, stdout),
		newSpeechCmd(&flags, stdout),
		newDetectCmd(&flags, stdout),
	)
	// Running the bare binary serves, as the adapter runner expects.
	root.RunE = serve.RunE
	return root
}

// loadConfig applies flags on top of the layered configuration.
func loadConfig(flags *globalFlags) (config.Config, []string, error) {
	res, err := config.Loader{File: flags.configFile}.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg := res.Config
	if flags.engine != "" {
		cfg.Engine = flags.engine
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, res.Warnings, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
