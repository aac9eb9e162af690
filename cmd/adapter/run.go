package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nupi-ai/plugin-audio-analysis/internal/analysis"
	"github.com/nupi-ai/plugin-audio-analysis/internal/audio"
	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
	"github.com/nupi-ai/plugin-audio-analysis/internal/metrics"
)

const pacingUsage = "Usage: adapter pacing <reference_audio_path> <user_audio_path>"

// newLocalAnalyzer builds an analyzer for a one-shot command. Logs go to
// stderr so stdout carries only the JSON result.
func newLocalAnalyzer(flags *globalFlags) (*analysis.Analyzer, config.Config, func(), error) {
	cfg, warnings, err := loadConfig(flags)
	if err != nil {
		return nil, cfg, nil, err
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	for _, warn := range warnings {
		logger.Warn(warn)
	}
	f, err := resolveEngine(cfg, logger)
	if err != nil {
		return nil, cfg, nil, err
	}
	a, err := analysis.New(analysis.Options{
		NewVoice:  f.newVoice,
		NewTagger: f.newTagger,
		Decoder:   audio.NewLoader(cfg.FFmpegPath, logger),
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Logger:    logger,
	})
	if err != nil {
		return nil, cfg, nil, err
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing models", "error", err)
		}
	}
	return a, cfg, cleanup, nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func newPacingCmd(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "pacing <reference_audio_path> <user_audio_path>",
		Short: "Compare the speech duration of a user recording against a reference",
		// Argument errors are reported as JSON on stdout.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				if err := writeJSON(stdout, map[string]any{"success": false, "error": pacingUsage}); err != nil {
					return err
				}
				return exitError{code: 1}
			}
			a, cfg, cleanup, err := newLocalAnalyzer(flags)
			if err != nil {
				return err
			}
			defer cleanup()
			return writeJSON(stdout, a.AnalyzePacing(cmd.Context(), args[0], args[1], cfg.VAD))
		},
	}
}

func newSpeechCmd(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "speech <audio_path>",
		Short: "Measure the speech-only duration of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := newLocalAnalyzer(flags)
			if err != nil {
				return err
			}
			defer cleanup()
			return writeJSON(stdout, a.SpeechDuration(cmd.Context(), args[0], cfg.VAD))
		},
	}
}

func newDetectCmd(flags *globalFlags, stdout io.Writer) *cobra.Command {
	var (
		threshold   float64
		minDuration float64
	)
	cmd := &cobra.Command{
		Use:   "detect <media_path>",
		Short: "Detect timestamped sound events in a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := newLocalAnalyzer(flags)
			if err != nil {
				return err
			}
			defer cleanup()
			p := cfg.SED
			if cmd.Flags().Changed("threshold") {
				p.Threshold = threshold
			}
			if cmd.Flags().Changed("min-duration") {
				p.MinDuration = minDuration
			}
			report, err := a.DetectSounds(cmd.Context(), args[0], filepath.Base(args[0]), p)
			if err != nil {
				return fmt.Errorf("audio processing failed: %w", err)
			}
			return writeJSON(stdout, report)
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "confidence threshold (0-1), default from config")
	cmd.Flags().Float64Var(&minDuration, "min-duration", 0, "minimum event duration in seconds, default from config")
	return cmd
}
