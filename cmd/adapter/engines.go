package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
	"github.com/nupi-ai/plugin-audio-analysis/internal/engine"
)

// factories create the models on first use.
type factories struct {
	resolved  string
	newVoice  func() (engine.VoiceEngine, error)
	newTagger func() (engine.Tagger, error)
}

func stubFactories() factories {
	return factories{
		resolved:  "stub",
		newVoice:  func() (engine.VoiceEngine, error) { return engine.NewStubVoiceEngine(), nil },
		newTagger: func() (engine.Tagger, error) { return engine.NewStubTagger(), nil },
	}
}

// resolveEngine turns the configured engine ("auto", "onnx" or "stub") into
// model constructors. The native voice engine is probed once so that a
// broken runtime is reported at startup rather than on the first request.
func resolveEngine(cfg config.Config, logger *slog.Logger) (factories, error) {
	opts := engine.Options{
		ORTLibPath:   cfg.ORTLibPath,
		DevMode:      cfg.DevMode,
		VADModelPath: cfg.VADModelPath,
		SEDModelPath: cfg.SEDModelPath,
		LabelsPath:   cfg.LabelsPath,
	}

	resolved := cfg.Engine
	isAuto := resolved == "auto"
	if isAuto {
		if engine.NativeAvailable() {
			resolved = "onnx"
		} else {
			resolved = "stub"
			logger.Warn("auto-detected engine: stub (onnx runtime not compiled in, build with -tags onnx for production)")
		}
	}

	switch resolved {
	case "stub":
		logger.Warn("using stub engines: results are deterministic and NOT based on audio content")
		return stubFactories(), nil
	case "onnx":
		if !engine.NativeAvailable() {
			return factories{}, errors.New("engine \"onnx\" requested but native backend not compiled in (build with -tags onnx)")
		}
		probe, err := engine.NewNativeVoice(opts)
		if err != nil {
			if isAuto && cfg.DevMode {
				logger.Warn("native engine probe failed, falling back to stub engines (dev mode)",
					"error", err,
					"hint", "unset NUPI_DEV_MODE for production behavior")
				return stubFactories(), nil
			}
			if isAuto {
				logger.Error("hint: set NUPI_DEV_MODE=1 to allow fallback to stub engines")
			}
			return factories{}, fmt.Errorf("native engine probe failed: %w", err)
		}
		if err := probe.Close(); err != nil {
			logger.Warn("closing probe engine", "error", err)
		}
		logger.Info("engine ready", "type", "onnx")
		return factories{
			resolved:  "onnx",
			newVoice:  func() (engine.VoiceEngine, error) { return engine.NewNativeVoice(opts) },
			newTagger: func() (engine.Tagger, error) { return engine.NewNativeTagger(opts) },
		}, nil
	default:
		return factories{}, fmt.Errorf("unknown engine %q", resolved)
	}
}
