// Package server exposes the analyzer over HTTP and gRPC.
package server

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
	"github.com/nupi-ai/plugin-audio-analysis/internal/events"
	"github.com/nupi-ai/plugin-audio-analysis/internal/speech"
)

// Analyzer runs analyses on local files. *analysis.Analyzer implements it.
type Analyzer interface {
	DetectSounds(ctx context.Context, path, filename string, p config.SEDParams) (*events.Report, error)
	SpeechDuration(ctx context.Context, path string, p config.VADParams) speech.DurationReport
	AnalyzePacing(ctx context.Context, refPath, userPath string, p config.VADParams) speech.PacingReport
	ModelLoaded() bool
}

// paramError reports an invalid request parameter.
type paramError struct {
	Field string
	Msg   string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// lookupFunc returns a raw request parameter and whether it was present.
type lookupFunc func(name string) (string, bool)

func floatParam(lookup lookupFunc, name string, dst *float64) error {
	raw, ok := lookup(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return &paramError{Field: name, Msg: "value is not a valid float"}
	}
	*dst = v
	return nil
}

// sedParams overlays request parameters on defaults and validates them.
func sedParams(defaults config.SEDParams, lookup lookupFunc) (config.SEDParams, error) {
	p := defaults
	if err := floatParam(lookup, "threshold", &p.Threshold); err != nil {
		return p, err
	}
	if err := floatParam(lookup, "min_duration", &p.MinDuration); err != nil {
		return p, err
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return p, &paramError{Field: "threshold", Msg: "ensure this value is between 0 and 1"}
	}
	if p.MinDuration < 0 {
		return p, &paramError{Field: "min_duration", Msg: "ensure this value is greater than or equal to 0"}
	}
	return p, nil
}

// vadParams overlays the request threshold on defaults and validates it.
func vadParams(defaults config.VADParams, lookup lookupFunc) (config.VADParams, error) {
	p := defaults
	if err := floatParam(lookup, "threshold", &p.Threshold); err != nil {
		return p, err
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return p, &paramError{Field: "threshold", Msg: "ensure this value is between 0 and 1"}
	}
	return p, nil
}
