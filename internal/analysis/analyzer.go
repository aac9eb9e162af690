// Package analysis runs the decode, inference and post-processing pipeline
// behind every adapter entry point.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nupi-ai/plugin-audio-analysis/internal/audio"
	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
	"github.com/nupi-ai/plugin-audio-analysis/internal/engine"
	"github.com/nupi-ai/plugin-audio-analysis/internal/events"
	"github.com/nupi-ai/plugin-audio-analysis/internal/metrics"
	"github.com/nupi-ai/plugin-audio-analysis/internal/speech"
)

// Model names used in logs and metric labels.
const (
	ModelVoice  = "vad"
	ModelTagger = "sed"
)

// Analysis kinds used in metric labels.
const (
	KindDetectSounds   = "detect_sounds"
	KindSpeechDuration = "speech_duration"
	KindAnalyzePacing  = "analyze_pacing"
)

// Decoder loads a media file as mono samples at a sample rate.
type Decoder interface {
	Load(ctx context.Context, path string, rate int) (*audio.Clip, error)
}

// Options configure an Analyzer.
type Options struct {
	// NewVoice and NewTagger create the models on first use.
	NewVoice  func() (engine.VoiceEngine, error)
	NewTagger func() (engine.Tagger, error)
	Decoder   Decoder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Analyzer owns the lazily loaded models and runs analyses on files.
// It is safe for concurrent use; inference on each model is serialized.
type Analyzer struct {
	decoder Decoder
	metrics *metrics.Metrics
	log     *slog.Logger

	voice  *handle[engine.VoiceEngine]
	tagger *handle[engine.Tagger]
}

// New creates an Analyzer. No model is loaded until first use or Preload.
func New(opts Options) (*Analyzer, error) {
	if opts.NewVoice == nil || opts.NewTagger == nil {
		return nil, errors.New("analysis: model constructors are required")
	}
	if opts.Decoder == nil {
		return nil, errors.New("analysis: decoder is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "analysis")
	m := opts.Metrics
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Analyzer{
		decoder: opts.Decoder,
		metrics: m,
		log:     logger,
		voice:   newHandle(ModelVoice, opts.NewVoice, logger, m),
		tagger:  newHandle(ModelTagger, opts.NewTagger, logger, m),
	}, nil
}

// ModelLoaded reports whether the sound event model is loaded.
func (a *Analyzer) ModelLoaded() bool { return a.tagger.isLoaded() }

// VoiceLoaded reports whether the voice activity model is loaded.
func (a *Analyzer) VoiceLoaded() bool { return a.voice.isLoaded() }

// Preload loads both models eagerly.
func (a *Analyzer) Preload() error {
	return errors.Join(a.voice.preload(), a.tagger.preload())
}

// Close releases both models.
func (a *Analyzer) Close() error {
	return errors.Join(a.voice.close(), a.tagger.close())
}

func (a *Analyzer) decode(ctx context.Context, model, path string, rate int) (*audio.Clip, error) {
	start := time.Now()
	clip, err := a.decoder.Load(ctx, path, rate)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordDecode(model, time.Since(start).Seconds(), clip.Duration())
	a.log.Info("audio loaded", "file", filepath.Base(path), "duration", fmt.Sprintf("%.2fs", clip.Duration()), "sample_rate", clip.SampleRate)
	return clip, nil
}

// DetectSounds tags path framewise and extracts sound events. filename is
// echoed in the report.
func (a *Analyzer) DetectSounds(ctx context.Context, path, filename string, p config.SEDParams) (report *events.Report, err error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordAnalysis(KindDetectSounds, err == nil, time.Since(start).Seconds())
	}()

	params := events.Params{Threshold: p.Threshold, MinDuration: p.MinDuration}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	a.log.Info("processing file", "filename", filename)

	clip, err := a.decode(ctx, ModelTagger, path, engine.TaggerSampleRate)
	if err != nil {
		return nil, err
	}

	var evs []events.Event
	var frameDuration float64
	err = a.tagger.with(ctx, func(t engine.Tagger) error {
		inferStart := time.Now()
		fw, err := t.Framewise(ctx, clip.Samples)
		if err != nil {
			return err
		}
		a.metrics.RecordInference(ModelTagger, time.Since(inferStart).Seconds())
		frameDuration = t.FrameDuration()
		a.log.Debug("framewise output", "frames", fw.Frames, "seconds", fmt.Sprintf("%.2f", float64(fw.Frames)*frameDuration))
		evs = events.Extract(fw, t.Labels(), frameDuration, params)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range evs {
		a.metrics.RecordEvent(e.Category)
	}
	a.log.Info("sound events detected", "filename", filename, "events", len(evs))
	return events.NewReport(filename, clip.Duration(), frameDuration, params, evs), nil
}

// SpeechParams converts configured VAD parameters.
func SpeechParams(p config.VADParams) speech.Params {
	return speech.Params{
		Threshold:            p.Threshold,
		MinSpeechDurationMs:  p.MinSpeechDurationMs,
		MinSilenceDurationMs: p.MinSilenceDurationMs,
		SpeechPadMs:          p.SpeechPadMs,
		MaxSpeechDurationS:   p.MaxSpeechDurationS,
	}
}

// SpeechDuration measures speech-only duration of path. Failures are
// reported in the result rather than returned.
func (a *Analyzer) SpeechDuration(ctx context.Context, path string, p config.VADParams) speech.DurationReport {
	start := time.Now()
	report := a.speechDuration(ctx, path, p)
	a.metrics.RecordAnalysis(KindSpeechDuration, report.Success, time.Since(start).Seconds())
	return report
}

func (a *Analyzer) speechDuration(ctx context.Context, path string, p config.VADParams) speech.DurationReport {
	params := SpeechParams(p)
	if err := params.Validate(); err != nil {
		return speech.FailedDuration(err)
	}
	clip, err := a.decode(ctx, ModelVoice, path, engine.VoiceSampleRate)
	if err != nil {
		a.log.Warn("speech duration failed", "file", filepath.Base(path), "error", err)
		return speech.FailedDuration(err)
	}

	var segments []speech.Segment
	err = a.voice.with(ctx, func(v engine.VoiceEngine) error {
		if err := v.Reset(); err != nil {
			return fmt.Errorf("reset voice engine: %w", err)
		}
		inferStart := time.Now()
		probs, err := v.Probabilities(ctx, clip.Samples)
		if err != nil {
			return err
		}
		a.metrics.RecordInference(ModelVoice, time.Since(inferStart).Seconds())
		params.SampleRate = v.SampleRate()
		params.WindowSamples = v.WindowSamples()
		segments = speech.Timestamps(probs, len(clip.Samples), params)
		return nil
	})
	if err != nil {
		a.log.Warn("speech duration failed", "file", filepath.Base(path), "error", err)
		return speech.FailedDuration(err)
	}

	a.metrics.RecordSpeechSegments(len(segments))
	report := speech.Summarize(segments, params.SampleRate)
	a.log.Info("speech measured", "file", filepath.Base(path), "speech_duration", report.SpeechDuration, "segments", report.NumSpeechSegments)
	return report
}

// AnalyzePacing compares the speech duration of user against ref.
func (a *Analyzer) AnalyzePacing(ctx context.Context, refPath, userPath string, p config.VADParams) speech.PacingReport {
	start := time.Now()
	ref := a.speechDuration(ctx, refPath, p)
	user := a.speechDuration(ctx, userPath, p)
	report := speech.Compare(ref, user)
	a.metrics.RecordAnalysis(KindAnalyzePacing, report.Success, time.Since(start).Seconds())
	if report.Success {
		a.metrics.RecordPacingRatio(report.Ratio)
		a.log.Info("pacing analyzed", "ratio", report.Ratio, "classification", report.Classification)
	}
	return report
}
