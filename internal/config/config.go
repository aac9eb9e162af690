package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	DefaultHTTPListenAddr = "0.0.0.0:8000"
	DefaultListenAddr     = "localhost:0"
	DefaultEngine         = "auto"
	DefaultLogFormat      = "text"

	DefaultVADModelPath = "models/silero_vad.onnx"
	DefaultSEDModelPath = "models/Cnn14_DecisionLevelMax.onnx"
	DefaultLabelsPath   = "models/class_labels_indices.csv"
	DefaultFFmpegPath   = "ffmpeg"

	DefaultThreshold            = 0.5
	DefaultMinSpeechDurationMs  = 250
	DefaultMinSilenceDurationMs = 100
	DefaultSpeechPadMs          = 30

	DefaultSEDThreshold   = 0.3
	DefaultSEDMinDuration = 0.1

	DefaultMaxUploadBytes int64 = 512 << 20
)

// Config holds the adapter configuration.
type Config struct {
	HTTPListenAddr string `json:"http_listen_addr" yaml:"http_listen_addr"`
	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
	LogFormat      string `json:"log_format" yaml:"log_format"`

	Engine       string `json:"engine" yaml:"engine"`
	ORTLibPath   string `json:"ort_lib_path" yaml:"ort_lib_path"`
	DevMode      bool   `json:"dev_mode" yaml:"dev_mode"`
	VADModelPath string `json:"vad_model_path" yaml:"vad_model_path"`
	SEDModelPath string `json:"sed_model_path" yaml:"sed_model_path"`
	LabelsPath   string `json:"labels_path" yaml:"labels_path"`
	FFmpegPath   string `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Preload      bool   `json:"preload" yaml:"preload"`

	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	VAD VADParams `json:"vad" yaml:"vad"`
	SED SEDParams `json:"sed" yaml:"sed"`
}

// VADParams controls speech timestamp extraction.
type VADParams struct {
	Threshold            float64 `json:"threshold" yaml:"threshold"`
	MinSpeechDurationMs  int     `json:"min_speech_duration_ms" yaml:"min_speech_duration_ms"`
	MinSilenceDurationMs int     `json:"min_silence_duration_ms" yaml:"min_silence_duration_ms"`
	SpeechPadMs          int     `json:"speech_pad_ms" yaml:"speech_pad_ms"`
	// MaxSpeechDurationS splits longer segments. Zero disables splitting.
	MaxSpeechDurationS float64 `json:"max_speech_duration_s" yaml:"max_speech_duration_s"`
}

// SEDParams controls sound event extraction.
type SEDParams struct {
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	MinDuration float64 `json:"min_duration" yaml:"min_duration"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		HTTPListenAddr: DefaultHTTPListenAddr,
		ListenAddr:     DefaultListenAddr,
		LogFormat:      DefaultLogFormat,
		Engine:         DefaultEngine,
		VADModelPath:   DefaultVADModelPath,
		SEDModelPath:   DefaultSEDModelPath,
		LabelsPath:     DefaultLabelsPath,
		FFmpegPath:     DefaultFFmpegPath,
		MaxUploadBytes: DefaultMaxUploadBytes,
		VAD: VADParams{
			Threshold:            DefaultThreshold,
			MinSpeechDurationMs:  DefaultMinSpeechDurationMs,
			MinSilenceDurationMs: DefaultMinSilenceDurationMs,
			SpeechPadMs:          DefaultSpeechPadMs,
		},
		SED: SEDParams{
			Threshold:   DefaultSEDThreshold,
			MinDuration: DefaultSEDMinDuration,
		},
	}
}

// Validate checks the full configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPListenAddr) == "" {
		return errors.New("config: http_listen_addr must not be empty")
	}
	switch c.Engine {
	case "auto", "onnx", "stub":
	default:
		return fmt.Errorf("config: unknown engine %q (want auto, onnx or stub)", c.Engine)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q (want text or json)", c.LogFormat)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if err := c.VAD.Validate(); err != nil {
		return err
	}
	return c.SED.Validate()
}

// Validate checks VAD parameters. It is also applied to per-request overrides.
func (p VADParams) Validate() error {
	if !(p.Threshold >= 0 && p.Threshold <= 1) {
		return fmt.Errorf("config: vad threshold must be between 0 and 1, got %v", p.Threshold)
	}
	if p.MinSpeechDurationMs < 0 {
		return fmt.Errorf("config: min_speech_duration_ms must not be negative, got %d", p.MinSpeechDurationMs)
	}
	if p.MinSilenceDurationMs < 0 {
		return fmt.Errorf("config: min_silence_duration_ms must not be negative, got %d", p.MinSilenceDurationMs)
	}
	if p.SpeechPadMs < 0 {
		return fmt.Errorf("config: speech_pad_ms must not be negative, got %d", p.SpeechPadMs)
	}
	if !finite(p.MaxSpeechDurationS) || p.MaxSpeechDurationS < 0 {
		return fmt.Errorf("config: max_speech_duration_s must not be negative, got %v", p.MaxSpeechDurationS)
	}
	return nil
}

// Validate checks sound event detection parameters.
func (p SEDParams) Validate() error {
	if !(p.Threshold >= 0 && p.Threshold <= 1) {
		return fmt.Errorf("config: sed threshold must be between 0 and 1, got %v", p.Threshold)
	}
	if !finite(p.MinDuration) || p.MinDuration < 0 {
		return fmt.Errorf("config: sed min_duration must not be negative, got %v", p.MinDuration)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
