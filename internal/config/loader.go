package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadResult carries the loaded configuration and non-fatal warnings that
// the caller should log once a logger exists.
type LoadResult struct {
	Config   Config
	Warnings []string
}

// Loader loads configuration from an optional YAML file and environment
// variables. Tests can override Lookup and ReadFile to inject deterministic
// inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
	// File overrides NUPI_ADAPTER_CONFIG_FILE when set.
	File string
}

// Load resolves configuration in order: defaults, YAML file, the
// NUPI_ADAPTER_CONFIG JSON blob, then individual environment variables.
func (l Loader) Load() (LoadResult, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	cfg := Default()
	var warnings []string

	path := strings.TrimSpace(l.File)
	if path == "" {
		if raw, ok := l.Lookup("NUPI_ADAPTER_CONFIG_FILE"); ok {
			path = strings.TrimSpace(raw)
		}
	}
	if path != "" {
		data, err := l.ReadFile(path)
		if err != nil {
			return LoadResult{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var payload overlay
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return LoadResult{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
		payload.apply(&cfg)
	}

	if raw, ok := l.Lookup("NUPI_ADAPTER_CONFIG"); ok && strings.TrimSpace(raw) != "" {
		var payload overlay
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return LoadResult{}, fmt.Errorf("config: decode NUPI_ADAPTER_CONFIG: %w", err)
		}
		payload.apply(&cfg)
	}

	overrideString(l.Lookup, "NUPI_ADAPTER_HTTP_LISTEN_ADDR", &cfg.HTTPListenAddr)
	overrideString(l.Lookup, "NUPI_ADAPTER_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(l.Lookup, "NUPI_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "NUPI_LOG_FORMAT", &cfg.LogFormat)
	overrideString(l.Lookup, "NUPI_ENGINE", &cfg.Engine)
	overrideString(l.Lookup, "NUPI_ORT_LIB_PATH", &cfg.ORTLibPath)
	overrideString(l.Lookup, "NUPI_VAD_MODEL_PATH", &cfg.VADModelPath)
	overrideString(l.Lookup, "NUPI_SED_MODEL_PATH", &cfg.SEDModelPath)
	overrideString(l.Lookup, "NUPI_SED_LABELS_PATH", &cfg.LabelsPath)
	overrideString(l.Lookup, "NUPI_FFMPEG_PATH", &cfg.FFmpegPath)
	if value, ok := l.Lookup("NUPI_DEV_MODE"); ok && strings.TrimSpace(value) == "1" {
		cfg.DevMode = true
	}
	if err := overrideBool(l.Lookup, "NUPI_PRELOAD_MODELS", &cfg.Preload); err != nil {
		return LoadResult{}, err
	}
	if err := overrideInt64(l.Lookup, "NUPI_MAX_UPLOAD_BYTES", &cfg.MaxUploadBytes); err != nil {
		return LoadResult{}, err
	}
	if err := overrideFloat(l.Lookup, "NUPI_VAD_THRESHOLD", &cfg.VAD.Threshold); err != nil {
		return LoadResult{}, err
	}
	if err := overrideInt(l.Lookup, "NUPI_VAD_MIN_SPEECH_DURATION_MS", &cfg.VAD.MinSpeechDurationMs); err != nil {
		return LoadResult{}, err
	}
	if err := overrideInt(l.Lookup, "NUPI_VAD_MIN_SILENCE_DURATION_MS", &cfg.VAD.MinSilenceDurationMs); err != nil {
		return LoadResult{}, err
	}
	if err := overrideInt(l.Lookup, "NUPI_VAD_SPEECH_PAD_MS", &cfg.VAD.SpeechPadMs); err != nil {
		return LoadResult{}, err
	}
	if err := overrideFloat(l.Lookup, "NUPI_VAD_MAX_SPEECH_DURATION_S", &cfg.VAD.MaxSpeechDurationS); err != nil {
		return LoadResult{}, err
	}
	if err := overrideFloat(l.Lookup, "NUPI_SED_THRESHOLD", &cfg.SED.Threshold); err != nil {
		return LoadResult{}, err
	}
	if err := overrideFloat(l.Lookup, "NUPI_SED_MIN_DURATION", &cfg.SED.MinDuration); err != nil {
		return LoadResult{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log_level %q, falling back to info", cfg.LogLevel))
	}

	if err := cfg.Validate(); err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Config: cfg, Warnings: warnings}, nil
}

// overlay mirrors Config with pointer fields so that only keys present in a
// YAML file or JSON blob replace the current values.
type overlay struct {
	HTTPListenAddr *string `json:"http_listen_addr" yaml:"http_listen_addr"`
	ListenAddr     *string `json:"listen_addr" yaml:"listen_addr"`
	LogLevel       *string `json:"log_level" yaml:"log_level"`
	LogFormat      *string `json:"log_format" yaml:"log_format"`
	Engine         *string `json:"engine" yaml:"engine"`
	ORTLibPath     *string `json:"ort_lib_path" yaml:"ort_lib_path"`
	DevMode        *bool   `json:"dev_mode" yaml:"dev_mode"`
	VADModelPath   *string `json:"vad_model_path" yaml:"vad_model_path"`
	SEDModelPath   *string `json:"sed_model_path" yaml:"sed_model_path"`
	LabelsPath     *string `json:"labels_path" yaml:"labels_path"`
	FFmpegPath     *string `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Preload        *bool   `json:"preload" yaml:"preload"`
	MaxUploadBytes *int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	VAD *struct {
		Threshold            *float64 `json:"threshold" yaml:"threshold"`
		MinSpeechDurationMs  *int     `json:"min_speech_duration_ms" yaml:"min_speech_duration_ms"`
		MinSilenceDurationMs *int     `json:"min_silence_duration_ms" yaml:"min_silence_duration_ms"`
		SpeechPadMs          *int     `json:"speech_pad_ms" yaml:"speech_pad_ms"`
		MaxSpeechDurationS   *float64 `json:"max_speech_duration_s" yaml:"max_speech_duration_s"`
	} `json:"vad" yaml:"vad"`

	SED *struct {
		Threshold   *float64 `json:"threshold" yaml:"threshold"`
		MinDuration *float64 `json:"min_duration" yaml:"min_duration"`
	} `json:"sed" yaml:"sed"`
}

func (o overlay) apply(cfg *Config) {
	setString(o.HTTPListenAddr, &cfg.HTTPListenAddr)
	setString(o.ListenAddr, &cfg.ListenAddr)
	setString(o.LogLevel, &cfg.LogLevel)
	setString(o.LogFormat, &cfg.LogFormat)
	setString(o.Engine, &cfg.Engine)
	setString(o.ORTLibPath, &cfg.ORTLibPath)
	setString(o.VADModelPath, &cfg.VADModelPath)
	setString(o.SEDModelPath, &cfg.SEDModelPath)
	setString(o.LabelsPath, &cfg.LabelsPath)
	setString(o.FFmpegPath, &cfg.FFmpegPath)
	if o.DevMode != nil {
		cfg.DevMode = *o.DevMode
	}
	if o.Preload != nil {
		cfg.Preload = *o.Preload
	}
	if o.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *o.MaxUploadBytes
	}
	if v := o.VAD; v != nil {
		if v.Threshold != nil {
			cfg.VAD.Threshold = *v.Threshold
		}
		if v.MinSpeechDurationMs != nil {
			cfg.VAD.MinSpeechDurationMs = *v.MinSpeechDurationMs
		}
		if v.MinSilenceDurationMs != nil {
			cfg.VAD.MinSilenceDurationMs = *v.MinSilenceDurationMs
		}
		if v.SpeechPadMs != nil {
			cfg.VAD.SpeechPadMs = *v.SpeechPadMs
		}
		if v.MaxSpeechDurationS != nil {
			cfg.VAD.MaxSpeechDurationS = *v.MaxSpeechDurationS
		}
	}
	if s := o.SED; s != nil {
		if s.Threshold != nil {
			cfg.SED.Threshold = *s.Threshold
		}
		if s.MinDuration != nil {
			cfg.SED.MinDuration = *s.MinDuration
		}
	}
}

func setString(src *string, target *string) {
	if src != nil && strings.TrimSpace(*src) != "" {
		*target = strings.TrimSpace(*src)
	}
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt64(lookup func(string) (string, bool), key string, target *int64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}
