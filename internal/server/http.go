package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nupi-ai/plugin-audio-analysis/internal/config"
	"github.com/nupi-ai/plugin-audio-analysis/internal/engine"
	"github.com/nupi-ai/plugin-audio-analysis/internal/metrics"
)

// defaultUploadExt is used for uploads whose name has no extension.
const defaultUploadExt = ".mp4"

// HTTPOptions configure the HTTP API.
type HTTPOptions struct {
	Analyzer Analyzer
	Config   config.Config
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Version  string
	// TempDir receives uploads while they are analyzed. Empty means os.TempDir().
	TempDir string
}

type httpAPI struct {
	analyzer Analyzer
	cfg      config.Config
	log      *slog.Logger
	version  string
	tempDir  string
}

// NewHTTPHandler builds the gin router serving the HTTP API.
func NewHTTPHandler(opts HTTPOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")
	api := &httpAPI{
		analyzer: opts.Analyzer,
		cfg:      opts.Config,
		log:      logger,
		version:  opts.Version,
		tempDir:  opts.TempDir,
	}
	if api.tempDir == "" {
		api.tempDir = os.TempDir()
	}

	r := gin.New()
	r.Use(
		requestIDMiddleware(),
		recoveryMiddleware(logger),
		corsMiddleware(),
		loggingMiddleware(logger),
		metricsMiddleware(opts.Metrics),
	)

	r.GET("/", api.root)
	r.GET("/health", api.health)
	r.POST("/detect-sounds", api.detectSounds)
	r.POST("/speech-duration", api.speechDuration)
	r.POST("/analyze-pacing", api.analyzePacing)
	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	return r
}

func (a *httpAPI) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":             "Audio Analysis API",
		"version":             a.version,
		"model":               "PANNs Cnn14_DecisionLevelMax",
		"vad_model":           "Silero VAD v5",
		"classes":             engine.AudioSetClasses,
		"temporal_resolution": "10ms",
		"endpoints": gin.H{
			"detect":  "POST /detect-sounds",
			"speech":  "POST /speech-duration",
			"pacing":  "POST /analyze-pacing",
			"health":  "GET /health",
			"metrics": "GET /metrics",
		},
	})
}

func (a *httpAPI) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": a.analyzer.ModelLoaded(),
	})
}

func (a *httpAPI) detectSounds(c *gin.Context) {
	params, err := sedParams(a.cfg.SED, c.GetQuery)
	if err != nil {
		a.fail(c, "query", err)
		return
	}
	a.limitBody(c)
	path, filename, err := a.saveUpload(c, "file")
	if err != nil {
		a.fail(c, "body", err)
		return
	}
	defer a.removeUpload(path)

	report, err := a.analyzer.DetectSounds(c.Request.Context(), path, filename, params)
	if err != nil {
		a.log.Error("error processing audio", "request_id", c.GetString(requestIDKey), "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Audio processing failed: %v", err)})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *httpAPI) speechDuration(c *gin.Context) {
	params, err := vadParams(a.cfg.VAD, c.GetQuery)
	if err != nil {
		a.fail(c, "query", err)
		return
	}
	a.limitBody(c)
	path, _, err := a.saveUpload(c, "file")
	if err != nil {
		a.fail(c, "body", err)
		return
	}
	defer a.removeUpload(path)

	c.JSON(http.StatusOK, a.analyzer.SpeechDuration(c.Request.Context(), path, params))
}

func (a *httpAPI) analyzePacing(c *gin.Context) {
	params, err := vadParams(a.cfg.VAD, c.GetQuery)
	if err != nil {
		a.fail(c, "query", err)
		return
	}
	a.limitBody(c)
	refPath, _, err := a.saveUpload(c, "reference")
	if err != nil {
		a.fail(c, "body", err)
		return
	}
	defer a.removeUpload(refPath)
	userPath, _, err := a.saveUpload(c, "user")
	if err != nil {
		a.fail(c, "body", err)
		return
	}
	defer a.removeUpload(userPath)

	c.JSON(http.StatusOK, a.analyzer.AnalyzePacing(c.Request.Context(), refPath, userPath, params))
}

func (a *httpAPI) limitBody(c *gin.Context) {
	if a.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.cfg.MaxUploadBytes)
	}
}

// saveUpload writes a multipart file to a temp path that keeps the original
// extension, so the decoder can pick the right format.
func (a *httpAPI) saveUpload(c *gin.Context, field string) (path, filename string, err error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", err
		}
		return "", "", &paramError{Field: field, Msg: "field required"}
	}
	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = defaultUploadExt
	}
	path = filepath.Join(a.tempDir, "nupi-upload-"+uuid.NewString()+ext)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		a.removeUpload(path)
		return "", "", fmt.Errorf("save upload: %w", err)
	}
	return path, fh.Filename, nil
}

func (a *httpAPI) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn("failed to clean up temp file", "path", filepath.Base(path), "error", err)
		return
	}
	a.log.Debug("cleaned up temp file", "path", filepath.Base(path))
}

// fail maps request errors to FastAPI-style responses.
func (a *httpAPI) fail(c *gin.Context, loc string, err error) {
	var pe *paramError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &pe):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc":  []string{loc, pe.Field},
			"msg":  pe.Msg,
			"type": "value_error",
		}}})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit)})
	default:
		a.log.Error("request failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
