package analysis

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nupi-ai/plugin-audio-analysis/internal/metrics"
)

type closer interface{ Close() error }

// handle lazily creates a model on first use. A failed load leaves the handle
// empty so the next call tries again. The mutex also serializes inference.
type handle[T closer] struct {
	name    string
	load    func() (T, error)
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	value  T
	loaded atomic.Bool
}

func newHandle[T closer](name string, load func() (T, error), log *slog.Logger, m *metrics.Metrics) *handle[T] {
	return &handle[T]{name: name, load: load, log: log, metrics: m}
}

// ensureLocked loads the model if needed. The caller holds h.mu.
func (h *handle[T]) ensureLocked() error {
	if h.loaded.Load() {
		return nil
	}
	h.log.Info("initializing model", "model", h.name)
	start := time.Now()
	v, err := h.load()
	h.metrics.RecordModelLoad(h.name, err == nil)
	if err != nil {
		h.log.Error("model initialization failed", "model", h.name, "error", err)
		return err
	}
	h.value = v
	h.loaded.Store(true)
	h.log.Info("model initialized", "model", h.name, "elapsed", time.Since(start))
	return nil
}

// with runs fn with exclusive access to the loaded model.
func (h *handle[T]) with(ctx context.Context, fn func(T) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.ensureLocked(); err != nil {
		return err
	}
	return fn(h.value)
}

// preload loads the model without running inference.
func (h *handle[T]) preload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ensureLocked()
}

func (h *handle[T]) isLoaded() bool { return h.loaded.Load() }

func (h *handle[T]) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded.Load() {
		return nil
	}
	err := h.value.Close()
	var zero T
	h.value = zero
	h.loaded.Store(false)
	h.metrics.RecordModelUnload(h.name)
	return err
}
