// Package events turns a framewise class probability matrix into labeled,
// timestamped sound events.
package events

import (
	"fmt"
	"math"
	"sort"

	"github.com/nupi-ai/plugin-audio-analysis/internal/engine"
)

// Event is one contiguous detection of a single class.
type Event struct {
	Label      string  `json:"label"`
	Category   string  `json:"category"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// Params control event extraction.
type Params struct {
	// Threshold is the strict lower bound a frame probability must exceed.
	Threshold float64
	// MinDuration drops runs shorter than this many seconds.
	MinDuration float64
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if !(p.Threshold >= 0 && p.Threshold <= 1) {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", p.Threshold)
	}
	if math.IsNaN(p.MinDuration) || math.IsInf(p.MinDuration, 0) || p.MinDuration < 0 {
		return fmt.Errorf("min_duration must be finite and non-negative, got %v", p.MinDuration)
	}
	return nil
}

// Run is a half-open frame range [Start, End).
type Run struct {
	Start int
	End   int
}

// Runs returns the contiguous runs of frames whose probability is strictly
// above threshold. The comparison happens at float32 precision, so a frame
// equal to float32(threshold) is not above it.
func Runs(probs []float32, threshold float64) []Run {
	var runs []Run
	th := float32(threshold)
	start := -1
	for i, p := range probs {
		above := p > th
		switch {
		case above && start < 0:
			start = i
		case !above && start >= 0:
			runs = append(runs, Run{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, End: len(probs)})
	}
	return runs
}

// Extract scans every class in index order and keeps runs lasting at least
// params.MinDuration. The result is stably sorted by start time, so events
// starting together stay in class order.
func Extract(fw engine.Framewise, labels []string, frameDuration float64, params Params) []Event {
	classes := fw.Classes
	if len(labels) < classes {
		classes = len(labels)
	}
	events := []Event{}
	for c := 0; c < classes; c++ {
		probs := fw.Column(c)
		for _, r := range Runs(probs, params.Threshold) {
			duration := float64(r.End-r.Start) * frameDuration
			if duration < params.MinDuration {
				continue
			}
			events = append(events, Event{
				Label:      labels[c],
				Category:   Categorize(labels[c]),
				StartTime:  float64(r.Start) * frameDuration,
				EndTime:    float64(r.End) * frameDuration,
				Duration:   duration,
				Confidence: mean(probs[r.Start:r.End]),
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime < events[j].StartTime
	})
	return events
}

func mean(xs []float32) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
}
