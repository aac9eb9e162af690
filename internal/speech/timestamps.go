// Package speech turns per-window voice probabilities into speech segments
// and compares speech durations between recordings.
package speech

import (
	"fmt"
	"math"
)

const (
	// DefaultSampleRate is the rate Timestamps assumes when Params leaves it unset.
	DefaultSampleRate = 16000
	// DefaultWindowSamples is the window Timestamps assumes when Params leaves it unset.
	DefaultWindowSamples = 512

	// maxSpeechSplitSilenceMs is the shortest silence a segment exceeding
	// MaxSpeechDurationS may be split at.
	maxSpeechSplitSilenceMs = 98
	// negThresholdGap is the hysteresis between speech onset and offset.
	negThresholdGap = 0.15
	minNegThreshold = 0.01
)

// Params tune speech segmentation.
type Params struct {
	Threshold            float64
	MinSpeechDurationMs  int
	MinSilenceDurationMs int
	SpeechPadMs          int
	// MaxSpeechDurationS caps a segment's length; zero means unbounded.
	MaxSpeechDurationS float64

	SampleRate    int
	WindowSamples int
}

// DefaultParams returns the Silero defaults.
func DefaultParams() Params {
	return Params{
		Threshold:            0.5,
		MinSpeechDurationMs:  250,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
		SampleRate:           DefaultSampleRate,
		WindowSamples:        DefaultWindowSamples,
	}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if !(p.Threshold >= 0 && p.Threshold <= 1) {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", p.Threshold)
	}
	if p.MinSpeechDurationMs < 0 || p.MinSilenceDurationMs < 0 || p.SpeechPadMs < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	if math.IsNaN(p.MaxSpeechDurationS) || math.IsInf(p.MaxSpeechDurationS, 0) || p.MaxSpeechDurationS < 0 {
		return fmt.Errorf("max speech duration must be finite and non-negative, got %v", p.MaxSpeechDurationS)
	}
	return nil
}

func (p Params) withDefaults() Params {
	if p.SampleRate <= 0 {
		p.SampleRate = DefaultSampleRate
	}
	if p.WindowSamples <= 0 {
		p.WindowSamples = DefaultWindowSamples
	}
	return p
}

// Segment is a speech region in samples, [Start, End).
type Segment struct {
	Start int
	End   int
}

// Timestamps runs the Silero speech-timestamp state machine over one
// probability per window and returns padded segments in samples.
// totalSamples is the unpadded recording length.
func Timestamps(probs []float32, totalSamples int, p Params) []Segment {
	p = p.withDefaults()
	rate := float64(p.SampleRate)
	window := p.WindowSamples

	minSpeech := rate * float64(p.MinSpeechDurationMs) / 1000
	pad := rate * float64(p.SpeechPadMs) / 1000
	minSilence := rate * float64(p.MinSilenceDurationMs) / 1000
	minSilenceAtMax := rate * maxSpeechSplitSilenceMs / 1000
	maxSpeech := math.Inf(1)
	if p.MaxSpeechDurationS > 0 {
		maxSpeech = rate*p.MaxSpeechDurationS - float64(window) - 2*pad
	}
	negThreshold := math.Max(p.Threshold-negThresholdGap, minNegThreshold)

	var (
		segments  []Segment
		triggered bool
		current   Segment
		tempEnd   int
		prevEnd   int
		nextStart int
	)
	for i, prob := range probs {
		pr := float64(prob)
		pos := window * i

		if pr >= p.Threshold && tempEnd != 0 {
			tempEnd = 0
			if nextStart < prevEnd {
				nextStart = pos
			}
		}

		if pr >= p.Threshold && !triggered {
			triggered = true
			current = Segment{Start: pos}
			continue
		}

		if triggered && float64(pos-current.Start) > maxSpeech {
			if prevEnd != 0 {
				current.End = prevEnd
				segments = append(segments, current)
				if nextStart < prevEnd {
					triggered = false
					current = Segment{}
				} else {
					current = Segment{Start: nextStart}
				}
				prevEnd, nextStart, tempEnd = 0, 0, 0
			} else {
				current.End = pos
				segments = append(segments, current)
				current = Segment{}
				prevEnd, nextStart, tempEnd = 0, 0, 0
				triggered = false
				continue
			}
		}

		if pr < negThreshold && triggered {
			if tempEnd == 0 {
				tempEnd = pos
			}
			if float64(pos-tempEnd) > minSilenceAtMax {
				prevEnd = tempEnd
			}
			if float64(pos-tempEnd) < minSilence {
				continue
			}
			current.End = tempEnd
			if float64(current.End-current.Start) > minSpeech {
				segments = append(segments, current)
			}
			current = Segment{}
			prevEnd, nextStart, tempEnd = 0, 0, 0
			triggered = false
		}
	}

	if triggered && float64(totalSamples-current.Start) > minSpeech {
		current.End = totalSamples
		segments = append(segments, current)
	}

	padSegments(segments, totalSamples, pad)
	return segments
}

// padSegments widens every segment by pad samples, splitting the gap between
// neighbours in half when it is narrower than twice the pad.
func padSegments(segments []Segment, totalSamples int, pad float64) {
	for i := range segments {
		s := &segments[i]
		if i == 0 {
			s.Start = int(math.Max(0, float64(s.Start)-pad))
		}
		if i == len(segments)-1 {
			s.End = int(math.Min(float64(totalSamples), float64(s.End)+pad))
			continue
		}
		next := &segments[i+1]
		gap := next.Start - s.End
		if float64(gap) < 2*pad {
			s.End += gap / 2
			next.Start = max(0, next.Start-gap/2)
		} else {
			s.End = int(math.Min(float64(totalSamples), float64(s.End)+pad))
			next.Start = int(math.Max(0, float64(next.Start)-pad))
		}
	}
}
