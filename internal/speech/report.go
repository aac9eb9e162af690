package speech

import "encoding/json"

// SegmentSeconds is a speech segment in seconds.
type SegmentSeconds struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// DurationReport is the speech-duration result for one recording. A failed
// report serializes as {"success": false, "error": ...} only.
type DurationReport struct {
	Success           bool             `json:"success"`
	Error             string           `json:"error,omitempty"`
	SpeechDuration    float64          `json:"speech_duration"`
	NumSpeechSegments int              `json:"num_speech_segments"`
	Segments          []SegmentSeconds `json:"segments"`
}

// Summarize converts sample segments to a successful report.
func Summarize(segments []Segment, rate int) DurationReport {
	r := DurationReport{Success: true, NumSpeechSegments: len(segments), Segments: make([]SegmentSeconds, 0, len(segments))}
	sr := float64(rate)
	total := 0
	for _, s := range segments {
		total += s.End - s.Start
		r.Segments = append(r.Segments, SegmentSeconds{
			Start:    float64(s.Start) / sr,
			End:      float64(s.End) / sr,
			Duration: float64(s.End-s.Start) / sr,
		})
	}
	r.SpeechDuration = float64(total) / sr
	return r
}

// FailedDuration returns a failed report carrying err's message.
func FailedDuration(err error) DurationReport {
	return DurationReport{Error: err.Error()}
}

func (r DurationReport) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failure{Error: r.Error})
	}
	type plain DurationReport
	return json.Marshal(plain(r))
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Pacing classifications, from much faster than the reference to much slower.
const (
	CriticallyFast = "critically_fast"
	Fast           = "fast"
	SlightlyFast   = "slightly_fast"
	Perfect        = "perfect"
	SlightlySlow   = "slightly_slow"
	Slow           = "slow"
	CriticallySlow = "critically_slow"
)

// Classify maps a user/reference speech duration ratio to a pacing band.
func Classify(ratio float64) string {
	switch {
	case ratio >= 0.97 && ratio <= 1.03:
		return Perfect
	case ratio >= 0.90 && ratio < 0.97:
		return SlightlyFast
	case ratio >= 0.75 && ratio < 0.90:
		return Fast
	case ratio < 0.75:
		return CriticallyFast
	case ratio > 1.03 && ratio <= 1.10:
		return SlightlySlow
	case ratio > 1.10 && ratio <= 1.25:
		return Slow
	default:
		return CriticallySlow
	}
}

// PacingReport compares a user recording against a reference. The veo_*
// fields describe the reference.
type PacingReport struct {
	Success            bool    `json:"success"`
	Error              string  `json:"error,omitempty"`
	VeoSpeechDuration  float64 `json:"veo_speech_duration"`
	UserSpeechDuration float64 `json:"user_speech_duration"`
	Ratio              float64 `json:"ratio"`
	Classification     string  `json:"classification"`
	VeoSegments        int     `json:"veo_segments"`
	UserSegments       int     `json:"user_segments"`
}

// Compare builds a pacing report from two duration reports. A failed input
// fails the comparison, the reference taking precedence.
func Compare(ref, user DurationReport) PacingReport {
	if !ref.Success {
		return PacingReport{Error: "VEO audio error: " + ref.Error}
	}
	if !user.Success {
		return PacingReport{Error: "User audio error: " + user.Error}
	}
	var ratio float64
	if ref.SpeechDuration > 0 {
		ratio = user.SpeechDuration / ref.SpeechDuration
	}
	return PacingReport{
		Success:            true,
		VeoSpeechDuration:  ref.SpeechDuration,
		UserSpeechDuration: user.SpeechDuration,
		Ratio:              ratio,
		Classification:     Classify(ratio),
		VeoSegments:        ref.NumSpeechSegments,
		UserSegments:       user.NumSpeechSegments,
	}
}

func (r PacingReport) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failure{Error: r.Error})
	}
	type plain PacingReport
	return json.Marshal(plain(r))
}
