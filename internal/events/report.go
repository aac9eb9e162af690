package events

// Summary counts events per category.
type Summary struct {
	AmbientCount int `json:"ambient_count"`
	EffectCount  int `json:"effect_count"`
	MusicCount   int `json:"music_count"`
	OtherCount   int `json:"other_count"`
}

// Summarize counts events by category.
func Summarize(events []Event) Summary {
	var s Summary
	for _, e := range events {
		switch e.Category {
		case CategoryAmbient:
			s.AmbientCount++
		case CategoryEffect:
			s.EffectCount++
		case CategoryMusic:
			s.MusicCount++
		default:
			s.OtherCount++
		}
	}
	return s
}

// ReportParameters echoes the parameters a report was produced with.
type ReportParameters struct {
	Threshold     float64 `json:"threshold"`
	MinDuration   float64 `json:"min_duration"`
	FrameDuration float64 `json:"frame_duration"`
}

// Report is the detect-sounds response body.
type Report struct {
	Status      string           `json:"status"`
	Filename    string           `json:"filename"`
	Duration    float64          `json:"duration"`
	TotalEvents int              `json:"total_events"`
	Events      []Event          `json:"events"`
	Summary     Summary          `json:"summary"`
	Parameters  ReportParameters `json:"parameters"`
}

// NewReport assembles a successful report for a recording of the given
// duration in seconds.
func NewReport(filename string, duration, frameDuration float64, params Params, events []Event) *Report {
	if events == nil {
		events = []Event{}
	}
	return &Report{
		Status:      "success",
		Filename:    filename,
		Duration:    duration,
		TotalEvents: len(events),
		Events:      events,
		Summary:     Summarize(events),
		Parameters: ReportParameters{
			Threshold:     params.Threshold,
			MinDuration:   params.MinDuration,
			FrameDuration: frameDuration,
		},
	}
}
