package events

import "strings"

// Event categories.
const (
	CategoryMusic   = "music"
	CategoryAmbient = "ambient"
	CategoryEffect  = "effect"
	CategoryOther   = "other"
)

var (
	musicKeywords = []string{
		"music", "song", "melody", "instrument", "guitar", "piano",
		"drum", "bass", "violin", "singing", "vocal", "choir",
	}
	ambientKeywords = []string{
		"rain", "wind", "thunder", "ocean", "water", "stream", "river",
		"bird", "cricket", "frog", "insect", "nature",
		"traffic", "street", "crowd", "city", "urban",
		"engine", "hum", "buzz", "background", "environment",
	}
	effectKeywords = []string{
		"crash", "bang", "slam", "knock", "hit", "impact",
		"glass", "break", "shatter", "smash",
		"door", "footstep", "walk", "step",
		"car", "horn", "brake", "screech",
		"gunshot", "explosion", "boom", "blast",
		"laugh", "scream", "shout", "yell", "cry",
	}
)

// Categorize maps an AudioSet label to a coarse category by case-insensitive
// substring match. Music wins over ambient, ambient over effect.
func Categorize(label string) string {
	l := strings.ToLower(label)
	switch {
	case containsAny(l, musicKeywords):
		return CategoryMusic
	case containsAny(l, ambientKeywords):
		return CategoryAmbient
	case containsAny(l, effectKeywords):
		return CategoryEffect
	default:
		return CategoryOther
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
