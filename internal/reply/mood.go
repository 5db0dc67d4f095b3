package reply

import "strings"

// Mood is the coarse sentiment bucket a message falls into.
type Mood string

const (
	MoodAngry   Mood = "angry"
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
)

// Keyword sets are fixed. The angry set is checked first, so a message
// matching both moods reads as angry.
var (
	angryKeywords = []string{"angry", "mad", "怒", "生氣"}
	happyKeywords = []string{"happy", "love", "開心", "喜"}
)

// Classify buckets a message by substring containment against the fixed
// keyword sets. Matching is case-insensitive.
func Classify(message string) Mood {
	low := strings.ToLower(message)
	if containsAny(low, angryKeywords) {
		return MoodAngry
	}
	if containsAny(low, happyKeywords) {
		return MoodHappy
	}
	return MoodNeutral
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
