// Package reply turns a loaded character card and an incoming message
// into one scripted reply: classify the message's mood, pick a template
// for it, substitute the placeholders.
package reply

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"rpstage/internal/character"
)

// passthrough is the template of last resort: the message echoed back.
const passthrough = "{msg}"

var placeholderRE = regexp.MustCompile(`\{[^{}]*\}`)

// Generate renders one reply for a character card. Template lookup falls
// back from the message's mood to neutral to a literal passthrough of the
// message.
func Generate(def *character.Definition, message string) string {
	tpls := def.SpeechPatterns[string(Classify(message))]
	if len(tpls) == 0 {
		tpls = def.SpeechPatterns[string(MoodNeutral)]
	}
	tpl := passthrough
	if len(tpls) > 0 {
		tpl = pick(tpls)
	}
	return Format(tpl, def.DisplayName(), message)
}

func pick(tpls character.Templates) string {
	if len(tpls) == 1 {
		return tpls[0]
	}
	return tpls[rand.IntN(len(tpls))]
}

// Format substitutes {name} and {msg} into a template. A template
// carrying any other placeholder is malformed; the raw message is
// returned instead so a bad card cannot break a reply.
func Format(tpl, name, msg string) string {
	for _, ph := range placeholderRE.FindAllString(tpl, -1) {
		if ph != "{name}" && ph != "{msg}" {
			return msg
		}
	}
	return strings.NewReplacer("{name}", name, "{msg}", msg).Replace(tpl)
}
