package ragfaq

import "strings"

var casualPhrases = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "hiya": {}, "howdy": {},
	"thanks": {}, "thank you": {}, "thx": {}, "ok": {}, "okay": {},
	"bye": {}, "goodbye": {}, "see you": {}, "see ya": {},
	"good morning": {}, "good afternoon": {}, "good evening": {},
	"good night": {}, "how are you": {}, "how are you doing": {},
	"how's it going": {}, "hows it going": {}, "how is it going": {},
	"how's your day": {}, "what's up": {}, "whats up": {}, "sup": {},
	"no problem": {}, "no worries": {}, "you're welcome": {},
}

// IsCasualTurn reports whether a message is small talk that should be
// answered directly instead of triggering retrieval.
func IsCasualTurn(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, "!.?")
	if t == "" {
		return true
	}
	if _, ok := casualPhrases[t]; ok {
		return true
	}
	// Very short messages with no question mark carry no retrievable intent.
	if len(strings.Fields(t)) == 1 && !strings.Contains(text, "?") {
		_, greeting := casualPhrases[t]
		return greeting
	}
	return false
}
