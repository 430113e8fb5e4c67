package dispatch

import (
	"strings"

	"github.com/naruemon-s/glowdesk/agent/agents/booking"
	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

// Route is a classification outcome: exactly one agent, or a request for
// clarification.
type Route struct {
	Agent     contractx.AgentType
	Ambiguous bool
}

var bookingKeywords = []string{
	"book", "appointment", "schedule", "reschedule", "reserve",
	"availability", "available", "slot", "cancel my",
}

var knowledgeKeywords = []string{
	"price", "cost", "how much", "hour", "open", "close", "closed",
	"where", "location", "address", "policy", "policies", "service",
	"offer", "do you", "what kind", "parking", "payment",
}

var greetingWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "hiya": {},
	"thanks": {}, "thank": {}, "bye": {}, "goodbye": {},
	"morning": {}, "afternoon": {}, "evening": {},
}

// Classify routes one user turn by deterministic rules. Identical
// (session, turn) inputs always produce the same route; no model call is
// involved.
func Classify(sess *statex.Session, turn statex.Turn) Route {
	text := strings.ToLower(strings.TrimSpace(turn.Text()))
	hasImage := turn.HasImage()

	if text == "" && !hasImage {
		return Route{Agent: contractx.AgentTypeSupport, Ambiguous: true}
	}

	// Images outrank text: a photo is a style consultation even when the
	// caption is chatty.
	if hasImage {
		return Route{Agent: contractx.AgentTypePortfolio}
	}

	if containsAny(text, bookingKeywords) {
		return Route{Agent: contractx.AgentTypeBooking}
	}
	if containsAny(text, knowledgeKeywords) {
		return Route{Agent: contractx.AgentTypeRAG}
	}

	// Mid-flow booking turns carry no keywords ("yes", "3pm", a name); the
	// session's flow state keeps them with the booking agent.
	if booking.FlowInProgress(sess) {
		return Route{Agent: contractx.AgentTypeBooking}
	}

	words := strings.Fields(text)
	if isFirstUserTurn(sess) && isGreeting(words) {
		return Route{Agent: contractx.AgentTypeSupport}
	}
	if len(words) < 2 && !strings.Contains(text, "?") && !isGreeting(words) {
		return Route{Agent: contractx.AgentTypeSupport, Ambiguous: true}
	}

	return Route{Agent: contractx.AgentTypeSupport}
}

func isFirstUserTurn(sess *statex.Session) bool {
	return sess == nil || sess.UserTurnCount() == 0
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isGreeting(words []string) bool {
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		w = strings.TrimRight(w, "!.?,")
		if _, ok := greetingWords[w]; ok {
			return true
		}
	}
	return false
}
