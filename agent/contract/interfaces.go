package contract

import "context"

// LeafAgent is a single-purpose conversational role with its own prompt and
// tool set, invoked by the dispatcher exactly once per routed user turn.
type LeafAgent interface {
	Respond(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

// Registry exposes the four leaf agents to the dispatcher. Portfolio and
// RAG double as directly callable sub-routines (agent-as-tool), which is
// behaviorally equivalent to routing.
type Registry interface {
	Support() LeafAgent
	Booking() LeafAgent
	Portfolio() LeafAgent
	RAG() LeafAgent
}

// TranscriptStore persists the user/agent exchange after a turn. Failures
// are best-effort from the dispatcher's point of view: logged, never
// surfaced to the caller.
type TranscriptStore interface {
	SaveExchange(ctx context.Context, sessionID, userID, userText, agentText string) error
}
