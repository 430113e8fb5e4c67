package contract

import (
	"time"

	statex "github.com/naruemon-s/glowdesk/agent/state"
)

type AgentType string

const (
	AgentTypeDispatcher AgentType = "dispatcher"
	AgentTypeSupport    AgentType = "support"
	AgentTypeBooking    AgentType = "booking"
	AgentTypePortfolio  AgentType = "portfolio"
	AgentTypeRAG        AgentType = "rag"
)

// AgentRequest carries one inbound user turn plus the session it belongs to.
// The turn is not yet part of the session history; the dispatcher appends
// both sides of the exchange after the agent has produced its reply.
type AgentRequest struct {
	Session *statex.Session `json:"session"`
	Turn    statex.Turn     `json:"turn"`
	Now     time.Time       `json:"now"`
}

// AgentResponse is a leaf agent's reply for a single turn.
type AgentResponse struct {
	Message string `json:"message"`

	// BagUpdates are merged into the session state bag after the turn
	// (resolved customer name, booking progress, and similar).
	BagUpdates map[string]any `json:"bag_updates,omitempty"`

	// Redirect names the agent that actually owns the topic. The dispatcher
	// treats it as a corrected routing miss and re-dispatches the turn once.
	Redirect AgentType `json:"redirect,omitempty"`
}

// Event is one element of the ordered response stream returned to callers
// of the conversation entry point.
type Event struct {
	Author AgentType     `json:"author"`
	Role   statex.Role   `json:"role"`
	Parts  []statex.Part `json:"parts"`
}

func TextEvent(author AgentType, text string) Event {
	return Event{
		Author: author,
		Role:   statex.RoleAgent,
		Parts:  []statex.Part{statex.TextPart(text)},
	}
}

// ToolResult is the uniform envelope for tool outcomes. Failures travel in
// Error and never escape the agent as a Go error.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r ToolResult) Failed() bool {
	return r.Error != ""
}
