package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	"github.com/naruemon-s/glowdesk/agent/agents/llmgraph"
	contractx "github.com/naruemon-s/glowdesk/agent/contract"
)

// Slots is what a single customer message contributes to the booking flow.
// Date and time stay verbatim; normalization happens in the agent against a
// fixed reference time.
type Slots struct {
	Service      string `json:"service"`
	DatePhrase   string `json:"date_phrase"`
	TimePhrase   string `json:"time_phrase"`
	CustomerName string `json:"customer_name"`
	Confirmed    bool   `json:"confirmed"`
	Cancelled    bool   `json:"cancelled"`
}

// SlotExtractor pulls slots out of one message. The agent owns all state
// transitions; the extractor is stateless and fakeable.
type SlotExtractor interface {
	Extract(ctx context.Context, message string, known map[string]string) (Slots, error)
}

type llmExtractor struct {
	runner compose.Runnable[map[string]any, Slots]
}

func NewLLMExtractor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (SlotExtractor, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: booking extraction prompt is empty", contractx.ErrPromptMissing)
	}
	runner, err := llmgraph.CompileStructured[Slots](ctx, chatModel, systemPrompt, "booking.extract_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile booking extract graph: %v", contractx.ErrModelInvoke, err)
	}
	return &llmExtractor{runner: runner}, nil
}

func (e *llmExtractor) Extract(ctx context.Context, message string, known map[string]string) (Slots, error) {
	payload := map[string]any{
		"message":     message,
		"known_slots": known,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return Slots{}, fmt.Errorf("%w: marshal extract payload: %v", contractx.ErrValidation, err)
	}

	out, err := e.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return Slots{}, fmt.Errorf("%w: booking extract invoke: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}
