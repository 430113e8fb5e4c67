// Package support implements the front-desk agent: greetings, small talk,
// farewells, and verbal redirects toward the specialist that owns a topic.
package support

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	"github.com/naruemon-s/glowdesk/agent/agents/llmgraph"
	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

type llmOutput struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
	UserName string `json:"user_name"`
}

// redirectTargets maps the prompt's redirect vocabulary onto agent types.
// Anything else from the model is ignored.
var redirectTargets = map[string]contractx.AgentType{
	"booking":   contractx.AgentTypeBooking,
	"rag":       contractx.AgentTypeRAG,
	"portfolio": contractx.AgentTypePortfolio,
}

type Agent struct {
	runner compose.Runnable[map[string]any, llmOutput]
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Agent, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: support system prompt is empty", contractx.ErrPromptMissing)
	}
	runner, err := llmgraph.CompileStructured[llmOutput](ctx, chatModel, systemPrompt, "support.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile support graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Agent{runner: runner}, nil
}

func (a *Agent) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"user_message":         req.Turn.Text(),
		"user_name":            req.Session.BagString(statex.KeyUserName),
		"is_first_interaction": req.Session.BagBool(statex.KeyIsFirstInteraction),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: marshal support payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: support invoke: %v", contractx.ErrModelInvoke, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: support message is empty", contractx.ErrSchemaViolation)
	}

	updates := map[string]any{
		statex.KeyIsFirstInteraction: false,
	}
	if name := strings.TrimSpace(out.UserName); name != "" {
		updates[statex.KeyUserName] = name
	}

	return contractx.AgentResponse{
		Message:    message,
		BagUpdates: updates,
		Redirect:   redirectTargets[strings.ToLower(strings.TrimSpace(out.Redirect))],
	}, nil
}
