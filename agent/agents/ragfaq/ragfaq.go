// Package ragfaq implements the knowledge agent: retrieve passages from the
// merchant's corpus, synthesize a grounded answer, and cite sources.
package ragfaq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	"github.com/naruemon-s/glowdesk/agent/agents/llmgraph"
	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	"github.com/naruemon-s/glowdesk/pkg/retrieval"
)

const (
	insufficientAnswer   = "I'm sorry, I don't have that information on hand. Is there anything else I can help with?"
	retrievalUnavailable = "I'm sorry, I can't look that up right now. Could you try again in a moment?"
)

// Retriever is the slice of the retrieval service the agent needs.
// *retrieval.Client satisfies it.
type Retriever interface {
	Query(ctx context.Context, corpus, query string) ([]retrieval.Chunk, error)
	HasCorpus(ctx context.Context, name string) (bool, error)
	DefaultCorpus() string
}

// MerchantResolver maps a conversation to its owning merchant. *db.Store
// satisfies it.
type MerchantResolver interface {
	MerchantIDForConversation(ctx context.Context, conversationID string) (string, error)
}

type answerOutput struct {
	Answerable bool   `json:"answerable"`
	Message    string `json:"message"`
}

type Agent struct {
	retriever Retriever
	merchants MerchantResolver
	runner    compose.Runnable[map[string]any, answerOutput]
}

func New(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	retriever Retriever,
	merchants MerchantResolver,
) (*Agent, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: rag answer prompt is empty", contractx.ErrPromptMissing)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", contractx.ErrValidation)
	}
	runner, err := llmgraph.CompileStructured[answerOutput](ctx, chatModel, systemPrompt, "ragfaq.answer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile rag answer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Agent{retriever: retriever, merchants: merchants, runner: runner}, nil
}

// CorpusName is the per-merchant corpus naming convention.
func CorpusName(merchantID string) string {
	return "merchant_corpus_" + merchantID
}

// resolveCorpus prefers the merchant-specific corpus for this conversation
// and falls back to the default when the lookup fails or the corpus does
// not exist yet.
func (a *Agent) resolveCorpus(ctx context.Context, conversationID string) string {
	fallback := a.retriever.DefaultCorpus()
	if a.merchants == nil || strings.TrimSpace(conversationID) == "" {
		return fallback
	}

	merchantID, err := a.merchants.MerchantIDForConversation(ctx, conversationID)
	if err != nil {
		log.Debug().Err(err).Str("conversation_id", conversationID).Msg("merchant lookup failed, using default corpus")
		return fallback
	}

	name := CorpusName(merchantID)
	ok, err := a.retriever.HasCorpus(ctx, name)
	if err != nil {
		log.Debug().Err(err).Str("corpus", name).Msg("corpus existence check failed, using default corpus")
		return fallback
	}
	if !ok {
		return fallback
	}
	return name
}

func (a *Agent) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}

	question := req.Turn.Text()
	if IsCasualTurn(question) {
		return contractx.AgentResponse{
			Message: "Hello! Ask me anything about our services, prices, or policies.",
		}, nil
	}

	// Retrieval failures stay inside the agent as a plain-language reply;
	// only validation and infrastructure errors escape to the transport.
	corpus := a.resolveCorpus(ctx, req.Session.SessionID)
	chunks, err := a.retriever.Query(ctx, corpus, question)
	if err != nil {
		log.Warn().Err(err).Str("corpus", corpus).Msg("corpus query failed")
		return contractx.AgentResponse{Message: retrievalUnavailable}, nil
	}
	if len(chunks) == 0 {
		return contractx.AgentResponse{Message: insufficientAnswer}, nil
	}

	passages := make([]map[string]string, 0, len(chunks))
	for _, c := range chunks {
		passages = append(passages, map[string]string{
			"title":   c.Title,
			"content": c.Content,
		})
	}
	payload := map[string]any{
		"question": question,
		"context":  passages,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: marshal rag payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: rag answer invoke: %v", contractx.ErrModelInvoke, err)
	}
	if !out.Answerable || strings.TrimSpace(out.Message) == "" {
		return contractx.AgentResponse{Message: insufficientAnswer}, nil
	}

	message := strings.TrimSpace(out.Message)
	if citations := BuildCitations(chunks); len(citations) > 0 {
		message += "\n\nSources: " + strings.Join(citations, ", ")
	}
	return contractx.AgentResponse{Message: message}, nil
}
