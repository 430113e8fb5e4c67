// Package agents wires the four leaf agents behind the registry the
// dispatcher routes through.
package agents

import (
	"context"
	"fmt"

	bookingx "github.com/naruemon-s/glowdesk/agent/agents/booking"
	portfoliox "github.com/naruemon-s/glowdesk/agent/agents/portfolio"
	ragfaqx "github.com/naruemon-s/glowdesk/agent/agents/ragfaq"
	supportx "github.com/naruemon-s/glowdesk/agent/agents/support"
	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	llmx "github.com/naruemon-s/glowdesk/agent/llm"
	promptx "github.com/naruemon-s/glowdesk/agent/prompt"
	toolx "github.com/naruemon-s/glowdesk/agent/tool"
)

// Deps are the external collaborators the leaf agents need. All of them are
// interfaces so tests can pass fakes.
type Deps struct {
	BookingStore toolx.BookingStore
	Retriever    ragfaqx.Retriever
	Merchants    ragfaqx.MerchantResolver
	Vision       portfoliox.VisionModel
}

type registryImpl struct {
	support   contractx.LeafAgent
	booking   contractx.LeafAgent
	portfolio contractx.LeafAgent
	rag       contractx.LeafAgent
}

func (r *registryImpl) Support() contractx.LeafAgent   { return r.support }
func (r *registryImpl) Booking() contractx.LeafAgent   { return r.booking }
func (r *registryImpl) Portfolio() contractx.LeafAgent { return r.portfolio }
func (r *registryImpl) RAG() contractx.LeafAgent       { return r.rag }

func NewRegistry(ctx context.Context, cfg llmx.Config, deps Deps) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	supportModelCfg := cfg.OpenRouterFor(contractx.AgentTypeSupport)
	supportModel, err := supportModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create support model: %v", contractx.ErrModelInvoke, err)
	}
	bookingModelCfg := cfg.OpenRouterFor(contractx.AgentTypeBooking)
	bookingModel, err := bookingModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create booking model: %v", contractx.ErrModelInvoke, err)
	}
	ragModelCfg := cfg.OpenRouterFor(contractx.AgentTypeRAG)
	ragModel, err := ragModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create rag model: %v", contractx.ErrModelInvoke, err)
	}

	support, err := supportx.New(ctx, supportModel, prompts.Support)
	if err != nil {
		return nil, err
	}

	extractor, err := bookingx.NewLLMExtractor(ctx, bookingModel, prompts.BookingExtract)
	if err != nil {
		return nil, err
	}
	booking, err := bookingx.New(extractor, toolx.NewBookingTools(deps.BookingStore))
	if err != nil {
		return nil, err
	}

	portfolio, err := portfoliox.New(deps.Vision, prompts.PortfolioVision)
	if err != nil {
		return nil, err
	}

	rag, err := ragfaqx.New(ctx, ragModel, prompts.RAGAnswer, deps.Retriever, deps.Merchants)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		support:   support,
		booking:   booking,
		portfolio: portfolio,
		rag:       rag,
	}, nil
}
