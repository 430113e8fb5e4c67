package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	openrouterx "github.com/naruemon-s/glowdesk/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	SupportModel         string  `envconfig:"SUPPORT_MODEL" split_words:"true"`
	BookingModel         string  `envconfig:"BOOKING_MODEL" split_words:"true"`
	RAGModel             string  `envconfig:"RAG_MODEL" split_words:"true"`
	VisionModel          string  `envconfig:"VISION_MODEL" split_words:"true"`
	SupportTemperature   float32 `envconfig:"SUPPORT_TEMPERATURE" split_words:"true" default:"-1"`
	BookingTemperature   float32 `envconfig:"BOOKING_TEMPERATURE" split_words:"true" default:"-1"`
	RAGTemperature       float32 `envconfig:"RAG_TEMPERATURE" split_words:"true" default:"-1"`
	PortfolioTemperature float32 `envconfig:"PORTFOLIO_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model and temperature for a given agent,
// falling back to the shared defaults when no override is set.
func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch agentType {
	case contractx.AgentTypeSupport:
		if v := strings.TrimSpace(c.SupportModel); v != "" {
			modelName = v
		}
		if c.SupportTemperature >= 0 {
			temp = c.SupportTemperature
		}
	case contractx.AgentTypeBooking:
		if v := strings.TrimSpace(c.BookingModel); v != "" {
			modelName = v
		}
		if c.BookingTemperature >= 0 {
			temp = c.BookingTemperature
		}
	case contractx.AgentTypeRAG:
		if v := strings.TrimSpace(c.RAGModel); v != "" {
			modelName = v
		}
		if c.RAGTemperature >= 0 {
			temp = c.RAGTemperature
		}
	case contractx.AgentTypePortfolio:
		if v := strings.TrimSpace(c.VisionModel); v != "" {
			modelName = v
		}
		if c.PortfolioTemperature >= 0 {
			temp = c.PortfolioTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
