package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/support.txt
	supportRaw string

	//go:embed template/booking_extract.txt
	bookingExtractRaw string

	//go:embed template/rag_answer.txt
	ragAnswerRaw string

	//go:embed template/portfolio_vision.txt
	portfolioVisionRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Support         string
	BookingExtract  string
	RAGAnswer       string
	PortfolioVision string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Support:         strings.TrimSpace(supportRaw),
		BookingExtract:  strings.TrimSpace(bookingExtractRaw),
		RAGAnswer:       strings.TrimSpace(ragAnswerRaw),
		PortfolioVision: strings.TrimSpace(portfolioVisionRaw),
	}
}
