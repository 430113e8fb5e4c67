// Package portfolio implements the style consultation agent. It finds the
// customer's most recent photo and runs it through a vision model.
package portfolio

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

const visionUnavailable = "I'm sorry, I couldn't take a proper look at that photo just now. Could you try sending it again?"

// VisionModel describes an image plus an instruction prompt.
// *openrouter.VisionClient satisfies it.
type VisionModel interface {
	AnalyzeImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

type Agent struct {
	vision VisionModel
	prompt string
}

func New(vision VisionModel, systemPrompt string) (*Agent, error) {
	if vision == nil {
		return nil, fmt.Errorf("%w: vision model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: portfolio vision prompt is empty", contractx.ErrPromptMissing)
	}
	return &Agent{vision: vision, prompt: systemPrompt}, nil
}

// LatestImage returns the newest image part across the current turn and the
// session history, scanning user turns newest-first. Pure; no session access
// beyond reading.
func LatestImage(sess *statex.Session, current statex.Turn) (*statex.InlineData, bool) {
	if img, ok := imageIn(current); ok {
		return img, true
	}
	if sess == nil {
		return nil, false
	}
	for i := len(sess.Turns) - 1; i >= 0; i-- {
		t := sess.Turns[i]
		if t.Role != statex.RoleUser {
			continue
		}
		if img, ok := imageIn(t); ok {
			return img, true
		}
	}
	return nil, false
}

func imageIn(t statex.Turn) (*statex.InlineData, bool) {
	for i := len(t.Parts) - 1; i >= 0; i-- {
		if t.Parts[i].IsImage() {
			return t.Parts[i].InlineData, true
		}
	}
	return nil, false
}

func (a *Agent) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	img, ok := LatestImage(req.Session, req.Turn)
	if !ok {
		return contractx.AgentResponse{
			Message: "I'd love to help with that! Could you upload a photo of the style you have in mind?",
		}, nil
	}

	prompt := a.prompt
	if text := req.Turn.Text(); text != "" {
		prompt = prompt + "\n\nCustomer note: " + text
	}

	// Vision failures stay inside the agent as a plain-language reply;
	// only validation and infrastructure errors escape to the transport.
	answer, err := a.vision.AnalyzeImage(ctx, prompt, img.MIMEType, img.Data)
	if err != nil {
		log.Warn().Err(err).Msg("vision analysis failed")
		return contractx.AgentResponse{Message: visionUnavailable}, nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: vision answer is empty", contractx.ErrSchemaViolation)
	}

	return contractx.AgentResponse{Message: answer}, nil
}
