package openrouter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

// VisionClient answers questions about a single inline image through a
// vision-capable OpenRouter model.
type VisionClient struct {
	client *openaisdk.Client
	model  string
}

func NewVisionClient(cfg Config) (*VisionClient, error) {
	client := NewClient(cfg)
	if client == nil {
		return nil, errors.New("openrouter: api key is required for vision client")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, errors.New("openrouter: vision model is required")
	}
	return &VisionClient{client: client, model: modelName}, nil
}

// AnalyzeImage sends the prompt and image as one user message and returns
// the generated text.
func (v *VisionClient) AnalyzeImage(ctx context.Context, prompt string, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("openrouter: image payload is empty")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := v.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(v.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(prompt),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: vision completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
