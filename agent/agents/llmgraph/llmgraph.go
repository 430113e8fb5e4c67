// Package llmgraph compiles the single-shot structured-output graph shared
// by every LLM-backed leaf agent: prompt -> model -> JSON parse.
package llmgraph

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const systemPromptVar = "system_prompt"

// CompileStructured builds the shared graph. The system prompt is bound as
// a template value instead of being inlined into the template text, so
// literal braces in prompt content (JSON response schemas) survive FString
// formatting instead of being read as placeholders.
func CompileStructured[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system_prompt}"),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddLambdaNode("bind_prompt",
		compose.InvokableLambda(func(ctx context.Context, in map[string]any) (map[string]any, error) {
			vars := make(map[string]any, len(in)+1)
			for k, v := range in {
				vars[k] = v
			}
			vars[systemPromptVar] = systemPrompt
			return vars, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add structured bind node: %w", err)
	}
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add structured prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add structured model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add structured parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "bind_prompt"); err != nil {
		return nil, fmt.Errorf("add structured edge start->bind: %w", err)
	}
	if err := graph.AddEdge("bind_prompt", "prompt"); err != nil {
		return nil, fmt.Errorf("add structured edge bind->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add structured edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add structured edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add structured edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile structured graph: %w", err)
	}
	return runner, nil
}
