package support

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	"github.com/naruemon-s/glowdesk/agent/prompt"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

type fakeChatModel struct {
	content string
	err     error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.content}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func supportRequest(text string) contractx.AgentRequest {
	sess := statex.NewSession(statex.Key{App: "glowdesk", UserID: "u", SessionID: "s"}, nil, time.Now())
	return contractx.AgentRequest{
		Session: sess,
		Turn:    statex.Turn{Role: statex.RoleUser, Parts: []statex.Part{statex.TextPart(text)}},
		Now:     time.Now(),
	}
}

func TestSupportRespondSuccess(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{content: `{"message":"Hi Mina, welcome back!","redirect":"","user_name":"Mina"}`}
	agent, err := New(context.Background(), model, "front desk prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := agent.Respond(context.Background(), supportRequest("hi, it's Mina"))
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Message != "Hi Mina, welcome back!" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.BagUpdates[statex.KeyUserName] != "Mina" {
		t.Fatalf("captured name not in bag updates: %#v", resp.BagUpdates)
	}
	if v, ok := resp.BagUpdates[statex.KeyIsFirstInteraction].(bool); !ok || v {
		t.Fatalf("is_first_interaction should flip to false: %#v", resp.BagUpdates)
	}
}

func TestSupportRedirectMapsToAgentType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want contractx.AgentType
	}{
		{"booking", contractx.AgentTypeBooking},
		{"RAG", contractx.AgentTypeRAG},
		{"portfolio", contractx.AgentTypePortfolio},
		{"", ""},
		{"weather", ""},
	}
	for _, tc := range cases {
		model := &fakeChatModel{content: `{"message":"Let me hand you over.","redirect":"` + tc.raw + `"}`}
		agent, err := New(context.Background(), model, "front desk prompt")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		resp, err := agent.Respond(context.Background(), supportRequest("can I get a trim on friday?"))
		if err != nil {
			t.Fatalf("Respond() error = %v", err)
		}
		if resp.Redirect != tc.want {
			t.Fatalf("redirect %q mapped to %q, want %q", tc.raw, resp.Redirect, tc.want)
		}
	}
}

// The embedded prompt contains literal JSON braces; the graph must format
// it without reading them as template placeholders.
func TestSupportRespondWithEmbeddedPrompt(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{content: `{"message":"Welcome in!","redirect":""}`}
	agent, err := New(context.Background(), model, prompt.LoadPromptSet().Support)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := agent.Respond(context.Background(), supportRequest("hello"))
	if err != nil {
		t.Fatalf("Respond() with embedded prompt error = %v", err)
	}
	if resp.Message != "Welcome in!" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestSupportRespondEmptyMessageIsSchemaViolation(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{content: `{"message":"","redirect":""}`}
	agent, err := New(context.Background(), model, "front desk prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = agent.Respond(context.Background(), supportRequest("hello"))
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestSupportRespondModelFailure(t *testing.T) {
	t.Parallel()

	model := &fakeChatModel{err: errors.New("model down")}
	agent, err := New(context.Background(), model, "front desk prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = agent.Respond(context.Background(), supportRequest("hello"))
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestSupportRequiresPrompt(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &fakeChatModel{}, "   ")
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}
