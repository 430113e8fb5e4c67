// Package dispatch is the conversation entry point: it owns the session
// lifecycle for a turn, routes to exactly one leaf agent, and returns the
// ordered event stream.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
	"github.com/naruemon-s/glowdesk/pkg/metrics"
)

const clarificationMessage = "I'm sorry, I didn't quite catch that. Could you tell me a bit more about what you need?"

// GraphInput is one inbound user turn addressed to a session.
type GraphInput struct {
	Key  statex.Key
	Turn statex.Turn
}

type graphState struct {
	key     statex.Key
	turn    statex.Turn
	now     time.Time
	session *statex.Session

	route    Route
	response contractx.AgentResponse
	author   contractx.AgentType
}

type Dispatcher struct {
	store       statex.Store
	agents      contractx.Registry
	transcripts contractx.TranscriptStore

	graphRunner compose.Runnable[GraphInput, []contractx.Event]

	now func() time.Time
}

type Option func(*Dispatcher)

// WithTranscripts enables best-effort transcript persistence after each turn.
func WithTranscripts(ts contractx.TranscriptStore) Option {
	return func(d *Dispatcher) { d.transcripts = ts }
}

func WithNowFunc(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func New(store statex.Store, agents contractx.Registry, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}

	d := &Dispatcher{
		store:  store,
		agents: agents,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	graphRunner, err := d.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	d.graphRunner = graphRunner

	return d, nil
}

// HandleTurn processes one user turn end to end and returns the event
// stream: exactly one agent-authored event, or one dispatcher-authored
// clarification.
func (d *Dispatcher) HandleTurn(ctx context.Context, key statex.Key, turn statex.Turn) ([]contractx.Event, error) {
	events, err := d.graphRunner.Invoke(ctx, GraphInput{Key: key, Turn: turn})
	if err != nil {
		metrics.TurnErrors.Inc()
		return nil, err
	}
	return events, nil
}

func (d *Dispatcher) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, []contractx.Event], error) {
	graph := compose.NewGraph[GraphInput, []contractx.Event]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*graphState, error) {
			return d.validateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_session",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return d.loadOrCreateSession(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_session: %w", err)
	}

	if err := graph.AddLambdaNode("classify_route",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			in.route = Classify(in.session, in.turn)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_route: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_agent",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return d.dispatchAgent(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_agent: %w", err)
	}

	if err := graph.AddLambdaNode("apply_and_save",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return d.applyAndSave(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_and_save: %w", err)
	}

	if err := graph.AddLambdaNode("persist_transcript",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return d.persistTranscript(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_transcript: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_events",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) ([]contractx.Event, error) {
			return []contractx.Event{contractx.TextEvent(in.author, in.response.Message)}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_events: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_session"},
		{"load_or_create_session", "classify_route"},
		{"classify_route", "dispatch_agent"},
		{"dispatch_agent", "apply_and_save"},
		{"apply_and_save", "persist_transcript"},
		{"persist_transcript", "finalize_events"},
		{"finalize_events", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("dispatch.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile dispatch graph: %w", err)
	}
	return runner, nil
}

func (d *Dispatcher) validateRequest(in GraphInput) (*graphState, error) {
	if err := in.Key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	if len(in.Turn.Parts) == 0 {
		return nil, fmt.Errorf("%w: turn has no content", contractx.ErrValidation)
	}

	now := d.now()
	turn := in.Turn
	turn.Role = statex.RoleUser
	if turn.At.IsZero() {
		turn.At = now
	}
	return &graphState{key: in.Key, turn: turn, now: now}, nil
}

func (d *Dispatcher) loadOrCreateSession(ctx context.Context, in *graphState) (*graphState, error) {
	sess, err := d.store.Get(ctx, in.key)
	if errors.Is(err, statex.ErrStateNotFound) {
		sess, err = d.store.Create(ctx, in.key, nil)
		if errors.Is(err, statex.ErrSessionExists) {
			sess, err = d.store.Get(ctx, in.key)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	in.session = sess
	return in, nil
}

func (d *Dispatcher) dispatchAgent(ctx context.Context, in *graphState) (*graphState, error) {
	if in.route.Ambiguous {
		metrics.ClarificationTurns.Inc()
		in.author = contractx.AgentTypeDispatcher
		in.response = contractx.AgentResponse{Message: clarificationMessage}
		return in, nil
	}

	agent := d.agentFor(in.route.Agent)
	if agent == nil {
		return nil, fmt.Errorf("%w: no agent registered for %s", contractx.ErrValidation, in.route.Agent)
	}
	metrics.RoutingDecisions.WithLabelValues(string(in.route.Agent)).Inc()

	resp, err := agent.Respond(ctx, contractx.AgentRequest{
		Session: in.session,
		Turn:    in.turn,
		Now:     in.now,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", in.route.Agent, err)
	}

	in.author = in.route.Agent
	in.response = resp
	return d.followRedirect(ctx, in)
}

// followRedirect corrects a routing miss reported by the responding agent:
// the turn is re-dispatched once to the named agent, whose reply becomes
// the single agent turn emitted. Bag updates from both agents are kept,
// with the target's winning on key collisions.
func (d *Dispatcher) followRedirect(ctx context.Context, in *graphState) (*graphState, error) {
	target := in.response.Redirect
	if target == "" || target == in.author {
		return in, nil
	}
	next := d.agentFor(target)
	if next == nil {
		in.response.Redirect = ""
		return in, nil
	}

	metrics.RedirectedTurns.Inc()
	log.Debug().
		Str("from", string(in.author)).
		Str("to", string(target)).
		Msg("redirecting routing miss")

	resp, err := next.Respond(ctx, contractx.AgentRequest{
		Session: in.session,
		Turn:    in.turn,
		Now:     in.now,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", target, err)
	}

	if len(in.response.BagUpdates) > 0 {
		merged := make(map[string]any, len(in.response.BagUpdates)+len(resp.BagUpdates))
		for k, v := range in.response.BagUpdates {
			merged[k] = v
		}
		for k, v := range resp.BagUpdates {
			merged[k] = v
		}
		resp.BagUpdates = merged
	}
	resp.Redirect = ""

	in.author = target
	in.response = resp
	return in, nil
}

func (d *Dispatcher) agentFor(t contractx.AgentType) contractx.LeafAgent {
	switch t {
	case contractx.AgentTypeSupport:
		return d.agents.Support()
	case contractx.AgentTypeBooking:
		return d.agents.Booking()
	case contractx.AgentTypePortfolio:
		return d.agents.Portfolio()
	case contractx.AgentTypeRAG:
		return d.agents.RAG()
	}
	return nil
}

// applyAndSave appends both sides of the exchange, merges bag updates, and
// saves the session. History is append-only; the turn order within the
// exchange is user first, agent second.
func (d *Dispatcher) applyAndSave(ctx context.Context, in *graphState) (*graphState, error) {
	sess := in.session
	sess.AppendTurn(in.turn)
	sess.AppendTurn(statex.Turn{
		Role:  statex.RoleAgent,
		Parts: []statex.Part{statex.TextPart(in.response.Message)},
		At:    in.now,
	})
	for k, v := range in.response.BagUpdates {
		sess.SetBag(k, v)
	}
	sess.Touch(in.now)

	if err := d.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return in, nil
}

func (d *Dispatcher) persistTranscript(ctx context.Context, in *graphState) (*graphState, error) {
	if d.transcripts == nil {
		return in, nil
	}
	err := d.transcripts.SaveExchange(ctx, in.key.SessionID, in.key.UserID, in.turn.Text(), in.response.Message)
	if err != nil {
		metrics.TranscriptFailures.Inc()
		log.Warn().Err(err).
			Str("session_id", in.key.SessionID).
			Msg("transcript persistence failed")
	}
	return in, nil
}
