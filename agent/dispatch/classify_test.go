package dispatch

import (
	"testing"
	"time"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
)

func textTurn(text string) statex.Turn {
	return statex.Turn{Role: statex.RoleUser, Parts: []statex.Part{statex.TextPart(text)}}
}

func imageTurn(caption string) statex.Turn {
	parts := []statex.Part{statex.ImagePart("image/png", []byte{1, 2, 3})}
	if caption != "" {
		parts = append(parts, statex.TextPart(caption))
	}
	return statex.Turn{Role: statex.RoleUser, Parts: parts}
}

func freshSession() *statex.Session {
	return statex.NewSession(statex.Key{App: "glowdesk", UserID: "u", SessionID: "s"}, nil, time.Now())
}

func TestClassifyRoutes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		turn statex.Turn
		want contractx.AgentType
	}{
		{"bare greeting", textTurn("hi!"), contractx.AgentTypeSupport},
		{"greeting with name", textTurn("hello there"), contractx.AgentTypeSupport},
		{"booking intent", textTurn("I'd like to book a haircut tomorrow"), contractx.AgentTypeBooking},
		{"reschedule intent", textTurn("can I reschedule my appointment"), contractx.AgentTypeBooking},
		{"availability", textTurn("do you have a slot on friday"), contractx.AgentTypeBooking},
		{"price question", textTurn("how much is a gel manicure"), contractx.AgentTypeRAG},
		{"hours question", textTurn("what are your opening hours"), contractx.AgentTypeRAG},
		{"location question", textTurn("where is your salon located"), contractx.AgentTypeRAG},
		{"image with style note", imageTurn("can you do this style?"), contractx.AgentTypePortfolio},
		{"image alone", imageTurn(""), contractx.AgentTypePortfolio},
		{"chatty fallback", textTurn("my day has been so long honestly"), contractx.AgentTypeSupport},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			route := Classify(freshSession(), tc.turn)
			if route.Ambiguous {
				t.Fatalf("route unexpectedly ambiguous")
			}
			if route.Agent != tc.want {
				t.Fatalf("Classify() = %s, want %s", route.Agent, tc.want)
			}
		})
	}
}

func TestClassifyAmbiguous(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		turn statex.Turn
	}{
		{"no content", statex.Turn{Role: statex.RoleUser, Parts: []statex.Part{statex.TextPart("   ")}}},
		{"single opaque word", textTurn("banana")},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			route := Classify(freshSession(), tc.turn)
			if !route.Ambiguous {
				t.Fatalf("expected ambiguous route, got agent=%s", route.Agent)
			}
		})
	}
}

func TestClassifyBookingFlowKeepsShortTurns(t *testing.T) {
	t.Parallel()

	sess := freshSession()
	sess.SetBag(statex.KeyBookingState, `{"stage":"confirming","service":"haircut","date":"2026-08-28","time":"15:00","customer_name":"Mina"}`)

	for _, text := range []string{"yes", "3pm", "Mina"} {
		route := Classify(sess, textTurn(text))
		if route.Ambiguous || route.Agent != contractx.AgentTypeBooking {
			t.Fatalf("Classify(%q) mid-flow = %+v, want booking", text, route)
		}
	}
}

func TestClassifyCompletedFlowReleasesShortTurns(t *testing.T) {
	t.Parallel()

	sess := freshSession()
	sess.SetBag(statex.KeyBookingState, `{"stage":"collecting"}`)

	route := Classify(sess, textTurn("banana"))
	if !route.Ambiguous {
		t.Fatalf("short opaque turn after a finished flow should clarify, got %+v", route)
	}
}

func TestClassifyGreetingAfterFirstTurnStaysSupport(t *testing.T) {
	t.Parallel()

	sess := freshSession()
	sess.AppendTurn(textTurn("what are your opening hours"))
	sess.AppendTurn(statex.Turn{Role: statex.RoleAgent, Parts: []statex.Part{statex.TextPart("We open at nine.")}})

	route := Classify(sess, textTurn("thanks!"))
	if route.Ambiguous || route.Agent != contractx.AgentTypeSupport {
		t.Fatalf("later greeting = %+v, want non-ambiguous support", route)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	sess := freshSession()
	turn := textTurn("book me in for nails")
	first := Classify(sess, turn)
	for i := 0; i < 10; i++ {
		if got := Classify(sess, turn); got != first {
			t.Fatalf("Classify() varied across identical inputs: %v vs %v", got, first)
		}
	}
}

func TestClassifyImageOutranksBookingText(t *testing.T) {
	t.Parallel()

	route := Classify(freshSession(), imageTurn("can I book this look"))
	if route.Agent != contractx.AgentTypePortfolio {
		t.Fatalf("image turn routed to %s, want portfolio", route.Agent)
	}
}
