package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
	toolx "github.com/naruemon-s/glowdesk/agent/tool"
	"github.com/naruemon-s/glowdesk/db"
)

type fakeExtractor struct {
	queue []Slots
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, message string, known map[string]string) (Slots, error) {
	if f.err != nil {
		return Slots{}, f.err
	}
	if len(f.queue) == 0 {
		return Slots{}, nil
	}
	out := f.queue[0]
	f.queue = f.queue[1:]
	return out, nil
}

type fakeBookingStore struct {
	bookings  []db.Booking
	countErr  error
	insertErr error
}

func (f *fakeBookingStore) CountConfirmedBookingsAt(ctx context.Context, appointmentTime string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, b := range f.bookings {
		if b.Status == db.BookingStatusConfirmed && b.AppointmentTime == appointmentTime {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookingStore) InsertBooking(ctx context.Context, booking db.Booking) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.bookings = append(f.bookings, booking)
	return nil
}

func newTestAgent(t *testing.T, extractor SlotExtractor, store *fakeBookingStore) *Agent {
	t.Helper()
	tools := toolx.NewBookingTools(store)
	tools.NewID = func() string { return "booking-fixed-id" }
	agent, err := New(extractor, tools)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return agent
}

func bookingSession() *statex.Session {
	return statex.NewSession(statex.Key{App: "glowdesk", UserID: "u", SessionID: "s"}, nil, refNow)
}

// runTurn sends one message through the agent and folds the bag updates back
// into the session the way the dispatcher does.
func runTurn(t *testing.T, agent *Agent, sess *statex.Session, text string) contractx.AgentResponse {
	t.Helper()
	resp, err := agent.Respond(context.Background(), contractx.AgentRequest{
		Session: sess,
		Turn:    statex.Turn{Role: statex.RoleUser, Parts: []statex.Part{statex.TextPart(text)}},
		Now:     refNow,
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	for k, v := range resp.BagUpdates {
		sess.SetBag(k, v)
	}
	return resp
}

func TestBookingFullFlow(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{}
	extractor := &fakeExtractor{queue: []Slots{
		{Service: "haircut", DatePhrase: "tomorrow", TimePhrase: "3pm", CustomerName: "Mina"},
		{Confirmed: true},
	}}
	agent := newTestAgent(t, extractor, store)
	sess := bookingSession()

	resp := runTurn(t, agent, sess, "book me a haircut tomorrow at 3pm, I'm Mina")
	if !strings.Contains(resp.Message, "2026-08-27") || !strings.Contains(resp.Message, "15:00") {
		t.Fatalf("proposal should carry normalized date/time, got %q", resp.Message)
	}
	if !strings.Contains(resp.Message, "Shall I go ahead") {
		t.Fatalf("expected confirmation question, got %q", resp.Message)
	}
	if len(store.bookings) != 0 {
		t.Fatalf("nothing should be saved before confirmation")
	}

	resp = runTurn(t, agent, sess, "yes please")
	if !strings.Contains(resp.Message, "booking-fixed-id") {
		t.Fatalf("confirmation should carry the reference, got %q", resp.Message)
	}
	if len(store.bookings) != 1 {
		t.Fatalf("booking not persisted")
	}

	saved := store.bookings[0]
	if saved.AppointmentTime != "2026-08-27T15:00" {
		t.Fatalf("appointment_time = %q", saved.AppointmentTime)
	}
	if saved.Status != db.BookingStatusConfirmed {
		t.Fatalf("status = %q", saved.Status)
	}
	if saved.Service != "haircut" || saved.CustomerName != "Mina" {
		t.Fatalf("unexpected booking: %+v", saved)
	}
}

func TestBookingConflictAfterPersist(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{}

	// First customer books the slot.
	first := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "haircut", DatePhrase: "tomorrow", TimePhrase: "3pm", CustomerName: "Mina"},
		{Confirmed: true},
	}}, store)
	sess := bookingSession()
	runTurn(t, first, sess, "haircut tomorrow 3pm for Mina")
	runTurn(t, first, sess, "yes")
	if len(store.bookings) != 1 {
		t.Fatalf("setup booking not persisted")
	}

	// Second customer asks for the identical slot and must hit the conflict.
	second := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "manicure", DatePhrase: "tomorrow", TimePhrase: "3pm", CustomerName: "Jo"},
	}}, store)
	resp := runTurn(t, second, bookingSession(), "manicure tomorrow 3pm, Jo here")
	if !strings.Contains(resp.Message, "already booked") {
		t.Fatalf("expected conflict reply, got %q", resp.Message)
	}
	if strings.Contains(resp.Message, "Shall I go ahead") {
		t.Fatalf("conflicting slot must not be proposed")
	}
}

func TestBookingAsksForMissingSlots(t *testing.T) {
	t.Parallel()

	agent := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "haircut"},
		{DatePhrase: "friday"},
	}}, &fakeBookingStore{})
	sess := bookingSession()

	resp := runTurn(t, agent, sess, "I want a haircut")
	if !strings.Contains(resp.Message, "Which day") {
		t.Fatalf("expected date question, got %q", resp.Message)
	}

	resp = runTurn(t, agent, sess, "friday")
	if !strings.Contains(resp.Message, "What time") {
		t.Fatalf("expected time question, got %q", resp.Message)
	}
}

func TestBookingSaveFailureApologizesInBand(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{insertErr: errors.New("db down")}
	agent := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "haircut", DatePhrase: "tomorrow", TimePhrase: "3pm", CustomerName: "Mina"},
		{Confirmed: true},
	}}, store)
	sess := bookingSession()

	runTurn(t, agent, sess, "haircut tomorrow 3pm, Mina")
	resp := runTurn(t, agent, sess, "yes")
	if !strings.Contains(resp.Message, "I'm sorry") {
		t.Fatalf("tool failure must surface as apology, got %q", resp.Message)
	}
}

func TestBookingConflictCheckFailureApologizesInBand(t *testing.T) {
	t.Parallel()

	store := &fakeBookingStore{countErr: errors.New("db down")}
	agent := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "haircut", DatePhrase: "tomorrow", TimePhrase: "3pm", CustomerName: "Mina"},
	}}, store)

	resp := runTurn(t, agent, bookingSession(), "haircut tomorrow 3pm, Mina")
	if !strings.Contains(resp.Message, "I'm sorry") {
		t.Fatalf("tool failure must surface as apology, got %q", resp.Message)
	}
}

func TestBookingCancelResetsFlow(t *testing.T) {
	t.Parallel()

	agent := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "haircut", DatePhrase: "tomorrow", TimePhrase: "3pm", CustomerName: "Mina"},
		{Cancelled: true},
		{Service: "manicure"},
	}}, &fakeBookingStore{})
	sess := bookingSession()

	runTurn(t, agent, sess, "haircut tomorrow 3pm, Mina")
	resp := runTurn(t, agent, sess, "actually never mind")
	if !strings.Contains(resp.Message, "won't book") {
		t.Fatalf("expected cancel acknowledgement, got %q", resp.Message)
	}

	// The reset flow starts over: only the new service is known.
	resp = runTurn(t, agent, sess, "ok, a manicure instead")
	if !strings.Contains(resp.Message, "Which day") {
		t.Fatalf("flow should restart after cancel, got %q", resp.Message)
	}
}

func TestBookingUnresolvableDateAsksAgain(t *testing.T) {
	t.Parallel()

	agent := newTestAgent(t, &fakeExtractor{queue: []Slots{
		{Service: "haircut", DatePhrase: "whenever works"},
	}}, &fakeBookingStore{})

	resp := runTurn(t, agent, bookingSession(), "haircut whenever works")
	if !strings.Contains(resp.Message, "couldn't work out the date") {
		t.Fatalf("expected date clarification, got %q", resp.Message)
	}
}
