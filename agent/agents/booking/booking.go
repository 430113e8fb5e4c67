// Package booking implements the appointment agent as an explicit slot
// filling state machine. The LLM only extracts slots from free text; every
// transition, the conflict check, and the save are plain code.
package booking

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	statex "github.com/naruemon-s/glowdesk/agent/state"
	toolx "github.com/naruemon-s/glowdesk/agent/tool"
)

type Agent struct {
	extractor SlotExtractor
	tools     *toolx.BookingTools
}

func New(extractor SlotExtractor, tools *toolx.BookingTools) (*Agent, error) {
	if extractor == nil {
		return nil, fmt.Errorf("%w: slot extractor is required", contractx.ErrValidation)
	}
	if tools == nil {
		return nil, fmt.Errorf("%w: booking tools are required", contractx.ErrValidation)
	}
	return &Agent{extractor: extractor, tools: tools}, nil
}

func (a *Agent) Respond(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if req.Session == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}

	fs := loadFlow(req.Session)
	if fs.CustomerName == "" {
		fs.CustomerName = req.Session.BagString(statex.KeyUserName)
	}

	slots, err := a.extractor.Extract(ctx, req.Turn.Text(), map[string]string{
		"service":       fs.Service,
		"date":          fs.Date,
		"time":          fs.TimeOfDay,
		"customer_name": fs.CustomerName,
	})
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	if slots.Cancelled {
		return a.reply(flowState{Stage: stageCollecting},
			"No problem, I won't book anything. Is there something else I can help with?"), nil
	}

	slotsChanged := false
	if v := strings.TrimSpace(slots.Service); v != "" && v != fs.Service {
		fs.Service = v
		slotsChanged = true
	}
	if v := strings.TrimSpace(slots.CustomerName); v != "" && v != fs.CustomerName {
		fs.CustomerName = v
		slotsChanged = true
	}
	if v := strings.TrimSpace(slots.DatePhrase); v != "" {
		date, ok := ResolveDate(v, req.Now)
		if !ok {
			return a.reply(fs, fmt.Sprintf("I couldn't work out the date from %q. Could you give me a weekday or a date like 2026-09-01?", v)), nil
		}
		if date != fs.Date {
			fs.Date = date
			slotsChanged = true
		}
	}
	if v := strings.TrimSpace(slots.TimePhrase); v != "" {
		t, ok := ResolveTime(v)
		if !ok {
			return a.reply(fs, fmt.Sprintf("I couldn't work out the time from %q. Could you give me a time like 3pm or 15:00?", v)), nil
		}
		if t != fs.TimeOfDay {
			fs.TimeOfDay = t
			slotsChanged = true
		}
	}

	// A confirmed proposal only survives if nothing about it changed.
	if fs.Stage == stageConfirming && slotsChanged {
		fs.Stage = stageCollecting
	}

	if fs.Stage == stageConfirming {
		if slots.Confirmed {
			return a.save(ctx, fs), nil
		}
		return a.reply(fs, a.summary(fs)+" Shall I go ahead and book it?"), nil
	}

	if missing := fs.nextMissing(); missing != "" {
		return a.reply(fs, askFor(missing)), nil
	}

	return a.checkAndPropose(ctx, fs), nil
}

// checkAndPropose runs the conflict check on a complete slot set and either
// proposes the booking for confirmation or asks for a different time.
func (a *Agent) checkAndPropose(ctx context.Context, fs flowState) contractx.AgentResponse {
	res := a.tools.CheckConflicts(ctx, fs.Date, fs.TimeOfDay)
	if res.Failed() {
		return a.reply(fs, "I'm sorry, I couldn't check our calendar just now. Could you try again in a moment?")
	}

	conflict, ok := res.Result.(toolx.ConflictOutput)
	if !ok {
		return a.reply(fs, "I'm sorry, I couldn't check our calendar just now. Could you try again in a moment?")
	}
	if conflict.HasConflicts {
		fs.TimeOfDay = ""
		fs.Stage = stageCollecting
		return a.reply(fs, fmt.Sprintf("I'm sorry, we're already booked at that time on %s. Is there another time that day that works for you?", fs.Date))
	}

	fs.Stage = stageConfirming
	return a.reply(fs, a.summary(fs)+" Shall I go ahead and book it?")
}

// save persists the confirmed booking. Tool failures become an in-band
// apology; the proposal is kept so the customer can retry with a yes.
func (a *Agent) save(ctx context.Context, fs flowState) contractx.AgentResponse {
	res := a.tools.SaveAppointment(ctx, fs.Date, fs.TimeOfDay, fs.Service, fs.CustomerName)
	if res.Failed() {
		return a.reply(fs, "I'm sorry, something went wrong while saving your appointment. Could you say yes again to retry?")
	}

	saved, ok := res.Result.(toolx.SaveOutput)
	if !ok {
		return a.reply(fs, "I'm sorry, something went wrong while saving your appointment. Could you say yes again to retry?")
	}

	done := flowState{Stage: stageCollecting}
	out := a.reply(done, saved.Confirmation+fmt.Sprintf(" Your reference is %s. See you then!", saved.AppointmentID))
	if fs.CustomerName != "" {
		out.BagUpdates[statex.KeyUserName] = fs.CustomerName
	}
	return out
}

func (a *Agent) reply(fs flowState, message string) contractx.AgentResponse {
	return contractx.AgentResponse{
		Message: message,
		BagUpdates: map[string]any{
			statex.KeyBookingState: fs.encode(),
		},
	}
}

func (a *Agent) summary(fs flowState) string {
	return fmt.Sprintf("Here's what I have: %s on %s at %s for %s.",
		fs.Service, fs.Date, fs.TimeOfDay, fs.CustomerName)
}

func askFor(slot string) string {
	switch slot {
	case "service":
		return "Of course! Which service would you like to book?"
	case "date":
		return "Which day works for you?"
	case "time":
		return "What time would you like to come in?"
	case "customer_name":
		return "And what name should I put the appointment under?"
	}
	return "Could you tell me a bit more about the appointment you'd like?"
}
