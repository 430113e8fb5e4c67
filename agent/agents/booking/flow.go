package booking

import (
	"encoding/json"

	statex "github.com/naruemon-s/glowdesk/agent/state"
)

type flowStage string

const (
	// stageCollecting gathers slots until all four are known.
	stageCollecting flowStage = "collecting"
	// stageConfirming holds a conflict-free proposal awaiting a yes.
	stageConfirming flowStage = "confirming"
)

// flowState is the booking progress persisted across turns in the session
// state bag. It travels as a JSON string so external session stores round
// trip it unchanged.
type flowState struct {
	Stage        flowStage `json:"stage"`
	Service      string    `json:"service,omitempty"`
	Date         string    `json:"date,omitempty"`
	TimeOfDay    string    `json:"time,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
}

func loadFlow(sess *statex.Session) flowState {
	fs := flowState{Stage: stageCollecting}
	raw := sess.BagString(statex.KeyBookingState)
	if raw == "" {
		return fs
	}
	if err := json.Unmarshal([]byte(raw), &fs); err != nil {
		return flowState{Stage: stageCollecting}
	}
	if fs.Stage == "" {
		fs.Stage = stageCollecting
	}
	return fs
}

func (f flowState) encode() string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(b)
}

// FlowInProgress reports whether the session carries a booking flow with
// at least one slot filled or a proposal awaiting confirmation. Completed
// and cancelled flows reset to an empty collecting state and report false.
func FlowInProgress(sess *statex.Session) bool {
	if sess == nil {
		return false
	}
	fs := loadFlow(sess)
	return fs.Stage == stageConfirming ||
		fs.Service != "" || fs.Date != "" ||
		fs.TimeOfDay != "" || fs.CustomerName != ""
}

// nextMissing names the first unfilled slot in asking order, or "".
func (f flowState) nextMissing() string {
	switch {
	case f.Service == "":
		return "service"
	case f.Date == "":
		return "date"
	case f.TimeOfDay == "":
		return "time"
	case f.CustomerName == "":
		return "customer_name"
	}
	return ""
}
