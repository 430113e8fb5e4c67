package state

import (
	"errors"
	"strings"
	"time"
)

// Well-known state bag keys written by the HTTP layer and read by agents.
const (
	KeyUserName           = "user_name"
	KeyUserPhone          = "user_phone"
	KeyUserEmail          = "user_email"
	KeyIsFirstInteraction = "is_first_interaction"
	KeyBookingState       = "booking_state"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// InlineData carries binary message content (typically an uploaded image).
// Data marshals as base64 on the wire.
type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Part is one unit of message content: text or inline binary, never both.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(mimeType string, data []byte) Part {
	return Part{InlineData: &InlineData{MIMEType: mimeType, Data: data}}
}

// IsImage reports whether the part carries inline data with an image MIME type.
func (p Part) IsImage() bool {
	return p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "image/")
}

// Turn is one exchange unit within a session's ordered history.
type Turn struct {
	Role  Role      `json:"role"`
	Parts []Part    `json:"parts"`
	At    time.Time `json:"at"`
}

// Text joins the turn's text parts with single spaces.
func (t Turn) Text() string {
	var texts []string
	for _, p := range t.Parts {
		if s := strings.TrimSpace(p.Text); s != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, " ")
}

// HasImage reports whether any part of the turn is an image.
func (t Turn) HasImage() bool {
	for _, p := range t.Parts {
		if p.IsImage() {
			return true
		}
	}
	return false
}

// Key identifies a session. All three components are required.
type Key struct {
	App       string `json:"app"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

var ErrInvalidKey = errors.New("session key is incomplete")

func (k Key) Validate() error {
	if strings.TrimSpace(k.App) == "" ||
		strings.TrimSpace(k.UserID) == "" ||
		strings.TrimSpace(k.SessionID) == "" {
		return ErrInvalidKey
	}
	return nil
}

// Session holds the ordered turn history and the mutable state bag for one
// (app, user, session) triple. Turns are append-only; the bag is free-form.
type Session struct {
	App       string `json:"app"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	Turns []Turn         `json:"turns,omitempty"`
	Bag   map[string]any `json:"state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(key Key, initial map[string]any, now time.Time) *Session {
	bag := make(map[string]any, len(initial)+4)
	for k, v := range initial {
		bag[k] = v
	}
	if _, ok := bag[KeyIsFirstInteraction]; !ok {
		bag[KeyIsFirstInteraction] = true
	}
	return &Session{
		App:       key.App,
		UserID:    key.UserID,
		SessionID: key.SessionID,
		Bag:       bag,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Key() Key {
	return Key{App: s.App, UserID: s.UserID, SessionID: s.SessionID}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn appends to the ordered history. History is never rewritten.
func (s *Session) AppendTurn(turn Turn) {
	s.Turns = append(s.Turns, turn)
}

// LastUserTurn returns the most recent user turn, if any.
func (s *Session) LastUserTurn() (Turn, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleUser {
			return s.Turns[i], true
		}
	}
	return Turn{}, false
}

// UserTurnCount counts user turns in the history.
func (s *Session) UserTurnCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

func (s *Session) EnsureBag() {
	if s.Bag == nil {
		s.Bag = make(map[string]any, 4)
	}
}

func (s *Session) SetBag(key string, value any) {
	s.EnsureBag()
	s.Bag[key] = value
}

// BagString returns a bag value as a trimmed string, or "" when absent or
// not a string.
func (s *Session) BagString(key string) string {
	if s.Bag == nil {
		return ""
	}
	v, ok := s.Bag[key]
	if !ok {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(str)
}

// BagBool returns a bag value as a bool, tolerating the string forms that
// survive a JSON round trip through external session stores.
func (s *Session) BagBool(key string) bool {
	if s.Bag == nil {
		return false
	}
	switch v := s.Bag[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

// Clone deep-copies the session so store callers cannot alias internal state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		App:       s.App,
		UserID:    s.UserID,
		SessionID: s.SessionID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Turns != nil {
		out.Turns = make([]Turn, len(s.Turns))
		for i, t := range s.Turns {
			ct := Turn{Role: t.Role, At: t.At}
			if t.Parts != nil {
				ct.Parts = make([]Part, len(t.Parts))
				for j, p := range t.Parts {
					cp := Part{Text: p.Text}
					if p.InlineData != nil {
						data := make([]byte, len(p.InlineData.Data))
						copy(data, p.InlineData.Data)
						cp.InlineData = &InlineData{MIMEType: p.InlineData.MIMEType, Data: data}
					}
					ct.Parts[j] = cp
				}
			}
			out.Turns[i] = ct
		}
	}
	if s.Bag != nil {
		out.Bag = make(map[string]any, len(s.Bag))
		for k, v := range s.Bag {
			out.Bag[k] = v
		}
	}
	return out
}
