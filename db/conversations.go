package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// normalizeID returns the input when it already is a UUID, otherwise a
// name-based UUID derived from it. External callers send arbitrary
// user/session identifiers; the tables key on UUIDs, and the mapping must
// be stable so an external id always lands on the same row.
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if parsed, err := uuid.Parse(raw); err == nil {
		return parsed.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw)).String()
}

// DefaultMerchantID returns the most recently created merchant, creating a
// placeholder when the table is empty.
func (s *Store) DefaultMerchantID(ctx context.Context) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var merchant Merchant
	err := s.db.NewSelect().Model(&merchant).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err == nil {
		return merchant.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("select default merchant: %w", err)
	}

	merchant = Merchant{
		ID:           uuid.NewString(),
		BusinessName: "Default Business",
		ContactEmail: "admin@example.com",
	}
	if _, err := s.db.NewInsert().Model(&merchant).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert default merchant: %w", err)
	}
	return merchant.ID, nil
}

// EnsureUser guarantees a users row exists for the given external id and
// returns the canonical UUID.
func (s *Store) EnsureUser(ctx context.Context, userID string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := normalizeID(userID)

	exists, err := s.db.NewSelect().Model((*User)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return "", fmt.Errorf("check user: %w", err)
	}
	if exists {
		return id, nil
	}

	user := User{ID: id, FullName: "Anonymous User", Platform: "WebApp"}
	if _, err := s.db.NewInsert().Model(&user).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// EnsureConversation guarantees a conversations row for the session and
// returns its canonical UUID.
func (s *Store) EnsureConversation(ctx context.Context, sessionID, userID, merchantID string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := normalizeID(sessionID)

	exists, err := s.db.NewSelect().Model((*Conversation)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return "", fmt.Errorf("check conversation: %w", err)
	}
	if exists {
		return id, nil
	}

	conv := Conversation{ID: id, UserID: userID, MerchantID: merchantID, SessionStatus: "active"}
	if _, err := s.db.NewInsert().Model(&conv).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	return id, nil
}

// MerchantIDForConversation traces session -> conversation -> merchant.
func (s *Store) MerchantIDForConversation(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var conv Conversation
	err := s.db.NewSelect().Model(&conv).
		Column("merchant_id").
		Where("id = ?", normalizeID(sessionID)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select conversation merchant: %w", err)
	}
	if strings.TrimSpace(conv.MerchantID) == "" {
		return "", ErrNotFound
	}
	return conv.MerchantID, nil
}

func (s *Store) InsertMessage(ctx context.Context, conversationID, sender, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
	}
	if _, err := s.db.NewInsert().Model(&msg).Exec(ctx); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var messages []Message
	err := s.db.NewSelect().Model(&messages).
		Where("conversation_id = ?", normalizeID(sessionID)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// SaveExchange persists one user/agent exchange, creating the merchant,
// user, and conversation rows as needed. Implements the dispatcher's
// transcript store.
func (s *Store) SaveExchange(ctx context.Context, sessionID, userID, userText, agentText string) error {
	merchantID, err := s.DefaultMerchantID(ctx)
	if err != nil {
		return err
	}
	canonicalUser, err := s.EnsureUser(ctx, userID)
	if err != nil {
		return err
	}
	conversationID, err := s.EnsureConversation(ctx, sessionID, canonicalUser, merchantID)
	if err != nil {
		return err
	}

	if err := s.InsertMessage(ctx, conversationID, "user", userText); err != nil {
		return err
	}
	return s.InsertMessage(ctx, conversationID, "agent", agentText)
}

// CustomerSummary is one row of the customers listing: user identity plus
// the latest message of their conversation.
type CustomerSummary struct {
	ID                  string `json:"id"`
	SessionID           string `json:"session_id,omitempty"`
	Name                string `json:"name"`
	Platform            string `json:"platform"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	CreatedAt           string `json:"created_at,omitempty"`
	ConversationSummary string `json:"conversationSummary"`
	InteractionStage    string `json:"interactionStage"`
	AccountStatus       string `json:"accountStatus"`
}

func (s *Store) ListCustomers(ctx context.Context) ([]CustomerSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	type row struct {
		ID            string `bun:"id"`
		FullName      string `bun:"full_name"`
		Platform      string `bun:"platform"`
		PhoneNumber   string `bun:"phone_number"`
		Email         string `bun:"email"`
		CreatedAt     string `bun:"created_at"`
		SessionID     string `bun:"session_id"`
		SessionStatus string `bun:"session_status"`
		LastMessage   string `bun:"last_message"`
	}

	var rows []row
	err := s.db.NewSelect().
		TableExpr("users AS u").
		ColumnExpr("u.id, u.full_name, u.platform, u.phone_number, u.email, u.created_at::text").
		ColumnExpr("COALESCE(c.id::text, '') AS session_id").
		ColumnExpr("COALESCE(c.session_status, '') AS session_status").
		ColumnExpr(`COALESCE((SELECT m.content FROM messages m WHERE m.conversation_id = c.id ORDER BY m.created_at DESC LIMIT 1), 'No messages yet') AS last_message`).
		Join("LEFT JOIN conversations AS c ON c.user_id = u.id").
		Where("u.platform IS NOT NULL").
		OrderExpr("u.created_at DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	customers := make([]CustomerSummary, 0, len(rows))
	for _, r := range rows {
		stage := "Completed"
		if r.SessionStatus == "active" {
			stage = "Ongoing"
		}
		account := "Pending"
		if strings.TrimSpace(r.Email) != "" {
			account = "Active"
		}
		name := r.FullName
		if strings.TrimSpace(name) == "" {
			name = "Anonymous User"
		}
		phone := r.PhoneNumber
		if strings.TrimSpace(phone) == "" {
			phone = "N/A"
		}
		customers = append(customers, CustomerSummary{
			ID:                  r.ID,
			SessionID:           r.SessionID,
			Name:                name,
			Platform:            r.Platform,
			Phone:               phone,
			Email:               r.Email,
			CreatedAt:           r.CreatedAt,
			ConversationSummary: r.LastMessage,
			InteractionStage:    stage,
			AccountStatus:       account,
		})
	}
	return customers, nil
}

// UpsertUserInfo records customer contact details, merging into an existing
// row matched by phone or email.
func (s *Store) UpsertUserInfo(ctx context.Context, name, platform, phone, email string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)

	var existing User
	query := s.db.NewSelect().Model(&existing).Limit(1)
	switch {
	case phone != "" && email != "":
		query = query.Where("phone_number = ?", phone).WhereOr("email = ?", email)
	case phone != "":
		query = query.Where("phone_number = ?", phone)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		query = nil
	}

	if query != nil {
		err := query.Scan(ctx)
		if err == nil {
			_, err = s.db.NewUpdate().Model((*User)(nil)).
				Set("full_name = ?", name).
				Set("platform = ?", platform).
				Set("phone_number = ?", phone).
				Set("email = ?", email).
				Where("id = ?", existing.ID).
				Exec(ctx)
			if err != nil {
				return "", fmt.Errorf("update user info: %w", err)
			}
			return existing.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("find user by contact: %w", err)
		}
	}

	user := User{
		ID:          uuid.NewString(),
		FullName:    name,
		Platform:    platform,
		PhoneNumber: phone,
		Email:       email,
	}
	if _, err := s.db.NewInsert().Model(&user).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert user info: %w", err)
	}
	return user.ID, nil
}
