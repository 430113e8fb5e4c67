package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *Store) LatestMerchant(ctx context.Context) (*Merchant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var merchant Merchant
	err := s.db.NewSelect().Model(&merchant).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select latest merchant: %w", err)
	}
	return &merchant, nil
}

func (s *Store) MerchantIDByEmail(ctx context.Context, contactEmail string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var merchant Merchant
	err := s.db.NewSelect().Model(&merchant).
		Column("id").
		Where("contact_email = ?", strings.TrimSpace(contactEmail)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select merchant by email: %w", err)
	}
	return merchant.ID, nil
}

// UpsertMerchantSettings inserts or updates the merchant row keyed by
// contact email.
func (s *Store) UpsertMerchantSettings(ctx context.Context, m Merchant) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}

	_, err := s.db.NewInsert().Model(&m).
		On("CONFLICT (contact_email) DO UPDATE").
		Set("business_name = EXCLUDED.business_name").
		Set("address = EXCLUDED.address").
		Set("working_hours = EXCLUDED.working_hours").
		Set("phone_number = EXCLUDED.phone_number").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert merchant settings: %w", err)
	}
	return nil
}

func (s *Store) UpdateWorkingHours(ctx context.Context, contactEmail, workingHours string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewUpdate().Model((*Merchant)(nil)).
		Set("working_hours = ?", workingHours).
		Where("contact_email = ?", strings.TrimSpace(contactEmail)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update working hours: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
