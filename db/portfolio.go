package db

import (
	"context"
	"fmt"
	"strings"
)

func (s *Store) ListPortfolio(ctx context.Context, merchantEmail string) ([]Portfolio, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var items []Portfolio
	err := s.db.NewSelect().Model(&items).
		Join("JOIN merchants AS m ON m.id = portfolio.merchant_id").
		Where("m.contact_email = ?", strings.TrimSpace(merchantEmail)).
		Order("portfolio.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list portfolio: %w", err)
	}
	return items, nil
}

func (s *Store) InsertPortfolio(ctx context.Context, item Portfolio) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.NewInsert().Model(&item).Exec(ctx); err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

func (s *Store) InsertMerchantDocument(ctx context.Context, doc MerchantDocument) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.NewInsert().Model(&doc).Exec(ctx); err != nil {
		return fmt.Errorf("insert merchant document: %w", err)
	}
	return nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.NewUpdate().Model((*MerchantDocument)(nil)).
		Set("processing_status = ?", status).
		Where("id = ?", documentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}
