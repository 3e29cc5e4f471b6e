package repository

import (
	"context"
	"fmt"

	"dailyprompt/internal/database"
)

// CatalogTx exposes the catalog and group writers bound to one transaction
type CatalogTx struct {
	*PromptRepository
	*GroupRepository
}

// CatalogRepository runs catalog writes atomically
type CatalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// WithinTx runs fn inside a transaction, committing only if fn succeeds
func (r *CatalogRepository) WithinTx(ctx context.Context, fn func(tx *CatalogTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&CatalogTx{
		PromptRepository: NewPromptRepository(tx),
		GroupRepository:  NewGroupRepository(tx),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
