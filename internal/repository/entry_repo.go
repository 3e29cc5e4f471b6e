package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

// EntryRepository handles database operations for member answers
type EntryRepository struct {
	db database.DBTX
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db database.DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

// HasEntries checks whether anyone answered a prompt for a group on a date
func (r *EntryRepository) HasEntries(ctx context.Context, groupID, date, promptID string) (bool, error) {
	query := "SELECT COUNT(*) FROM entries WHERE group_id = ? AND date = ? AND prompt_id = ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, groupID, date, promptID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}
	return count > 0, nil
}

// CreateEntry inserts an answer. Development and test data only.
func (r *EntryRepository) CreateEntry(ctx context.Context, e *models.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO entries (id, group_id, user_id, prompt_id, date, text_content, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, e.ID, e.GroupID, e.UserID, e.PromptID, e.Date, e.TextContent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}
