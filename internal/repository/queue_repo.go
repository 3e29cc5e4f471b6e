package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

// QueueRepository handles database operations for the manual prompt queue
type QueueRepository struct {
	db database.DBTX
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db database.DBTX) *QueueRepository {
	return &QueueRepository{db: db}
}

// PeekQueue retrieves the lowest-position queue item of a group
func (r *QueueRepository) PeekQueue(ctx context.Context, groupID string) (*models.QueueItem, error) {
	query := `
		SELECT id, group_id, prompt_id, position, added_by, created_at
		FROM group_prompt_queue
		WHERE group_id = ?
		ORDER BY position, created_at, id
		LIMIT 1
	`
	item := &models.QueueItem{}
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(
		&item.ID,
		&item.GroupID,
		&item.PromptID,
		&item.Position,
		&item.AddedBy,
		&item.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to peek queue: %w", err)
	}
	return item, nil
}

// DeleteQueueItem removes a queue item by ID. Deleting an item that is already gone is not an error.
func (r *QueueRepository) DeleteQueueItem(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM group_prompt_queue WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	return nil
}

// Enqueue appends a prompt to a group's queue. Development and test data only.
func (r *QueueRepository) Enqueue(ctx context.Context, item *models.QueueItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO group_prompt_queue (id, group_id, prompt_id, position, added_by, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, item.ID, item.GroupID, item.PromptID, item.Position, item.AddedBy, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue prompt: %w", err)
	}
	return nil
}
