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

// AssignmentRepository handles database operations for daily prompt assignments
type AssignmentRepository struct {
	db database.DBTX
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db database.DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	var userID sql.NullString
	if err := row.Scan(&a.ID, &a.GroupID, &a.Date, &userID, &a.PromptID, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.UserID = userID.String
	return &a, nil
}

// ListGeneralAssignments retrieves every general assignment of a group on a date, oldest first
func (r *AssignmentRepository) ListGeneralAssignments(ctx context.Context, groupID, date string) ([]models.Assignment, error) {
	query := `
		SELECT id, group_id, date, user_id, prompt_id, created_at
		FROM daily_prompts
		WHERE group_id = ? AND date = ? AND user_id IS NULL
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, groupID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// GetUserAssignment retrieves the per-user override of a group on a date
func (r *AssignmentRepository) GetUserAssignment(ctx context.Context, groupID, date, userID string) (*models.Assignment, error) {
	query := `
		SELECT id, group_id, date, user_id, prompt_id, created_at
		FROM daily_prompts
		WHERE group_id = ? AND date = ? AND user_id = ?
	`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, groupID, date, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user assignment: %w", err)
	}
	return a, nil
}

// CountAssignments counts every assignment a group has ever had
func (r *AssignmentRepository) CountAssignments(ctx context.Context, groupID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM daily_prompts WHERE group_id = ?", groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// ListAssignedPromptIDs retrieves the distinct prompts ever assigned to a group as general assignments
func (r *AssignmentRepository) ListAssignedPromptIDs(ctx context.Context, groupID string) ([]string, error) {
	query := "SELECT DISTINCT prompt_id FROM daily_prompts WHERE group_id = ? AND user_id IS NULL ORDER BY prompt_id"
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned prompts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assigned prompt: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAssignment inserts an assignment, returning database.ErrConflict when the slot is taken
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var userID interface{}
	if a.UserID != "" {
		userID = a.UserID
	}

	query := "INSERT INTO daily_prompts (id, group_id, date, user_id, prompt_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, a.ID, a.GroupID, a.Date, userID, a.PromptID, a.CreatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("assignment for group %s on %s: %w", a.GroupID, a.Date, database.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes an assignment by ID
func (r *AssignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM daily_prompts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}
