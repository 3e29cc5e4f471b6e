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

const usageColumns = "id, group_id, prompt_id, variable_type, date_used, name_used, created_at"

// UsageRepository handles database operations for the name-usage ledger
type UsageRepository struct {
	db database.DBTX
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db database.DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

func scanUsage(row rowScanner) (*models.UsageRecord, error) {
	var u models.UsageRecord
	if err := row.Scan(&u.ID, &u.GroupID, &u.PromptID, &u.VariableType, &u.DateUsed, &u.NameUsed, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsage retrieves the name recorded for a prompt variable on a date
func (r *UsageRepository) GetUsage(ctx context.Context, groupID, promptID, variableType, date string) (*models.UsageRecord, error) {
	query := "SELECT " + usageColumns + " FROM prompt_name_usage WHERE group_id = ? AND prompt_id = ? AND variable_type = ? AND date_used = ?"
	u, err := scanUsage(r.db.QueryRowContext(ctx, query, groupID, promptID, variableType, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return u, nil
}

// ListUsage retrieves the records of a variable between two dates inclusive, across all prompts
func (r *UsageRepository) ListUsage(ctx context.Context, groupID, variableType, from, to string) ([]models.UsageRecord, error) {
	query := "SELECT " + usageColumns + ` FROM prompt_name_usage
		WHERE group_id = ? AND variable_type = ? AND date_used >= ? AND date_used <= ?
		ORDER BY date_used, created_at`
	rows, err := r.db.QueryContext(ctx, query, groupID, variableType, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		u, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		records = append(records, *u)
	}
	return records, rows.Err()
}

// LastUsageBefore retrieves the most recent record of a variable dated before the given date
func (r *UsageRepository) LastUsageBefore(ctx context.Context, groupID, variableType, before string) (*models.UsageRecord, error) {
	query := "SELECT " + usageColumns + ` FROM prompt_name_usage
		WHERE group_id = ? AND variable_type = ? AND date_used < ?
		ORDER BY date_used DESC, created_at DESC
		LIMIT 1`
	u, err := scanUsage(r.db.QueryRowContext(ctx, query, groupID, variableType, before))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last usage: %w", err)
	}
	return u, nil
}

// RecordUsage appends a ledger record, returning database.ErrConflict when the key exists
func (r *UsageRepository) RecordUsage(ctx context.Context, u *models.UsageRecord) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO prompt_name_usage (" + usageColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, u.ID, u.GroupID, u.PromptID, u.VariableType, u.DateUsed, u.NameUsed, u.CreatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("usage of %s for prompt %s on %s: %w", u.VariableType, u.PromptID, u.DateUsed, database.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}
