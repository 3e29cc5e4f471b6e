package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

const promptColumns = "id, question, description, category, dynamic_variables, birthday_type, ice_breaker, is_custom, created_at"

// PromptRepository handles database operations for the prompt catalog
type PromptRepository struct {
	db database.DBTX
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db database.DBTX) *PromptRepository {
	return &PromptRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var (
		p            models.Prompt
		vars         string
		birthdayType sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Question, &p.Description, &p.Category, &vars,
		&birthdayType, &p.IceBreaker, &p.IsCustom, &p.CreatedAt); err != nil {
		return nil, err
	}
	if vars != "" {
		if err := json.Unmarshal([]byte(vars), &p.DynamicVariables); err != nil {
			return nil, fmt.Errorf("failed to decode dynamic variables for prompt %s: %w", p.ID, err)
		}
	}
	p.BirthdayType = birthdayType.String
	return &p, nil
}

// GetPrompt retrieves a prompt by ID
func (r *PromptRepository) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	query := "SELECT " + promptColumns + " FROM prompts WHERE id = ?"
	p, err := scanPrompt(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return p, nil
}

// ListPrompts retrieves the whole catalog ordered by ID
func (r *PromptRepository) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	return r.listPrompts(ctx, "SELECT "+promptColumns+" FROM prompts ORDER BY id")
}

// ListPromptsByCategory retrieves the prompts of one category ordered by ID
func (r *PromptRepository) ListPromptsByCategory(ctx context.Context, category string) ([]models.Prompt, error) {
	return r.listPrompts(ctx, "SELECT "+promptColumns+" FROM prompts WHERE category = ? ORDER BY id", category)
}

func (r *PromptRepository) listPrompts(ctx context.Context, query string, args ...interface{}) ([]models.Prompt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompts: %w", err)
	}
	return prompts, nil
}

// UpsertPrompt inserts a prompt or replaces the catalog fields of an existing one
func (r *PromptRepository) UpsertPrompt(ctx context.Context, p *models.Prompt) error {
	vars := p.DynamicVariables
	if vars == nil {
		vars = []string{}
	}
	encoded, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to encode dynamic variables: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var birthdayType interface{}
	if p.BirthdayType != "" {
		birthdayType = p.BirthdayType
	}

	query := "INSERT INTO prompts (" + promptColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)" +
		r.db.GetDialect().UpsertClause(
			[]string{"id"},
			[]string{"question", "description", "category", "dynamic_variables", "birthday_type", "ice_breaker", "is_custom"},
		)
	_, err = r.db.ExecContext(ctx, query, p.ID, p.Question, p.Description, p.Category, string(encoded),
		birthdayType, p.IceBreaker, p.IsCustom, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert prompt: %w", err)
	}
	return nil
}
