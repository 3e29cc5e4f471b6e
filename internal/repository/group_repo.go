package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

// GroupRepository handles database operations for groups, members, memorials and preferences
type GroupRepository struct {
	db database.DBTX
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db database.DBTX) *GroupRepository {
	return &GroupRepository{db: db}
}

// GetGroup retrieves a group by ID
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	query := "SELECT id, name, type, created_at FROM user_groups WHERE id = ?"
	g := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Type, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// ListGroupIDs retrieves the IDs of all groups
func (r *GroupRepository) ListGroupIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM user_groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListMembers retrieves the members of a group ordered by user ID
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	query := `
		SELECT gm.user_id, gm.group_id, u.name, u.birthday, gm.joined_at
		FROM group_members gm
		INNER JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY gm.user_id
	`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var birthday sql.NullString
		if err := rows.Scan(&m.UserID, &m.GroupID, &m.Name, &birthday, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Birthday = birthday.String
		members = append(members, m)
	}
	return members, rows.Err()
}

// ListMemorials retrieves the memorials of a group in creation order
func (r *GroupRepository) ListMemorials(ctx context.Context, groupID string) ([]models.Memorial, error) {
	query := "SELECT id, group_id, name, created_at FROM memorials WHERE group_id = ? ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memorials: %w", err)
	}
	defer rows.Close()

	var memorials []models.Memorial
	for rows.Next() {
		var m models.Memorial
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memorial: %w", err)
		}
		memorials = append(memorials, m)
	}
	return memorials, rows.Err()
}

// ListCategoryPreferences retrieves the category weights configured for a group
func (r *GroupRepository) ListCategoryPreferences(ctx context.Context, groupID string) ([]models.CategoryPreference, error) {
	query := "SELECT group_id, category, weight FROM question_category_preferences WHERE group_id = ? ORDER BY category"
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category preferences: %w", err)
	}
	defer rows.Close()

	var prefs []models.CategoryPreference
	for rows.Next() {
		var p models.CategoryPreference
		if err := rows.Scan(&p.GroupID, &p.Category, &p.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan category preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// UpsertGroup inserts a group or updates its name and type
func (r *GroupRepository) UpsertGroup(ctx context.Context, g *models.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO user_groups (id, name, type, created_at) VALUES (?, ?, ?, ?)" +
		r.db.GetDialect().UpsertClause([]string{"id"}, []string{"name", "type"})
	if _, err := r.db.ExecContext(ctx, query, g.ID, g.Name, g.Type, g.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

// UpsertMember upserts the user and adds them to the group if not already a member
func (r *GroupRepository) UpsertMember(ctx context.Context, m *models.Member) error {
	var birthday interface{}
	if m.Birthday != "" {
		birthday = m.Birthday
	}
	dialect := r.db.GetDialect()

	query := "INSERT INTO users (id, name, birthday) VALUES (?, ?, ?)" +
		dialect.UpsertClause([]string{"id"}, []string{"name", "birthday"})
	if _, err := r.db.ExecContext(ctx, query, m.UserID, m.Name, birthday); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	query = "INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)" +
		dialect.UpsertClause([]string{"group_id", "user_id"}, nil)
	if _, err := r.db.ExecContext(ctx, query, m.GroupID, m.UserID, m.JoinedAt); err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// UpsertMemorial inserts a memorial or renames an existing one
func (r *GroupRepository) UpsertMemorial(ctx context.Context, m *models.Memorial) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO memorials (id, group_id, name, created_at) VALUES (?, ?, ?, ?)" +
		r.db.GetDialect().UpsertClause([]string{"id"}, []string{"name"})
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.GroupID, m.Name, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert memorial: %w", err)
	}
	return nil
}

// UpsertCategoryPreference sets the weight of a category for a group
func (r *GroupRepository) UpsertCategoryPreference(ctx context.Context, p *models.CategoryPreference) error {
	query := "INSERT INTO question_category_preferences (group_id, category, weight) VALUES (?, ?, ?)" +
		r.db.GetDialect().UpsertClause([]string{"group_id", "category"}, []string{"weight"})
	if _, err := r.db.ExecContext(ctx, query, p.GroupID, p.Category, p.Weight); err != nil {
		return fmt.Errorf("failed to upsert category preference: %w", err)
	}
	return nil
}
