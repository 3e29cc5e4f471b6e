package service

import (
	"context"

	"dailyprompt/internal/models"
)

// PromptStore reads the prompt catalog
type PromptStore interface {
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	// ListPrompts returns the whole catalog ordered by id
	ListPrompts(ctx context.Context) ([]models.Prompt, error)
}

// GroupStore reads groups and the data hanging off them
type GroupStore interface {
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupIDs(ctx context.Context) ([]string, error)
	// ListMembers returns members ordered by user id
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	// ListMemorials returns memorials ordered by created_at, then id
	ListMemorials(ctx context.Context, groupID string) ([]models.Memorial, error)
	ListCategoryPreferences(ctx context.Context, groupID string) ([]models.CategoryPreference, error)
}

// AssignmentStore reads and writes daily prompt assignments.
// CreateAssignment returns database.ErrConflict when the (group, date, user) slot is taken.
type AssignmentStore interface {
	// ListGeneralAssignments returns every general row for the date ordered by created_at, then id.
	// More than one row means duplicates slipped past the store.
	ListGeneralAssignments(ctx context.Context, groupID, date string) ([]models.Assignment, error)
	GetUserAssignment(ctx context.Context, groupID, date, userID string) (*models.Assignment, error)
	CountAssignments(ctx context.Context, groupID string) (int, error)
	// ListAssignedPromptIDs returns the distinct prompts ever assigned to the group as general rows
	ListAssignedPromptIDs(ctx context.Context, groupID string) ([]string, error)
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
}

// UsageStore is the name-usage ledger.
// RecordUsage returns database.ErrConflict when the (group, prompt, variable, date) key exists.
type UsageStore interface {
	GetUsage(ctx context.Context, groupID, promptID, variableType, date string) (*models.UsageRecord, error)
	// ListUsage returns records with from <= date_used <= to ordered by date_used, then created_at
	ListUsage(ctx context.Context, groupID, variableType, from, to string) ([]models.UsageRecord, error)
	// LastUsageBefore returns the most recent record dated strictly before the given date
	LastUsageBefore(ctx context.Context, groupID, variableType, before string) (*models.UsageRecord, error)
	RecordUsage(ctx context.Context, u *models.UsageRecord) error
}

// QueueStore reads and consumes the manual prompt queue
type QueueStore interface {
	// PeekQueue returns the lowest-position item, or nil when the queue is empty
	PeekQueue(ctx context.Context, groupID string) (*models.QueueItem, error)
	DeleteQueueItem(ctx context.Context, id string) error
}

// EntryStore answers whether an assignment has dependent answers
type EntryStore interface {
	HasEntries(ctx context.Context, groupID, date, promptID string) (bool, error)
}

// Stores bundles every store the engine depends on
type Stores struct {
	Prompts     PromptStore
	Groups      GroupStore
	Assignments AssignmentStore
	Usage       UsageStore
	Queue       QueueStore
	Entries     EntryStore
}
