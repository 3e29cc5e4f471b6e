package models

import "time"

// Assignment is the prompt a group sees on a date. UserID is empty for the
// general assignment and set for a per-user override.
type Assignment struct {
	ID        string
	GroupID   string
	Date      string // YYYY-MM-DD
	UserID    string
	PromptID  string
	CreatedAt time.Time

	// Populated by the engine on the way out
	Prompt   *Prompt
	Question string
}

// IsGeneral reports whether the assignment is shared by the whole group
func (a Assignment) IsGeneral() bool {
	return a.UserID == ""
}

// Entry is a member's answer to an assigned prompt
type Entry struct {
	ID          string
	GroupID     string
	UserID      string
	PromptID    string
	Date        string
	TextContent string
	CreatedAt   time.Time
}

// UsageRecord notes which rotating name replaced a placeholder for a group on a date
type UsageRecord struct {
	ID           string
	GroupID      string
	PromptID     string
	VariableType string
	DateUsed     string
	NameUsed     string
	CreatedAt    time.Time
}

// QueueItem is a manually queued prompt, consumed lowest position first
type QueueItem struct {
	ID        string
	GroupID   string
	PromptID  string
	Position  int
	AddedBy   string
	CreatedAt time.Time
}
