package models

import "time"

// Group types
const (
	GroupFamily  = "family"
	GroupFriends = "friends"
)

// Group is a set of members sharing one daily prompt
type Group struct {
	ID        string
	Name      string
	Type      string // 'family' or 'friends'
	CreatedAt time.Time
}

// Member is a user belonging to a group
type Member struct {
	UserID   string
	GroupID  string
	Name     string
	Birthday string // YYYY-MM-DD, empty when unknown
	JoinedAt time.Time
}

// BirthdayOn reports whether the member's birthday falls on the month/day of date (YYYY-MM-DD)
func (m Member) BirthdayOn(date string) bool {
	if len(m.Birthday) < 10 || len(date) < 10 {
		return false
	}
	return m.Birthday[5:10] == date[5:10]
}

// Memorial is a remembered person whose name rotates through Remembering prompts
type Memorial struct {
	ID        string
	GroupID   string
	Name      string
	CreatedAt time.Time
}

// CategoryPreference weights a category for a group: 0 disables it,
// below 1 down-weights, above 1 up-weights
type CategoryPreference struct {
	GroupID  string
	Category string
	Weight   float64
}
