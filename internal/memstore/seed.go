package memstore

import (
	"context"

	"github.com/google/uuid"

	"dailyprompt/internal/models"
)

// UpsertPrompt inserts or replaces a catalog prompt
func (s *Store) UpsertPrompt(_ context.Context, p *models.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.prompts[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	p.CreatedAt = s.stamp(p.CreatedAt)
	s.prompts[p.ID] = *p
	return nil
}

// UpsertGroup inserts a group or updates its name and type
func (s *Store) UpsertGroup(_ context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.groups[g.ID]; ok && g.CreatedAt.IsZero() {
		g.CreatedAt = existing.CreatedAt
	}
	g.CreatedAt = s.stamp(g.CreatedAt)
	s.groups[g.ID] = *g
	return nil
}

// UpsertMember adds a member to a group, updating name and birthday if present
func (s *Store) UpsertMember(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.JoinedAt = s.stamp(m.JoinedAt)
	list := s.members[m.GroupID]
	for i := range list {
		if list[i].UserID == m.UserID {
			list[i].Name = m.Name
			list[i].Birthday = m.Birthday
			return nil
		}
	}
	s.members[m.GroupID] = append(list, *m)
	return nil
}

// UpsertMemorial inserts a memorial or renames an existing one
func (s *Store) UpsertMemorial(_ context.Context, m *models.Memorial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	list := s.memorials[m.GroupID]
	for i := range list {
		if list[i].ID == m.ID {
			list[i].Name = m.Name
			return nil
		}
	}
	m.CreatedAt = s.stamp(m.CreatedAt)
	s.memorials[m.GroupID] = append(list, *m)
	return nil
}

// UpsertCategoryPreference sets the weight of a category for a group
func (s *Store) UpsertCategoryPreference(_ context.Context, p *models.CategoryPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs[p.GroupID] == nil {
		s.prefs[p.GroupID] = make(map[string]float64)
	}
	s.prefs[p.GroupID][p.Category] = p.Weight
	return nil
}

// Enqueue appends a prompt to a group's queue
func (s *Store) Enqueue(_ context.Context, item *models.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = s.stamp(item.CreatedAt)
	s.queue = append(s.queue, *item)
	return nil
}

// CreateEntry records an answer
func (s *Store) CreateEntry(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = s.stamp(e.CreatedAt)
	s.entries = append(s.entries, *e)
	return nil
}

// SeedAssignment inserts an assignment without the uniqueness check, to
// reproduce duplicate rows left behind by older writers
func (s *Store) SeedAssignment(a *models.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertAssignment(a)
}

// SeedUsage inserts a ledger record without the uniqueness check
func (s *Store) SeedUsage(u *models.UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = s.stamp(u.CreatedAt)
	s.usage = append(s.usage, *u)
}

// Assignments returns a copy of every assignment of a group, oldest first
func (s *Store) Assignments(groupID string) []models.Assignment {
	s.mu.RLock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.GroupID == groupID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortAssignments(out)
	return out
}

// UsageRecords returns a copy of a group's ledger in date order
func (s *Store) UsageRecords(groupID string) []models.UsageRecord {
	s.mu.RLock()
	var out []models.UsageRecord
	for _, u := range s.usage {
		if u.GroupID == groupID {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()
	sortUsage(out)
	return out
}

// QueueLen returns the number of items queued for a group
func (s *Store) QueueLen(groupID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.queue {
		if item.GroupID == groupID {
			n++
		}
	}
	return n
}

type snapshot struct {
	prompts   map[string]models.Prompt
	groups    map[string]models.Group
	members   map[string][]models.Member
	memorials map[string][]models.Memorial
	prefs     map[string]map[string]float64
}

// WithinTx runs fn against the store and restores the catalog and group data
// if fn fails. Assignments, usage and queue items are not rolled back.
func (s *Store) WithinTx(_ context.Context, fn func(s *Store) error) error {
	s.mu.RLock()
	snap := snapshot{
		prompts:   make(map[string]models.Prompt, len(s.prompts)),
		groups:    make(map[string]models.Group, len(s.groups)),
		members:   make(map[string][]models.Member, len(s.members)),
		memorials: make(map[string][]models.Memorial, len(s.memorials)),
		prefs:     make(map[string]map[string]float64, len(s.prefs)),
	}
	for k, v := range s.prompts {
		snap.prompts[k] = v
	}
	for k, v := range s.groups {
		snap.groups[k] = v
	}
	for k, v := range s.members {
		snap.members[k] = append([]models.Member(nil), v...)
	}
	for k, v := range s.memorials {
		snap.memorials[k] = append([]models.Memorial(nil), v...)
	}
	for k, v := range s.prefs {
		weights := make(map[string]float64, len(v))
		for c, w := range v {
			weights[c] = w
		}
		snap.prefs[k] = weights
	}
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.prompts = snap.prompts
		s.groups = snap.groups
		s.members = snap.members
		s.memorials = snap.memorials
		s.prefs = snap.prefs
		s.mu.Unlock()
		return err
	}
	return nil
}
