// Package memstore is an in-process implementation of every store the prompt
// engine uses. It enforces the same uniqueness keys as the SQL schema and lets
// tests pause callers at chosen points to interleave concurrent resolutions.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

// Hook points. Hooks run outside the store lock.
const (
	AfterListGeneralAssignments = "ListGeneralAssignments"
	AfterGetUsage               = "GetUsage"
	AfterPeekQueue              = "PeekQueue"
)

// Store is a simple in-process store for local/dev use and tests
type Store struct {
	mu sync.RWMutex

	prompts     map[string]models.Prompt
	groups      map[string]models.Group
	members     map[string][]models.Member
	memorials   map[string][]models.Memorial
	prefs       map[string]map[string]float64
	assignments []models.Assignment
	usage       []models.UsageRecord
	queue       []models.QueueItem
	entries     []models.Entry

	lastCreated time.Time
	hooks       map[string]func()
	faults      map[string]error
}

// New creates an empty store
func New() *Store {
	return &Store{
		prompts:   make(map[string]models.Prompt),
		groups:    make(map[string]models.Group),
		members:   make(map[string][]models.Member),
		memorials: make(map[string][]models.Memorial),
		prefs:     make(map[string]map[string]float64),
		hooks:     make(map[string]func()),
		faults:    make(map[string]error),
	}
}

// SetHook installs fn to run after the named operation has read its state
// and before it returns
func (s *Store) SetHook(point string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[point] = fn
}

// SetFault makes the named operation fail with err until cleared with a nil err
func (s *Store) SetFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faults[op]
}

func (s *Store) runHook(point string) {
	s.mu.RLock()
	fn := s.hooks[point]
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// stamp returns a strictly increasing creation time. Callers hold the write lock.
func (s *Store) stamp(t time.Time) time.Time {
	if !t.IsZero() {
		return t
	}
	now := time.Now().UTC()
	if !now.After(s.lastCreated) {
		now = s.lastCreated.Add(time.Nanosecond)
	}
	s.lastCreated = now
	return now
}

// NewBarrier returns a hook that holds the first n callers until all n have
// arrived, then lets everyone through. A stuck barrier releases after timeout.
func NewBarrier(n int, timeout time.Duration) func() {
	var (
		mu      sync.Mutex
		arrived int
		release = make(chan struct{})
	)
	return func() {
		mu.Lock()
		if arrived >= n {
			mu.Unlock()
			return
		}
		arrived++
		if arrived == n {
			close(release)
		}
		mu.Unlock()

		select {
		case <-release:
		case <-time.After(timeout):
		}
	}
}

// GetPrompt retrieves a prompt by ID
func (s *Store) GetPrompt(_ context.Context, id string) (*models.Prompt, error) {
	if err := s.fault("GetPrompt"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListPrompts retrieves the whole catalog ordered by ID
func (s *Store) ListPrompts(_ context.Context) ([]models.Prompt, error) {
	if err := s.fault("ListPrompts"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetGroup retrieves a group by ID
func (s *Store) GetGroup(_ context.Context, id string) (*models.Group, error) {
	if err := s.fault("GetGroup"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// ListGroupIDs retrieves the IDs of all groups in order
func (s *Store) ListGroupIDs(_ context.Context) ([]string, error) {
	if err := s.fault("ListGroupIDs"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListMembers retrieves the members of a group ordered by user ID
func (s *Store) ListMembers(_ context.Context, groupID string) ([]models.Member, error) {
	if err := s.fault("ListMembers"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.Member(nil), s.members[groupID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ListMemorials retrieves the memorials of a group in creation order
func (s *Store) ListMemorials(_ context.Context, groupID string) ([]models.Memorial, error) {
	if err := s.fault("ListMemorials"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.Memorial(nil), s.memorials[groupID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListCategoryPreferences retrieves the category weights of a group
func (s *Store) ListCategoryPreferences(_ context.Context, groupID string) ([]models.CategoryPreference, error) {
	if err := s.fault("ListCategoryPreferences"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CategoryPreference
	for category, weight := range s.prefs[groupID] {
		out = append(out, models.CategoryPreference{GroupID: groupID, Category: category, Weight: weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func sortAssignments(list []models.Assignment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// ListGeneralAssignments retrieves every general assignment of a group on a date, oldest first
func (s *Store) ListGeneralAssignments(_ context.Context, groupID, date string) ([]models.Assignment, error) {
	if err := s.fault("ListGeneralAssignments"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.GroupID == groupID && a.Date == date && a.UserID == "" {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortAssignments(out)

	s.runHook(AfterListGeneralAssignments)
	return out, nil
}

// GetUserAssignment retrieves the per-user override of a group on a date
func (s *Store) GetUserAssignment(_ context.Context, groupID, date, userID string) (*models.Assignment, error) {
	if err := s.fault("GetUserAssignment"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if a.GroupID == groupID && a.Date == date && a.UserID == userID {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

// CountAssignments counts every assignment a group has ever had
func (s *Store) CountAssignments(_ context.Context, groupID string) (int, error) {
	if err := s.fault("CountAssignments"); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.assignments {
		if a.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

// ListAssignedPromptIDs retrieves the distinct prompts ever assigned to a group as general assignments
func (s *Store) ListAssignedPromptIDs(_ context.Context, groupID string) ([]string, error) {
	if err := s.fault("ListAssignedPromptIDs"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, a := range s.assignments {
		if a.GroupID == groupID && a.UserID == "" && !seen[a.PromptID] {
			seen[a.PromptID] = true
			ids = append(ids, a.PromptID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateAssignment inserts an assignment, returning database.ErrConflict when the slot is taken
func (s *Store) CreateAssignment(_ context.Context, a *models.Assignment) error {
	if err := s.fault("CreateAssignment"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments {
		if existing.GroupID == a.GroupID && existing.Date == a.Date && existing.UserID == a.UserID {
			return fmt.Errorf("assignment for group %s on %s: %w", a.GroupID, a.Date, database.ErrConflict)
		}
	}
	s.insertAssignment(a)
	return nil
}

func (s *Store) insertAssignment(a *models.Assignment) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = s.stamp(a.CreatedAt)
	row := *a
	row.Prompt = nil
	row.Question = ""
	s.assignments = append(s.assignments, row)
}

// DeleteAssignment removes an assignment by ID
func (s *Store) DeleteAssignment(_ context.Context, id string) error {
	if err := s.fault("DeleteAssignment"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.assignments[:0]
	for _, a := range s.assignments {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.assignments = kept
	return nil
}

// GetUsage retrieves the name recorded for a prompt variable on a date
func (s *Store) GetUsage(_ context.Context, groupID, promptID, variableType, date string) (*models.UsageRecord, error) {
	if err := s.fault("GetUsage"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var found *models.UsageRecord
	for _, u := range s.usage {
		if u.GroupID == groupID && u.PromptID == promptID && u.VariableType == variableType && u.DateUsed == date {
			rec := u
			found = &rec
			break
		}
	}
	s.mu.RUnlock()

	s.runHook(AfterGetUsage)
	return found, nil
}

// ListUsage retrieves the records of a variable between two dates inclusive, across all prompts
func (s *Store) ListUsage(_ context.Context, groupID, variableType, from, to string) ([]models.UsageRecord, error) {
	if err := s.fault("ListUsage"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.UsageRecord
	for _, u := range s.usage {
		if u.GroupID == groupID && u.VariableType == variableType && u.DateUsed >= from && u.DateUsed <= to {
			out = append(out, u)
		}
	}
	sortUsage(out)
	return out, nil
}

func sortUsage(list []models.UsageRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].DateUsed != list[j].DateUsed {
			return list[i].DateUsed < list[j].DateUsed
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

// LastUsageBefore retrieves the most recent record of a variable dated before the given date
func (s *Store) LastUsageBefore(_ context.Context, groupID, variableType, before string) (*models.UsageRecord, error) {
	if err := s.fault("LastUsageBefore"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []models.UsageRecord
	for _, u := range s.usage {
		if u.GroupID == groupID && u.VariableType == variableType && u.DateUsed < before {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sortUsage(candidates)
	last := candidates[len(candidates)-1]
	return &last, nil
}

// RecordUsage appends a ledger record, returning database.ErrConflict when the key exists
func (s *Store) RecordUsage(_ context.Context, u *models.UsageRecord) error {
	if err := s.fault("RecordUsage"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.usage {
		if existing.GroupID == u.GroupID && existing.PromptID == u.PromptID &&
			existing.VariableType == u.VariableType && existing.DateUsed == u.DateUsed {
			return fmt.Errorf("usage of %s for prompt %s on %s: %w", u.VariableType, u.PromptID, u.DateUsed, database.ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = s.stamp(u.CreatedAt)
	s.usage = append(s.usage, *u)
	return nil
}

// PeekQueue retrieves the lowest-position queue item of a group
func (s *Store) PeekQueue(_ context.Context, groupID string) (*models.QueueItem, error) {
	if err := s.fault("PeekQueue"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var head *models.QueueItem
	for _, item := range s.queue {
		if item.GroupID != groupID {
			continue
		}
		if head == nil || item.Position < head.Position ||
			(item.Position == head.Position && item.CreatedAt.Before(head.CreatedAt)) {
			candidate := item
			head = &candidate
		}
	}
	s.mu.RUnlock()

	s.runHook(AfterPeekQueue)
	return head, nil
}

// DeleteQueueItem removes a queue item by ID
func (s *Store) DeleteQueueItem(_ context.Context, id string) error {
	if err := s.fault("DeleteQueueItem"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.queue[:0]
	for _, item := range s.queue {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.queue = kept
	return nil
}

// HasEntries checks whether anyone answered a prompt for a group on a date
func (s *Store) HasEntries(_ context.Context, groupID, date, promptID string) (bool, error) {
	if err := s.fault("HasEntries"); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.GroupID == groupID && e.Date == date && e.PromptID == promptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Close() error { return nil }
