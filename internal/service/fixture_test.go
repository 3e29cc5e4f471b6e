package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dailyprompt/internal/config"
	"dailyprompt/internal/memstore"
	"dailyprompt/internal/models"
	"dailyprompt/internal/observability"
)

// fixedNow is a Friday; the Monday and Sunday after it are in the future
var fixedNow = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memstore.Store
	cfg     *config.Config
	metrics *observability.Metrics
	svc     *PromptService
}

func testConfig() *config.Config {
	return &config.Config{
		JournalResetDay:         time.Sunday,
		NewGroupWindow:          24 * time.Hour,
		MinMembersForMemberName: 3,
		FallbackName:            "them",
		ScheduleConcurrency:     4,
	}
}

func storesFor(s *memstore.Store) Stores {
	return Stores{
		Prompts:     s,
		Groups:      s,
		Assignments: s,
		Usage:       s,
		Queue:       s,
		Entries:     s,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	cfg := testConfig()
	metrics := observability.NewNopMetrics()
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		svc: NewPromptService(storesFor(store), cfg, zaptest.NewLogger(t),
			WithClock(func() time.Time { return fixedNow }),
			WithMetrics(metrics),
		),
	}
}

// group creates a group created well before fixedNow with the named members,
// user ids u1..uN in order
func (f *fixture) group(id, groupType string, names ...string) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpsertGroup(f.ctx, &models.Group{
		ID:        id,
		Name:      id,
		Type:      groupType,
		CreatedAt: fixedNow.AddDate(0, -1, 0),
	}))
	for i, name := range names {
		f.member(id, userID(i+1), name, "")
	}
}

func userID(n int) string {
	return "u" + string(rune('0'+n))
}

func (f *fixture) member(groupID, userID, name, birthday string) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpsertMember(f.ctx, &models.Member{
		UserID:   userID,
		GroupID:  groupID,
		Name:     name,
		Birthday: birthday,
	}))
}

func (f *fixture) memorial(groupID, id, name string) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpsertMemorial(f.ctx, &models.Memorial{ID: id, GroupID: groupID, Name: name}))
}

func (f *fixture) prompt(p models.Prompt) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpsertPrompt(f.ctx, &p))
}

func (f *fixture) weight(groupID, category string, w float64) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpsertCategoryPreference(f.ctx, &models.CategoryPreference{
		GroupID: groupID, Category: category, Weight: w,
	}))
}

func (f *fixture) resolve(groupID, date, viewerID string) *models.Assignment {
	f.t.Helper()
	a, err := f.svc.Resolve(f.ctx, groupID, date, viewerID)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) generalAssignments(groupID string) []models.Assignment {
	var out []models.Assignment
	for _, a := range f.store.Assignments(groupID) {
		if a.IsGeneral() {
			out = append(out, a)
		}
	}
	return out
}
