package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyprompt/internal/models"
)

func resultsByGroup(results []GroupResult) map[string]GroupResult {
	out := make(map[string]GroupResult, len(results))
	for _, r := range results {
		out[r.GroupID] = r
	}
	return out
}

func TestScheduleDay(t *testing.T) {
	f := newFixture(t)
	f.group("plain", models.GroupFamily, "Ann", "Bob", "Cat")
	f.group("empty", models.GroupFriends, "Dee")
	f.group("party", models.GroupFamily)
	f.member("party", "u1", "Eve", "1992-03-05")
	f.member("party", "u2", "Fin", "")
	f.member("party", "u3", "Gus", "")

	f.prompt(models.Prompt{ID: "bd-theirs", Question: "Wish {member_name} a happy birthday", Category: models.CategoryBirthday, BirthdayType: models.BirthdayTheirs})
	f.prompt(models.Prompt{ID: "bd-yours", Question: "How are you celebrating?", Category: models.CategoryBirthday, BirthdayType: models.BirthdayYours})
	f.prompt(models.Prompt{ID: "fam-1", Question: "Family tradition?", Category: models.CategoryFamily})

	sched := NewScheduler(f.svc)
	results, err := sched.ScheduleDay(f.ctx, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, results, 3)

	byGroup := resultsByGroup(results)
	assert.Equal(t, StatusScheduled, byGroup["plain"].Status)
	assert.Equal(t, "fam-1", byGroup["plain"].PromptID)
	assert.Equal(t, StatusNotScheduled, byGroup["empty"].Status)
	assert.Equal(t, StatusBirthdayScheduled, byGroup["party"].Status)
	assert.Equal(t, 3, byGroup["party"].Overrides)

	eve := f.resolve("party", "2024-03-05", "u1")
	require.NotNil(t, eve)
	assert.Equal(t, "bd-yours", eve.PromptID)
	fin := f.resolve("party", "2024-03-05", "u2")
	require.NotNil(t, fin)
	assert.Equal(t, "Wish Eve a happy birthday", fin.Question)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ScheduledGroups.WithLabelValues(StatusScheduled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ScheduledGroups.WithLabelValues(StatusNotScheduled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ScheduledGroups.WithLabelValues(StatusBirthdayScheduled)))
}

func TestScheduleDayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.group("G", models.GroupFamily)
	f.member("G", "u1", "Eve", "1992-03-05")
	f.member("G", "u2", "Fin", "")
	f.prompt(models.Prompt{ID: "bd-theirs", Question: "Wish {member_name} well", Category: models.CategoryBirthday, BirthdayType: models.BirthdayTheirs})
	f.prompt(models.Prompt{ID: "fam-1", Question: "Tradition?", Category: models.CategoryFamily})

	sched := NewScheduler(f.svc)
	first, err := sched.ScheduleDay(f.ctx, "2024-03-05")
	require.NoError(t, err)
	second, err := sched.ScheduleDay(f.ctx, "2024-03-05")
	require.NoError(t, err)

	// Only Fin gets an override since there is no your_birthday prompt
	assert.Equal(t, 1, first[0].Overrides)
	assert.Zero(t, second[0].Overrides)
	assert.Equal(t, StatusScheduled, second[0].Status)
	assert.Equal(t, first[0].PromptID, second[0].PromptID)
	assert.Len(t, f.store.Assignments("G"), 2)
}

func TestScheduleDayReportsFailures(t *testing.T) {
	f := newFixture(t)
	f.group("G", models.GroupFamily, "Ann")
	f.prompt(models.Prompt{ID: "fam-1", Question: "Tradition?", Category: models.CategoryFamily})
	f.store.SetFault("ListPrompts", errors.New("timeout"))

	results, err := NewScheduler(f.svc).ScheduleDay(f.ctx, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, ErrUpstreamUnavailable)
}

func TestScheduleDayErrors(t *testing.T) {
	t.Run("invalid date", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewScheduler(f.svc).ScheduleDay(f.ctx, "tomorrow")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("cannot list groups", func(t *testing.T) {
		f := newFixture(t)
		f.store.SetFault("ListGroupIDs", errors.New("timeout"))
		_, err := NewScheduler(f.svc).ScheduleDay(f.ctx, "2024-03-05")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t)
		f.group("G", models.GroupFamily, "Ann")
		ctx, cancel := context.WithCancel(f.ctx)
		cancel()

		results, err := NewScheduler(f.svc).ScheduleDay(ctx, "2024-03-05")
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, results, 1)
		assert.Equal(t, StatusFailed, results[0].Status)
	})
}
