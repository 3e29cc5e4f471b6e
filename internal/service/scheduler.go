package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

// Per-group outcomes of a scheduling run
const (
	StatusScheduled         = "scheduled"
	StatusBirthdayScheduled = "birthday_scheduled"
	StatusNotScheduled      = "not_scheduled"
	StatusFailed            = "failed"
)

// GroupResult reports what the scheduler did for one group
type GroupResult struct {
	GroupID   string
	Status    string
	PromptID  string
	Overrides int
	Err       error
}

// Scheduler prepares every group's prompt for a date ahead of members opening the app
type Scheduler struct {
	prompts *PromptService
}

// NewScheduler creates a scheduler that resolves through the given prompt service
func NewScheduler(prompts *PromptService) *Scheduler {
	return &Scheduler{prompts: prompts}
}

// ScheduleDay creates birthday overrides and the general assignment for every
// group on date. A failing group is reported in its result and does not stop
// the others.
func (s *Scheduler) ScheduleDay(ctx context.Context, date string) ([]GroupResult, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	ps := s.prompts
	ids, err := ps.stores.Groups.ListGroupIDs(ctx)
	if err != nil {
		return nil, upstream("list groups", err)
	}

	results := make([]GroupResult, len(ids))
	var g errgroup.Group
	g.SetLimit(ps.cfg.ScheduleConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.scheduleGroup(ctx, id, date)
			return nil
		})
	}
	g.Wait()

	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		ps.metrics.ScheduledGroups.WithLabelValues(r.Status).Inc()
	}
	ps.logger.Info("scheduled daily prompts",
		zap.String("date", date),
		zap.Int("groups", len(ids)),
		zap.Int(StatusScheduled, counts[StatusScheduled]),
		zap.Int(StatusBirthdayScheduled, counts[StatusBirthdayScheduled]),
		zap.Int(StatusNotScheduled, counts[StatusNotScheduled]),
		zap.Int(StatusFailed, counts[StatusFailed]),
	)
	return results, ctx.Err()
}

func (s *Scheduler) scheduleGroup(ctx context.Context, groupID, date string) GroupResult {
	result := GroupResult{GroupID: groupID}
	if err := ctx.Err(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	overrides, err := s.createBirthdayOverrides(ctx, groupID, date)
	if err != nil {
		return s.failed(result, date, err)
	}
	result.Overrides = overrides

	a, err := s.prompts.Resolve(ctx, groupID, date, "")
	if err != nil {
		return s.failed(result, date, err)
	}

	switch {
	case overrides > 0:
		result.Status = StatusBirthdayScheduled
	case a == nil:
		result.Status = StatusNotScheduled
	default:
		result.Status = StatusScheduled
	}
	if a != nil {
		result.PromptID = a.PromptID
	}
	return result
}

func (s *Scheduler) failed(result GroupResult, date string, err error) GroupResult {
	result.Status = StatusFailed
	result.Err = err
	s.prompts.logger.Error("failed to schedule group",
		zap.String("group_id", result.GroupID),
		zap.String("date", date),
		zap.Error(err),
	)
	return result
}

// createBirthdayOverrides gives every member a per-user birthday prompt when
// anyone in the group celebrates on date. The celebrant sees the
// your_birthday prompt and everyone else the their_birthday prompt.
func (s *Scheduler) createBirthdayOverrides(ctx context.Context, groupID, date string) (int, error) {
	stores := s.prompts.stores
	members, err := stores.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return 0, upstream("list members", err)
	}

	celebrating := false
	for _, m := range members {
		if m.BirthdayOn(date) {
			celebrating = true
			break
		}
	}
	if !celebrating {
		return 0, nil
	}

	catalog, err := stores.Prompts.ListPrompts(ctx)
	if err != nil {
		return 0, upstream("list prompts", err)
	}
	yours := firstBirthdayPrompt(catalog, models.BirthdayYours)
	theirs := firstBirthdayPrompt(catalog, models.BirthdayTheirs)
	if yours == nil && theirs == nil {
		s.prompts.logger.Warn("group has a birthday but the catalog has no birthday prompts",
			zap.String("group_id", groupID),
			zap.String("date", date),
		)
		return 0, nil
	}

	created := 0
	for _, m := range members {
		p := theirs
		if m.BirthdayOn(date) {
			p = yours
		}
		if p == nil {
			continue
		}
		err := stores.Assignments.CreateAssignment(ctx, &models.Assignment{
			GroupID:   groupID,
			Date:      date,
			UserID:    m.UserID,
			PromptID:  p.ID,
			CreatedAt: s.prompts.now().UTC(),
		})
		if errors.Is(err, database.ErrConflict) {
			s.prompts.metrics.Conflicts.WithLabelValues("assignment").Inc()
			continue
		}
		if err != nil {
			return created, upstream(fmt.Sprintf("create birthday override for %s", m.UserID), err)
		}
		created++
	}
	if created > 0 {
		s.prompts.logger.Info("created birthday overrides",
			zap.String("group_id", groupID),
			zap.String("date", date),
			zap.Int("count", created),
		)
	}
	return created, nil
}

func firstBirthdayPrompt(catalog []models.Prompt, birthdayType string) *models.Prompt {
	for _, p := range catalog {
		if p.BirthdayType == birthdayType {
			chosen := p
			return &chosen
		}
	}
	return nil
}
