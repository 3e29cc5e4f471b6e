package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"dailyprompt/internal/models"
)

// reconcile collapses duplicate general assignments for one group and date to
// a single winner and deletes the unanswered rest. Losers with answers are
// never deleted; they stay behind the winner and are reported. A single
// assignment is returned as is.
//
// Winner: the one with answers, then Journal on the reset day (non-Journal on
// other days), then the earliest created.
func (s *PromptService) reconcile(ctx context.Context, dups []models.Assignment, date time.Time) (*models.Assignment, error) {
	if len(dups) == 0 {
		return nil, nil
	}
	if len(dups) == 1 {
		winner := dups[0]
		return &winner, nil
	}

	candidates := append([]models.Assignment(nil), dups...)

	var answered []models.Assignment
	hasAnswers := make(map[string]bool, len(candidates))
	for _, a := range candidates {
		has, err := s.stores.Entries.HasEntries(ctx, a.GroupID, a.Date, a.PromptID)
		if err != nil {
			return nil, upstream("check entries", err)
		}
		if has {
			hasAnswers[a.ID] = true
			answered = append(answered, a)
		}
	}
	if len(answered) > 0 {
		candidates = answered
	}

	if len(candidates) > 1 {
		wantJournal := date.Weekday() == s.cfg.JournalResetDay
		var preferred []models.Assignment
		for _, a := range candidates {
			p, err := s.stores.Prompts.GetPrompt(ctx, a.PromptID)
			if err != nil {
				return nil, upstream("get prompt", err)
			}
			isJournal := p != nil && p.Category == models.CategoryJournal
			if isJournal == wantJournal {
				preferred = append(preferred, a)
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	winner := candidates[0]

	removed := 0
	for _, a := range dups {
		if a.ID == winner.ID {
			continue
		}
		if hasAnswers[a.ID] {
			s.metrics.EligibilityKept.WithLabelValues(reasonAnsweredDup).Inc()
			s.logger.Warn("keeping answered duplicate assignment",
				zap.String("group_id", a.GroupID),
				zap.String("date", a.Date),
				zap.String("assignment_id", a.ID),
				zap.String("prompt_id", a.PromptID),
				zap.String("winner_id", winner.ID),
			)
			continue
		}
		if err := s.stores.Assignments.DeleteAssignment(ctx, a.ID); err != nil {
			return nil, upstream("delete duplicate assignment", err)
		}
		removed++
	}
	if removed > 0 {
		s.metrics.DuplicatesReconciled.Add(float64(removed))
		s.logger.Info("reconciled duplicate assignments",
			zap.String("group_id", winner.GroupID),
			zap.String("date", winner.Date),
			zap.String("winner_id", winner.ID),
			zap.String("prompt_id", winner.PromptID),
			zap.Int("removed", removed),
		)
	}
	return &winner, nil
}
