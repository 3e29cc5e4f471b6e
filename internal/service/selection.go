package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"dailyprompt/internal/models"
)

// Resolution tiers, reported in logs and metrics
const (
	tierOverride  = "override"
	tierExisting  = "existing"
	tierJournal   = "journal"
	tierBootstrap = "bootstrap"
	tierQueue     = "queue"
	tierUnused    = "unused"
	tierReset     = "reset"
	tierNone      = "none"
)

// selection is the outcome of the pool builder. queueItemID is set when the
// prompt came from the manual queue and the item is consumed once the
// assignment is written.
type selection struct {
	prompt      *models.Prompt
	tier        string
	queueItemID string
}

// buildSelection picks the prompt for a group and date from the manual queue,
// then the never-assigned pool, then the whole catalog. The prompt is nil when
// nothing is eligible.
func (s *PromptService) buildSelection(ctx context.Context, gc *groupContext, date time.Time) (selection, error) {
	item, prompt, err := s.peekEligible(ctx, gc)
	if err != nil {
		return selection{}, err
	}
	if prompt != nil {
		return selection{prompt: prompt, tier: tierQueue, queueItemID: item.ID}, nil
	}

	catalog, err := s.stores.Prompts.ListPrompts(ctx)
	if err != nil {
		return selection{}, upstream("list prompts", err)
	}
	assignedIDs, err := s.stores.Assignments.ListAssignedPromptIDs(ctx, gc.group.ID)
	if err != nil {
		return selection{}, upstream("list assigned prompts", err)
	}
	assigned := make(map[string]bool, len(assignedIDs))
	for _, id := range assignedIDs {
		assigned[id] = true
	}

	idx := dayIndex(gc.group.ID, date)

	var unused []models.Prompt
	for _, p := range catalog {
		if !assigned[p.ID] {
			unused = append(unused, p)
		}
	}
	if pool := s.weightedPool(unused, gc); len(pool) > 0 {
		chosen := pool[pick(idx, len(pool))]
		return selection{prompt: &chosen, tier: tierUnused}, nil
	}

	if pool := s.weightedPool(catalog, gc); len(pool) > 0 {
		s.logger.Debug("unused pool exhausted, selecting from full catalog",
			zap.String("group_id", gc.group.ID),
			zap.Int("catalog_size", len(catalog)),
		)
		chosen := pool[pick(idx, len(pool))]
		return selection{prompt: &chosen, tier: tierReset}, nil
	}
	return selection{tier: tierNone}, nil
}

// peekEligible returns the lowest-position eligible queue item, deleting the
// ineligible items ahead of it. The eligible item itself is left in place.
func (s *PromptService) peekEligible(ctx context.Context, gc *groupContext) (*models.QueueItem, *models.Prompt, error) {
	seen := make(map[string]bool)
	for {
		item, err := s.stores.Queue.PeekQueue(ctx, gc.group.ID)
		if err != nil {
			return nil, nil, upstream("peek queue", err)
		}
		if item == nil || seen[item.ID] {
			return nil, nil, nil
		}
		seen[item.ID] = true

		prompt, err := s.stores.Prompts.GetPrompt(ctx, item.PromptID)
		if err != nil {
			return nil, nil, upstream("get queued prompt", err)
		}

		ok, reason := false, "missing_prompt"
		if prompt != nil {
			ok, reason = s.eligibility.check(*prompt, gc, false)
		}
		if ok {
			return item, prompt, nil
		}

		if err := s.stores.Queue.DeleteQueueItem(ctx, item.ID); err != nil {
			return nil, nil, upstream("delete queue item", err)
		}
		s.logger.Debug("discarded ineligible queue item",
			zap.String("group_id", gc.group.ID),
			zap.String("prompt_id", item.PromptID),
			zap.String("reason", reason),
		)
	}
}

// weightedPool lists each eligible prompt ceil(weight) times, keeping catalog order
func (s *PromptService) weightedPool(prompts []models.Prompt, gc *groupContext) []models.Prompt {
	var pool []models.Prompt
	for _, p := range prompts {
		if ok, _ := s.eligibility.check(p, gc, true); !ok {
			continue
		}
		copies := int(math.Ceil(gc.weight(p.Category)))
		for i := 0; i < copies; i++ {
			pool = append(pool, p)
		}
	}
	return pool
}
