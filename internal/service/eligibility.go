package service

import (
	"context"

	"dailyprompt/internal/models"
)

// Reasons a prompt is not eligible for a group. Also used as metric labels.
const (
	reasonDisabled      = "category_disabled"
	reasonGroupType     = "group_type"
	reasonNSFWOptIn     = "nsfw_not_enabled"
	reasonNoMemorial    = "no_memorial"
	reasonFewMembers    = "too_few_members"
	reasonJournal       = "journal"
	reasonBirthday      = "birthday"
	reasonCustom        = "custom"
	reasonJournalOffDay = "journal_off_reset_day"
	reasonAnsweredDup   = "answered_duplicate"
)

// groupContext is the per-call snapshot of everything eligibility and
// personalization need to know about a group
type groupContext struct {
	group     *models.Group
	members   []models.Member
	memorials []models.Memorial
	weights   map[string]float64
}

func (s *PromptService) loadGroupContext(ctx context.Context, groupID string) (*groupContext, error) {
	group, err := s.stores.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, upstream("get group", err)
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	members, err := s.stores.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, upstream("list members", err)
	}
	memorials, err := s.stores.Groups.ListMemorials(ctx, groupID)
	if err != nil {
		return nil, upstream("list memorials", err)
	}
	prefs, err := s.stores.Groups.ListCategoryPreferences(ctx, groupID)
	if err != nil {
		return nil, upstream("list category preferences", err)
	}

	weights := make(map[string]float64, len(prefs))
	for _, p := range prefs {
		weights[p.Category] = p.Weight
	}
	return &groupContext{group: group, members: members, memorials: memorials, weights: weights}, nil
}

// weight returns the configured weight of a category, 1 when unset
func (gc *groupContext) weight(category string) float64 {
	if w, ok := gc.weights[category]; ok {
		return w
	}
	return 1
}

// eligibility holds the filters shared by the queue and both pool tiers
type eligibility struct {
	minMembers int
}

// check reports whether a prompt may be selected for the group. fromPool is
// false for queued prompts, which may be custom.
func (e eligibility) check(p models.Prompt, gc *groupContext, fromPool bool) (bool, string) {
	switch {
	case p.Category == models.CategoryJournal:
		return false, reasonJournal
	case p.IsBirthday():
		return false, reasonBirthday
	case fromPool && (p.IsCustom || p.Category == models.CategoryCustom):
		return false, reasonCustom
	}

	if w, ok := gc.weights[p.Category]; ok && w <= 0 {
		return false, reasonDisabled
	}

	switch gc.group.Type {
	case models.GroupFamily:
		if p.Category == models.CategoryFriends || p.Category == models.CategoryEdgy {
			return false, reasonGroupType
		}
	case models.GroupFriends:
		if p.Category == models.CategoryFamily {
			return false, reasonGroupType
		}
		if p.Category == models.CategoryEdgy && gc.weights[p.Category] <= 0 {
			return false, reasonNSFWOptIn
		}
	}

	if p.Category == models.CategoryRemembering && len(gc.memorials) == 0 {
		return false, reasonNoMemorial
	}
	if p.UsesVariable(models.VarMemorialName) && len(gc.memorials) == 0 {
		return false, reasonNoMemorial
	}
	if p.UsesVariable(models.VarMemberName) && len(gc.members) < e.minMembers {
		return false, reasonFewMembers
	}
	return true, ""
}
