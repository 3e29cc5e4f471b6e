package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
)

// personalize substitutes the rotating names into a prompt's question. When
// record is false the ledger is read but never written.
func (s *PromptService) personalize(ctx context.Context, p *models.Prompt, gc *groupContext, date time.Time, viewerID string, record bool) (string, error) {
	text := p.Question

	if p.UsesVariable(models.VarMemorialName) {
		name, err := s.claimName(ctx, gc, p, models.VarMemorialName, date, record, func() (string, error) {
			return s.nextMemorial(ctx, gc, date)
		})
		if err != nil {
			return "", err
		}
		text = strings.ReplaceAll(text, "{"+models.VarMemorialName+"}", name)
	}

	if p.UsesVariable(models.VarMemberName) {
		var name string
		if p.IsBirthday() {
			name = s.birthdayNames(gc, date, viewerID)
		} else {
			var err error
			name, err = s.claimName(ctx, gc, p, models.VarMemberName, date, record, func() (string, error) {
				return s.nextMember(ctx, gc, date, viewerID)
			})
			if err != nil {
				return "", err
			}
			name = s.excludeViewer(gc, name, viewerID)
		}
		text = strings.ReplaceAll(text, "{"+models.VarMemberName+"}", name)
	}

	return text, nil
}

// claimName returns the ledger's name for the prompt variable on date,
// computing and recording one if none exists. A losing insert adopts the
// winner's name after a single re-read.
func (s *PromptService) claimName(ctx context.Context, gc *groupContext, p *models.Prompt, variable string, date time.Time, record bool, compute func() (string, error)) (string, error) {
	day := formatDate(date)
	existing, err := s.stores.Usage.GetUsage(ctx, gc.group.ID, p.ID, variable, day)
	if err != nil {
		return "", upstream("get name usage", err)
	}
	if existing != nil {
		return existing.NameUsed, nil
	}

	name, err := compute()
	if err != nil {
		return "", err
	}
	if !record || name == s.cfg.FallbackName {
		return name, nil
	}

	err = s.stores.Usage.RecordUsage(ctx, &models.UsageRecord{
		GroupID:      gc.group.ID,
		PromptID:     p.ID,
		VariableType: variable,
		DateUsed:     day,
		NameUsed:     name,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, database.ErrConflict) {
		s.metrics.Conflicts.WithLabelValues("usage").Inc()
		winner, err := s.stores.Usage.GetUsage(ctx, gc.group.ID, p.ID, variable, day)
		if err != nil {
			return "", upstream("re-read name usage", err)
		}
		if winner != nil {
			return winner.NameUsed, nil
		}
		return name, nil
	}
	if err != nil {
		return "", upstream("record name usage", err)
	}

	s.logger.Info("recorded name usage",
		zap.String("group_id", gc.group.ID),
		zap.String("prompt_id", p.ID),
		zap.String("variable", variable),
		zap.String("date", day),
	)
	return name, nil
}

// nextMemorial rotates memorials week by week, never repeating the previous day's name
// when another memorial exists
func (s *PromptService) nextMemorial(ctx context.Context, gc *groupContext, date time.Time) (string, error) {
	memorials := gc.memorials
	switch len(memorials) {
	case 0:
		return s.cfg.FallbackName, nil
	case 1:
		return memorials[0].Name, nil
	}

	indexOf := func(name string) int {
		for i, m := range memorials {
			if m.Name == name {
				return i
			}
		}
		return -1
	}

	day := formatDate(date)
	yesterday := addDays(day, -1)
	monday := formatDate(weekStart(date))

	previous := ""
	prevDay, err := s.stores.Usage.ListUsage(ctx, gc.group.ID, models.VarMemorialName, yesterday, yesterday)
	if err != nil {
		return "", upstream("list memorial usage", err)
	}
	if len(prevDay) > 0 {
		previous = prevDay[len(prevDay)-1].NameUsed
	}

	// advance walks forward from start, skipping the previous day's name and
	// anything skip rejects
	advance := func(start int, skip func(string) bool) string {
		for step := 0; step < len(memorials); step++ {
			m := memorials[pick(start+step, len(memorials))]
			if m.Name == previous || (skip != nil && skip(m.Name)) {
				continue
			}
			return m.Name
		}
		if skip == nil {
			return memorials[pick(start, len(memorials))].Name
		}
		return ""
	}

	var thisWeek []models.UsageRecord
	if monday < day {
		thisWeek, err = s.stores.Usage.ListUsage(ctx, gc.group.ID, models.VarMemorialName, monday, yesterday)
		if err != nil {
			return "", upstream("list memorial usage", err)
		}
	}

	if len(thisWeek) > 0 {
		used := make(map[string]bool, len(thisWeek))
		for _, u := range thisWeek {
			used[u.NameUsed] = true
		}
		start := indexOf(thisWeek[len(thisWeek)-1].NameUsed) + 1
		if name := advance(start, func(n string) bool { return used[n] }); name != "" {
			return name, nil
		}
		return advance(start, nil), nil
	}

	last, err := s.stores.Usage.LastUsageBefore(ctx, gc.group.ID, models.VarMemorialName, monday)
	if err != nil {
		return "", upstream("get last memorial usage", err)
	}
	start := 0
	if last != nil {
		start = indexOf(last.NameUsed) + 1
	}
	return advance(start, nil), nil
}

// nextMember picks a member other than the viewer, avoiding names used in the
// last N days where N is the number of candidates
func (s *PromptService) nextMember(ctx context.Context, gc *groupContext, date time.Time, viewerID string) (string, error) {
	candidates := membersExcept(gc.members, viewerID)
	if len(candidates) == 0 {
		return s.cfg.FallbackName, nil
	}

	day := formatDate(date)
	recent, err := s.stores.Usage.ListUsage(ctx, gc.group.ID, models.VarMemberName, addDays(day, -len(candidates)), addDays(day, -1))
	if err != nil {
		return "", upstream("list member usage", err)
	}
	recentNames := make(map[string]bool, len(recent))
	for _, u := range recent {
		recentNames[u.NameUsed] = true
	}

	var fresh []models.Member
	for _, m := range candidates {
		if !recentNames[m.Name] {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) == 0 {
		fresh = candidates
	}
	return fresh[pick(dayIndex(gc.group.ID, date), len(fresh))].Name, nil
}

// excludeViewer swaps a recorded member name that is the viewer's own for the
// next member after it. The swap is not recorded.
func (s *PromptService) excludeViewer(gc *groupContext, name, viewerID string) string {
	if viewerID == "" {
		return name
	}
	viewerName := ""
	for _, m := range gc.members {
		if m.UserID == viewerID {
			viewerName = m.Name
			break
		}
	}
	if viewerName == "" || name != viewerName {
		return name
	}

	members := sortedMembers(gc.members)
	start := 0
	for i, m := range members {
		if m.UserID == viewerID {
			start = i
			break
		}
	}
	for step := 1; step <= len(members); step++ {
		m := members[(start+step)%len(members)]
		if m.UserID != viewerID && m.Name != viewerName {
			return m.Name
		}
	}
	return s.cfg.FallbackName
}

// birthdayNames joins the names of members celebrating on date, except the viewer
func (s *PromptService) birthdayNames(gc *groupContext, date time.Time, viewerID string) string {
	day := formatDate(date)
	var names []string
	for _, m := range membersExcept(gc.members, viewerID) {
		if m.BirthdayOn(day) {
			names = append(names, m.Name)
		}
	}
	if len(names) == 0 {
		return s.cfg.FallbackName
	}
	return strings.Join(names, " and ")
}

func sortedMembers(members []models.Member) []models.Member {
	out := append([]models.Member(nil), members...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func membersExcept(members []models.Member, userID string) []models.Member {
	var out []models.Member
	for _, m := range sortedMembers(members) {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}
