package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dailyprompt/internal/config"
	"dailyprompt/internal/database"
	"dailyprompt/internal/models"
	"dailyprompt/internal/observability"
)

// PromptService resolves the canonical daily prompt of a group. It holds no
// per-group state; concurrent callers coordinate only through the store's
// uniqueness keys.
type PromptService struct {
	stores      Stores
	cfg         *config.Config
	logger      *zap.Logger
	metrics     *observability.Metrics
	eligibility eligibility
	now         func() time.Time
}

// Option configures a PromptService
type Option func(*PromptService)

// WithClock overrides the wall clock used for "today" and new-group checks
func WithClock(now func() time.Time) Option {
	return func(s *PromptService) { s.now = now }
}

// WithMetrics sets the instruments the service reports to
func WithMetrics(m *observability.Metrics) Option {
	return func(s *PromptService) { s.metrics = m }
}

// NewPromptService creates a new prompt service
func NewPromptService(stores Stores, cfg *config.Config, logger *zap.Logger, opts ...Option) *PromptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PromptService{
		stores:      stores,
		cfg:         cfg,
		logger:      logger,
		eligibility: eligibility{minMembers: cfg.MinMembersForMemberName},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewNopMetrics()
	}
	return s
}

// Resolve returns the personalized prompt a viewer sees for a group on a date
// (YYYY-MM-DD), creating the assignment on first call. viewerID may be empty.
// A nil assignment with a nil error means nothing is schedulable yet.
func (s *PromptService) Resolve(ctx context.Context, groupID, date, viewerID string) (*models.Assignment, error) {
	start := time.Now()
	a, tier, err := s.resolve(ctx, groupID, date, viewerID)
	s.metrics.ObserveResolve(time.Since(start))

	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			s.metrics.ResolveErrors.Inc()
			s.logger.Error("failed to resolve prompt",
				zap.String("group_id", groupID),
				zap.String("date", date),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.metrics.Resolutions.WithLabelValues(tier).Inc()
	s.logger.Debug("resolved prompt",
		zap.String("group_id", groupID),
		zap.String("date", date),
		zap.String("viewer_id", viewerID),
		zap.String("tier", tier),
		zap.Bool("scheduled", a != nil),
	)
	return a, nil
}

func (s *PromptService) resolve(ctx context.Context, groupID, date, viewerID string) (*models.Assignment, string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, "", err
	}
	gc, err := s.loadGroupContext(ctx, groupID)
	if err != nil {
		return nil, "", err
	}

	// 1. Per-user override
	if viewerID != "" {
		override, err := s.stores.Assignments.GetUserAssignment(ctx, groupID, date, viewerID)
		if err != nil {
			return nil, "", upstream("get user assignment", err)
		}
		if override != nil {
			a, err := s.present(ctx, override, gc, d, viewerID, false)
			return a, tierOverride, err
		}
	}

	// 2. Existing general assignment
	existing, err := s.stores.Assignments.ListGeneralAssignments(ctx, groupID, date)
	if err != nil {
		return nil, "", upstream("list assignments", err)
	}
	if len(existing) > 0 {
		a, err := s.checkExisting(ctx, existing, gc, d, viewerID)
		if err != nil || a != nil {
			return a, tierExisting, err
		}
	}

	// 3. Weekly reset Journal
	if d.Weekday() == s.cfg.JournalResetDay && date >= formatDate(s.now().UTC()) {
		journal, err := s.journalPrompt(ctx, gc, d)
		if err != nil {
			return nil, "", err
		}
		if journal != nil {
			a, err := s.createIfAbsent(ctx, gc, d, selection{prompt: journal, tier: tierJournal}, viewerID)
			return a, tierJournal, err
		}
	}

	// 4. New-group bootstrap
	onboarding, err := s.bootstrapPrompt(ctx, gc)
	if err != nil {
		return nil, "", err
	}
	if onboarding != nil {
		a, err := s.createIfAbsent(ctx, gc, d, selection{prompt: onboarding, tier: tierBootstrap}, viewerID)
		return a, tierBootstrap, err
	}

	// 5. Queue and weighted pools
	sel, err := s.buildSelection(ctx, gc, d)
	if err != nil {
		return nil, "", err
	}
	if sel.prompt == nil {
		s.logger.Debug("no eligible prompt", zap.String("group_id", groupID), zap.String("date", date))
		return nil, tierNone, nil
	}
	a, err := s.createIfAbsent(ctx, gc, d, sel, viewerID)
	return a, sel.tier, err
}

// checkExisting collapses duplicates and validates the surviving assignment.
// It returns nil when the assignment was purged and resolution should continue.
func (s *PromptService) checkExisting(ctx context.Context, existing []models.Assignment, gc *groupContext, d time.Time, viewerID string) (*models.Assignment, error) {
	winner, err := s.reconcile(ctx, existing, d)
	if err != nil {
		return nil, err
	}

	prompt, err := s.stores.Prompts.GetPrompt(ctx, winner.PromptID)
	if err != nil {
		return nil, upstream("get prompt", err)
	}

	reason := s.invalidReason(prompt, gc, d)
	if reason == "" {
		return s.presentWith(ctx, winner, prompt, gc, d, viewerID, true)
	}

	answered, err := s.stores.Entries.HasEntries(ctx, winner.GroupID, winner.Date, winner.PromptID)
	if err != nil {
		return nil, upstream("check entries", err)
	}
	if answered {
		s.metrics.EligibilityKept.WithLabelValues(reason).Inc()
		s.logger.Warn("keeping invalid assignment because it has answers",
			zap.String("group_id", winner.GroupID),
			zap.String("date", winner.Date),
			zap.String("prompt_id", winner.PromptID),
			zap.String("reason", reason),
		)
		if prompt == nil {
			return winner, nil
		}
		return s.presentWith(ctx, winner, prompt, gc, d, viewerID, true)
	}

	if err := s.stores.Assignments.DeleteAssignment(ctx, winner.ID); err != nil {
		return nil, upstream("delete invalid assignment", err)
	}
	s.metrics.PurgedAssignments.WithLabelValues(reason).Inc()
	s.logger.Info("purged invalid assignment",
		zap.String("group_id", winner.GroupID),
		zap.String("date", winner.Date),
		zap.String("prompt_id", winner.PromptID),
		zap.String("reason", reason),
	)
	return nil, nil
}

// invalidReason validates a stored general assignment. Only the day-of-week
// and memorial rules apply; other eligibility filters govern new selections.
func (s *PromptService) invalidReason(p *models.Prompt, gc *groupContext, d time.Time) string {
	switch {
	case p == nil:
		return "missing_prompt"
	case p.Category == models.CategoryJournal && d.Weekday() != s.cfg.JournalResetDay:
		return reasonJournalOffDay
	case p.Category == models.CategoryRemembering && len(gc.memorials) == 0:
		return reasonNoMemorial
	}
	return ""
}

// journalPrompt picks the reset-day Journal prompt, or nil when the catalog has none
func (s *PromptService) journalPrompt(ctx context.Context, gc *groupContext, d time.Time) (*models.Prompt, error) {
	if w, ok := gc.weights[models.CategoryJournal]; ok && w <= 0 {
		return nil, nil
	}
	catalog, err := s.stores.Prompts.ListPrompts(ctx)
	if err != nil {
		return nil, upstream("list prompts", err)
	}
	var journals []models.Prompt
	for _, p := range catalog {
		if p.Category == models.CategoryJournal {
			journals = append(journals, p)
		}
	}
	if len(journals) == 0 {
		return nil, nil
	}
	chosen := journals[pick(dayIndex(gc.group.ID, d), len(journals))]
	return &chosen, nil
}

// bootstrapPrompt returns the onboarding prompt when the group is new and has
// never seen it, or nil
func (s *PromptService) bootstrapPrompt(ctx context.Context, gc *groupContext) (*models.Prompt, error) {
	count, err := s.stores.Assignments.CountAssignments(ctx, gc.group.ID)
	if err != nil {
		return nil, upstream("count assignments", err)
	}
	recent := s.now().Sub(gc.group.CreatedAt) < s.cfg.NewGroupWindow
	if count > 0 && !recent {
		return nil, nil
	}

	onboarding, err := s.onboardingPrompt(ctx)
	if err != nil || onboarding == nil {
		return nil, err
	}

	if count > 0 {
		assigned, err := s.stores.Assignments.ListAssignedPromptIDs(ctx, gc.group.ID)
		if err != nil {
			return nil, upstream("list assigned prompts", err)
		}
		for _, id := range assigned {
			if id == onboarding.ID {
				return nil, nil
			}
		}
	}

	if ok, reason := s.eligibility.check(*onboarding, gc, false); !ok {
		s.logger.Debug("onboarding prompt not eligible",
			zap.String("group_id", gc.group.ID),
			zap.String("prompt_id", onboarding.ID),
			zap.String("reason", reason),
		)
		return nil, nil
	}
	return onboarding, nil
}

func (s *PromptService) onboardingPrompt(ctx context.Context) (*models.Prompt, error) {
	if s.cfg.OnboardingPromptID != "" {
		p, err := s.stores.Prompts.GetPrompt(ctx, s.cfg.OnboardingPromptID)
		if err != nil {
			return nil, upstream("get onboarding prompt", err)
		}
		return p, nil
	}
	catalog, err := s.stores.Prompts.ListPrompts(ctx)
	if err != nil {
		return nil, upstream("list prompts", err)
	}
	for _, p := range catalog {
		if p.IceBreaker {
			chosen := p
			return &chosen, nil
		}
	}
	return nil, nil
}

// createIfAbsent inserts the general assignment for the date. If another
// caller got there first, it re-reads once and adopts the stored winner. Only
// the caller whose insert succeeds consumes the queue item.
func (s *PromptService) createIfAbsent(ctx context.Context, gc *groupContext, d time.Time, sel selection, viewerID string) (*models.Assignment, error) {
	p := sel.prompt
	a := &models.Assignment{
		GroupID:   gc.group.ID,
		Date:      formatDate(d),
		PromptID:  p.ID,
		CreatedAt: s.now().UTC(),
	}
	err := s.stores.Assignments.CreateAssignment(ctx, a)
	if err == nil {
		s.logger.Info("created assignment",
			zap.String("group_id", a.GroupID),
			zap.String("date", a.Date),
			zap.String("prompt_id", a.PromptID),
			zap.String("tier", sel.tier),
		)
		if sel.queueItemID != "" {
			if err := s.stores.Queue.DeleteQueueItem(ctx, sel.queueItemID); err != nil {
				return nil, upstream("consume queue item", err)
			}
		}
		return s.presentWith(ctx, a, p, gc, d, viewerID, true)
	}
	if !errors.Is(err, database.ErrConflict) {
		return nil, upstream("create assignment", err)
	}

	s.metrics.Conflicts.WithLabelValues("assignment").Inc()
	existing, err := s.stores.Assignments.ListGeneralAssignments(ctx, a.GroupID, a.Date)
	if err != nil {
		return nil, upstream("re-read assignment", err)
	}
	if len(existing) == 0 {
		s.logger.Warn("conflicting assignment disappeared before re-read",
			zap.String("group_id", a.GroupID),
			zap.String("date", a.Date),
		)
		return nil, nil
	}
	winner, err := s.reconcile(ctx, existing, d)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("adopted concurrent assignment",
		zap.String("group_id", winner.GroupID),
		zap.String("date", winner.Date),
		zap.String("prompt_id", winner.PromptID),
	)
	return s.present(ctx, winner, gc, d, viewerID, true)
}

// present loads the assignment's prompt and personalizes it
func (s *PromptService) present(ctx context.Context, a *models.Assignment, gc *groupContext, d time.Time, viewerID string, record bool) (*models.Assignment, error) {
	p, err := s.stores.Prompts.GetPrompt(ctx, a.PromptID)
	if err != nil {
		return nil, upstream("get prompt", err)
	}
	if p == nil {
		return a, nil
	}
	return s.presentWith(ctx, a, p, gc, d, viewerID, record)
}

func (s *PromptService) presentWith(ctx context.Context, a *models.Assignment, p *models.Prompt, gc *groupContext, d time.Time, viewerID string, record bool) (*models.Assignment, error) {
	text, err := s.personalize(ctx, p, gc, d, viewerID, record)
	if err != nil {
		return nil, err
	}
	out := *a
	out.Prompt = p
	out.Question = text
	return &out, nil
}
