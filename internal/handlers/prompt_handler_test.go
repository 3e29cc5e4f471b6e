package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dailyprompt/internal/config"
	"dailyprompt/internal/memstore"
	"dailyprompt/internal/models"
	"dailyprompt/internal/observability"
	"dailyprompt/internal/security"
	"dailyprompt/internal/service"
)

type stubResolver struct {
	assignment *models.Assignment
	err        error

	gotGroup, gotDate, gotViewer string
}

func (s *stubResolver) Resolve(_ context.Context, groupID, date, viewerID string) (*models.Assignment, error) {
	s.gotGroup, s.gotDate, s.gotViewer = groupID, date, viewerID
	return s.assignment, s.err
}

func TestGetPromptStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		resolver *stubResolver
		want     int
		wantCode string
	}{
		{
			name: "resolved",
			resolver: &stubResolver{assignment: &models.Assignment{
				ID: "a1", GroupID: "G", Date: "2024-03-05", PromptID: "p1", Question: "Song?",
				Prompt: &models.Prompt{ID: "p1", Category: models.CategoryFun},
			}},
			want: http.StatusOK,
		},
		{name: "not scheduled", resolver: &stubResolver{}, want: http.StatusNoContent},
		{name: "bad date", resolver: &stubResolver{err: fmt.Errorf("%w: %q", service.ErrInvalidDate, "x")}, want: http.StatusBadRequest, wantCode: CodeInvalidDate},
		{name: "unknown group", resolver: &stubResolver{err: service.ErrGroupNotFound}, want: http.StatusNotFound, wantCode: CodeGroupNotFound},
		{name: "store down", resolver: &stubResolver{err: fmt.Errorf("%w: failed to get group: %w", service.ErrUpstreamUnavailable, errors.New("eof"))}, want: http.StatusServiceUnavailable, wantCode: CodeUnavailable},
		{name: "unexpected", resolver: &stubResolver{err: errors.New("odd")}, want: http.StatusInternalServerError, wantCode: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.resolver, nil, zaptest.NewLogger(t))
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/groups/G/prompts/2024-03-05?viewer=u2", nil)

			h.Router(nil).ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "G", tt.resolver.gotGroup)
			assert.Equal(t, "2024-03-05", tt.resolver.gotDate)
			assert.Equal(t, "u2", tt.resolver.gotViewer)

			switch {
			case tt.wantCode != "":
				var body errorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body.Code)
			case tt.want == http.StatusOK:
				var body PromptResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "Song?", body.Question)
				assert.Equal(t, models.CategoryFun, body.Category)
			case tt.want == http.StatusNoContent:
				assert.Zero(t, rec.Body.Len())
			}
		})
	}
}

func TestGetPromptEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.UpsertGroup(ctx, &models.Group{ID: "G", Name: "Smiths", Type: models.GroupFamily, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	for i, name := range []string{"Ann", "Bob", "Cat"} {
		require.NoError(t, store.UpsertMember(ctx, &models.Member{UserID: fmt.Sprintf("u%d", i+1), GroupID: "G", Name: name}))
	}
	require.NoError(t, store.UpsertPrompt(ctx, &models.Prompt{ID: "fun-1", Question: "What is {member_name} best at?", Category: models.CategoryFun}))

	cfg := &config.Config{
		JournalResetDay:         time.Sunday,
		NewGroupWindow:          24 * time.Hour,
		MinMembersForMemberName: 3,
		FallbackName:            "them",
		ScheduleConcurrency:     1,
	}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("handlers_test", reg)
	svc := service.NewPromptService(service.Stores{
		Prompts: store, Groups: store, Assignments: store, Usage: store, Queue: store, Entries: store,
	}, cfg, zaptest.NewLogger(t), service.WithMetrics(metrics))

	ts := httptest.NewServer(NewHandler(svc, nil, zaptest.NewLogger(t)).Router(observability.MetricsHandler(reg)))
	defer ts.Close()

	get := func(path string) PromptResponse {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body PromptResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	first := get("/groups/G/prompts/2024-03-05?viewer=u1")
	second := get("/groups/G/prompts/2024-03-05?viewer=u1")
	assert.Equal(t, first.AssignmentID, second.AssignmentID)
	assert.Equal(t, first.Question, second.Question)
	assert.NotEqual(t, "What is Ann best at?", first.Question)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndReadiness(t *testing.T) {
	startup := NewStartupStatus(StepDatabase, StepMigrations)
	h := NewHandler(&stubResolver{}, startup, zaptest.NewLogger(t))
	router := h.Router(nil)

	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve("/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve("/groups/G/prompts/2024-03-05").Code)

	startup.CompleteStep(StepDatabase)
	var snap ReadinessResponse
	require.NoError(t, json.NewDecoder(serve("/readyz").Body).Decode(&snap))
	assert.Equal(t, 50, snap.Progress)
	assert.False(t, snap.Ready)

	startup.CompleteStep(StepMigrations)
	startup.MarkReady()
	assert.Equal(t, http.StatusOK, serve("/readyz").Code)
	assert.Equal(t, http.StatusNoContent, serve("/groups/G/prompts/2024-03-05").Code)
}

func TestGetPromptRejectsMalformedIDs(t *testing.T) {
	resolver := &stubResolver{}
	router := NewHandler(resolver, nil, zaptest.NewLogger(t)).Router(nil)

	for _, path := range []string{
		"/groups/-bad/prompts/2024-03-05",
		"/groups/G/prompts/2024-03-05?viewer=has%20space",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, path)

		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, CodeInvalidID, body.Code)
	}
	assert.Empty(t, resolver.gotGroup, "invalid requests never reach the resolver")
}

func TestGetPromptRateLimited(t *testing.T) {
	rl := security.NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	router := NewHandler(&stubResolver{}, nil, zaptest.NewLogger(t), WithRateLimiter(rl)).Router(nil)

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/groups/G/prompts/2024-03-05", nil)
		router.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusNoContent, serve().Code)

	limited := serve()
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "application/json", limited.Header().Get("Content-Type"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(limited.Body).Decode(&body))
	assert.Equal(t, CodeRateLimited, body.Code)
}
