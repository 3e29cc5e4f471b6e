package handlers

import (
	"time"

	"dailyprompt/internal/models"
)

// PromptResponse is the JSON body of a resolved daily prompt
type PromptResponse struct {
	AssignmentID string    `json:"assignment_id"`
	GroupID      string    `json:"group_id"`
	Date         string    `json:"date"`
	UserID       string    `json:"user_id,omitempty"`
	PromptID     string    `json:"prompt_id"`
	Question     string    `json:"question"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	IsCustom     bool      `json:"is_custom"`
	CreatedAt    time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

func newPromptResponse(a *models.Assignment) PromptResponse {
	resp := PromptResponse{
		AssignmentID: a.ID,
		GroupID:      a.GroupID,
		Date:         a.Date,
		UserID:       a.UserID,
		PromptID:     a.PromptID,
		Question:     a.Question,
		CreatedAt:    a.CreatedAt,
	}
	if a.Prompt != nil {
		resp.Description = a.Prompt.Description
		resp.Category = a.Prompt.Category
		resp.IsCustom = a.Prompt.IsCustom
	}
	return resp
}
