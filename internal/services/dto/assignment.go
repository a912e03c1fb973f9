package dto

import (
	"time"

	"obsp_backend/internal/models"
)

// AssignRequest - запрос на назначение фрилансера на response.
// Payout и Fee опциональны: по умолчанию считаются от снапшота
// цены response-а и ставки платформы.
type AssignRequest struct {
	FreelancerID string   `json:"freelancer_id" binding:"required,uuid"`
	Payout       *float64 `json:"payout" binding:"omitempty,min=0"`
	Fee          *float64 `json:"fee" binding:"omitempty,min=0"`
}

// AssignmentResponse - назначение в API-ответе
type AssignmentResponse struct {
	ID               string                  `json:"id"`
	ResponseID       string                  `json:"response_id"`
	FreelancerID     string                  `json:"freelancer_id"`
	Status           models.AssignmentStatus `json:"status"`
	Progress         float64                 `json:"progress"`
	FreelancerPayout float64                 `json:"freelancer_payout"`
	PlatformFee      float64                 `json:"platform_fee"`
	AssignedAt       *time.Time              `json:"assigned_at,omitempty"`
	StartedAt        *time.Time              `json:"started_at,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// MilestoneProgressResponse - веха response-а с дедлайном и статусом
type MilestoneProgressResponse struct {
	MilestoneID  string                 `json:"milestone_id"`
	Title        string                 `json:"title"`
	Order        int                    `json:"order"`
	Status       models.MilestoneStatus `json:"status"`
	Deadline     *time.Time             `json:"deadline,omitempty"`
	DeadlineType models.DeadlineType    `json:"deadline_type"`
	PayoutAmount float64                `json:"payout_amount"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

func NewAssignmentResponse(a *models.Assignment) *AssignmentResponse {
	return &AssignmentResponse{
		ID:               a.ID,
		ResponseID:       a.ResponseID,
		FreelancerID:     a.FreelancerID,
		Status:           a.Status,
		Progress:         a.Progress,
		FreelancerPayout: a.FreelancerPayout,
		PlatformFee:      a.PlatformFee,
		AssignedAt:       a.AssignedAt,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
		CreatedAt:        a.CreatedAt,
	}
}

func NewMilestoneProgressResponse(entry *models.MilestoneProgress, tierPrice float64) *MilestoneProgressResponse {
	resp := &MilestoneProgressResponse{
		MilestoneID:  entry.MilestoneID,
		Status:       entry.Status,
		Deadline:     entry.Deadline,
		DeadlineType: entry.DeadlineType,
		CompletedAt:  entry.CompletedAt,
	}
	if entry.Milestone != nil {
		resp.Title = entry.Milestone.Title
		resp.Order = entry.Milestone.Order
		resp.PayoutAmount = entry.Milestone.PayoutAmount(tierPrice)
	}
	return resp
}
