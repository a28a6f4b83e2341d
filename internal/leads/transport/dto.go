// Package transport defines the request and response shapes for the leads
// HTTP surface, with validation tags enforced before any service call.
package transport

import (
	"time"

	"crm_pipeline_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	Name              string     `json:"name" validate:"required,min=1,max=200"`
	Phone             string     `json:"phone" validate:"required,min=5,max=20"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email"`
	BudgetMin         *int64     `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax         *int64     `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	PreferredLocation *string    `json:"preferredLocation,omitempty" validate:"omitempty,max=200"`
	Notes             *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
	AssignedToID      *uuid.UUID `json:"assignedToId,omitempty"`
}

// UpdateLeadRequest is a field-level patch. Manual edits bypass the stage
// policy; which fields a caller may touch depends on their role.
type UpdateLeadRequest struct {
	Name              *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email"`
	Stage             *string    `json:"stage,omitempty" validate:"omitempty,oneof=new contacted site_visit negotiation token completed closed lost"`
	Temperature       *string    `json:"temperature,omitempty" validate:"omitempty,oneof=hot warm cold"`
	BudgetMin         *int64     `json:"budgetMin,omitempty" validate:"omitempty,min=0"`
	BudgetMax         *int64     `json:"budgetMax,omitempty" validate:"omitempty,min=0"`
	PreferredLocation *string    `json:"preferredLocation,omitempty" validate:"omitempty,max=200"`
	Notes             *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
	LostReason        *string    `json:"lostReason,omitempty" validate:"omitempty,max=500"`
	IsPriority        *bool      `json:"isPriority,omitempty"`
	AssignedToID      *uuid.UUID `json:"assignedToId,omitempty"`
	NextFollowupAt    *time.Time `json:"nextFollowupAt,omitempty"`
}

type RecordCallRequest struct {
	Outcome         string     `json:"outcome" validate:"required,oneof=connected_positive connected_callback not_connected not_interested"`
	CallDate        *time.Time `json:"callDate,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty" validate:"omitempty,min=0"`
	Notes           *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	CallbackAt      *time.Time `json:"callbackAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty" validate:"omitempty,max=500"`
}

type ScheduleVisitRequest struct {
	ScheduledAt  time.Time `json:"scheduledAt" validate:"required"`
	PropertyName *string   `json:"propertyName,omitempty" validate:"omitempty,max=200"`
	Notes        *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type CompleteVisitRequest struct {
	NextStage *string `json:"nextStage,omitempty" validate:"omitempty,oneof=new contacted site_visit negotiation token completed closed lost"`
	Rating    *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Feedback  string  `json:"feedback,omitempty" validate:"omitempty,max=2000"`
}

type EditVisitOutcomeRequest struct {
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	NextStage *string `json:"nextStage,omitempty" validate:"omitempty,oneof=new contacted site_visit negotiation token completed closed lost"`
}

// Response DTOs

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	Email             *string    `json:"email,omitempty"`
	Stage             string     `json:"stage"`
	Temperature       string     `json:"temperature"`
	BudgetMin         *int64     `json:"budgetMin,omitempty"`
	BudgetMax         *int64     `json:"budgetMax,omitempty"`
	PreferredLocation *string    `json:"preferredLocation,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	LostReason        *string    `json:"lostReason,omitempty"`
	IsPriority        bool       `json:"isPriority"`
	AssignedToID      uuid.UUID  `json:"assignedToId"`
	NextFollowupAt    *time.Time `json:"nextFollowupAt,omitempty"`
	LastContactedAt   *time.Time `json:"lastContactedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type CallLogResponse struct {
	ID                  uuid.UUID  `json:"id"`
	LeadID              uuid.UUID  `json:"leadId"`
	AgentID             uuid.UUID  `json:"agentId"`
	CallStatus          string     `json:"callStatus"`
	CallDate            time.Time  `json:"callDate"`
	DurationSeconds     *int       `json:"durationSeconds,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	CallbackScheduledAt *time.Time `json:"callbackScheduledAt,omitempty"`
	RejectionReason     *string    `json:"rejectionReason,omitempty"`
	RecordState         string     `json:"recordState"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type SiteVisitResponse struct {
	ID           uuid.UUID `json:"id"`
	LeadID       uuid.UUID `json:"leadId"`
	ConductedBy  uuid.UUID `json:"conductedBy"`
	PropertyName *string   `json:"propertyName,omitempty"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Status       string    `json:"status"`
	Rating       *int      `json:"rating,omitempty"`
	Feedback     string    `json:"feedback,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type FollowUpTaskResponse struct {
	ID          uuid.UUID `json:"id"`
	LeadID      uuid.UUID `json:"leadId"`
	AgentID     uuid.UUID `json:"agentId"`
	TaskType    string    `json:"taskType"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RecordCallResponse struct {
	Call     CallLogResponse       `json:"call"`
	Lead     LeadResponse          `json:"lead"`
	FollowUp *FollowUpTaskResponse `json:"followUp,omitempty"`
}

type ActivityResponse struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    uuid.UUID      `json:"actorId"`
	EntityType string         `json:"entityType"`
	EntityID   uuid.UUID      `json:"entityId"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type StageMetricResponse struct {
	Stage       string `json:"stage"`
	Temperature string `json:"temperature"`
	Count       int64  `json:"count"`
}

// Mapping helpers

func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                l.ID,
		Name:              l.Name,
		Phone:             l.Phone,
		Email:             l.Email,
		Stage:             l.Stage,
		Temperature:       l.Temperature,
		BudgetMin:         l.BudgetMin,
		BudgetMax:         l.BudgetMax,
		PreferredLocation: l.PreferredLocation,
		Notes:             l.Notes,
		LostReason:        l.LostReason,
		IsPriority:        l.IsPriority,
		AssignedToID:      l.AssignedToID,
		NextFollowupAt:    l.NextFollowupAt,
		LastContactedAt:   l.LastContactedAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func ToCallLogResponse(c repository.CallLog) CallLogResponse {
	return CallLogResponse{
		ID:                  c.ID,
		LeadID:              c.LeadID,
		AgentID:             c.AgentID,
		CallStatus:          c.CallStatus,
		CallDate:            c.CallDate,
		DurationSeconds:     c.DurationSeconds,
		Notes:               c.Notes,
		CallbackScheduledAt: c.CallbackScheduledAt,
		RejectionReason:     c.RejectionReason,
		RecordState:         c.RecordState,
		CreatedAt:           c.CreatedAt,
	}
}

func ToSiteVisitResponse(v repository.SiteVisit) SiteVisitResponse {
	return SiteVisitResponse{
		ID:           v.ID,
		LeadID:       v.LeadID,
		ConductedBy:  v.ConductedBy,
		PropertyName: v.PropertyName,
		ScheduledAt:  v.ScheduledAt,
		Status:       v.Status,
		Rating:       v.Rating,
		Feedback:     v.Feedback,
		Notes:        v.Notes,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func ToFollowUpTaskResponse(t repository.FollowUpTask) FollowUpTaskResponse {
	return FollowUpTaskResponse{
		ID:          t.ID,
		LeadID:      t.LeadID,
		AgentID:     t.AgentID,
		TaskType:    t.TaskType,
		ScheduledAt: t.ScheduledAt,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
	}
}

func ToActivityResponse(e repository.ActivityEntry) ActivityResponse {
	return ActivityResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}
