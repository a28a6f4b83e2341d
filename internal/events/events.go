// Package events provides domain event definitions for decoupled
// communication between modules. Infrastructure (Bus, Handler) lives in
// platform/events.
package events

import (
	"crm_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// LeadStageChanged is published after a committed lifecycle transition moved a
// lead to a new stage or temperature.
type LeadStageChanged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	ActorID        uuid.UUID `json:"actorId"`
	OldStage       string    `json:"oldStage"`
	NewStage       string    `json:"newStage"`
	OldTemperature string    `json:"oldTemperature"`
	NewTemperature string    `json:"newTemperature"`
	Trigger        string    `json:"trigger"` // "call", "webhook_call", "visit_scheduled", "visit_completed", "manual_edit"
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// FollowUpScheduled is published after a follow-up task was committed.
type FollowUpScheduled struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	AgentID  uuid.UUID `json:"agentId"`
	TaskType string    `json:"taskType"`
}

func (e FollowUpScheduled) EventName() string { return "leads.followup.scheduled" }

// WebhookCallDiscarded is published when an inbound telephony event could not
// be resolved to a lead and agent and was dropped. The provider has already
// been acknowledged; this event exists for operational visibility only.
type WebhookCallDiscarded struct {
	BaseEvent
	Reason   string `json:"reason"`
	LeadKey  string `json:"leadKey"`
	AgentKey string `json:"agentKey"`
	CallID   string `json:"callId,omitempty"`
}

func (e WebhookCallDiscarded) EventName() string { return "telephony.webhook.discarded" }
