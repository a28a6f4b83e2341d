package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence surface the lifecycle service depends on.
// *Repository implements it; tests substitute fakes.
type Store interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ListLeads(ctx context.Context, filter ListLeadsFilter) ([]Lead, error)
	StageMetrics(ctx context.Context) ([]StageMetric, error)

	ApplyCallEvent(ctx context.Context, p ApplyCallEventParams) (CallLog, *FollowUpTask, error)
	ApplyVisitScheduled(ctx context.Context, p ApplyVisitScheduledParams) (SiteVisit, error)
	ApplyVisitOutcome(ctx context.Context, p ApplyVisitOutcomeParams) (SiteVisit, error)
	ApplyLeadEdit(ctx context.Context, leadID uuid.UUID, params UpdateLeadParams, actorID uuid.UUID, details map[string]any) (Lead, error)

	GetCallLog(ctx context.Context, id uuid.UUID) (CallLog, error)
	ListCallLogs(ctx context.Context, leadID uuid.UUID, includeArchived bool) ([]CallLog, error)
	SetCallRecordState(ctx context.Context, id uuid.UUID, state string) error

	GetSiteVisit(ctx context.Context, id uuid.UUID) (SiteVisit, error)
	ListSiteVisits(ctx context.Context, leadID uuid.UUID) ([]SiteVisit, error)

	ListActivity(ctx context.Context, leadID uuid.UUID, limit int) ([]ActivityEntry, error)
	RecordActivity(ctx context.Context, actorID uuid.UUID, entityType string, entityID uuid.UUID, action string, details map[string]any) error

	ListDueFollowUps(ctx context.Context, agentID *uuid.UUID, due time.Time, limit int) ([]FollowUpTask, error)
}

var _ Store = (*Repository)(nil)
