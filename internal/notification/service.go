// Package notification exposes the polling surface for due follow-up work.
// The engine never executes reminders itself; clients poll this read-only
// endpoint and drive their own alerting.
package notification

import (
	"context"
	"time"

	"crm_pipeline_backend/internal/leads/repository"
	"crm_pipeline_backend/platform/httpkit"

	"github.com/google/uuid"
)

// TaskSource lists follow-up tasks that have come due.
type TaskSource interface {
	ListDueFollowUps(ctx context.Context, agentID *uuid.UUID, due time.Time, limit int) ([]repository.FollowUpTask, error)
}

type Service struct {
	tasks TaskSource
	now   func() time.Time
}

func NewService(tasks TaskSource) *Service {
	return &Service{tasks: tasks, now: time.Now}
}

const defaultLimit = 50

// DueFollowUps returns tasks due at or before now. Unprivileged callers only
// see their own queue; admin and sales_manager may query any agent or all.
func (s *Service) DueFollowUps(ctx context.Context, identity httpkit.Identity, agentFilter *uuid.UUID, limit int) ([]repository.FollowUpTask, error) {
	if !identity.IsPrivileged() {
		own := identity.AgentID()
		agentFilter = &own
	}
	if limit <= 0 || limit > 200 {
		limit = defaultLimit
	}
	return s.tasks.ListDueFollowUps(ctx, agentFilter, s.now(), limit)
}
