package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CallRecordState is the explicit lifecycle of a call log row.
const (
	CallRecordActive   = "active"
	CallRecordArchived = "archived"
	CallRecordDeleted  = "deleted"
)

type CallLog struct {
	ID                  uuid.UUID
	LeadID              uuid.UUID
	AgentID             uuid.UUID
	CallStatus          string
	CallDate            time.Time
	DurationSeconds     *int
	Notes               *string
	CallbackScheduledAt *time.Time
	RejectionReason     *string
	RecordState         string
	CreatedAt           time.Time
}

type SiteVisit struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	ConductedBy  uuid.UUID
	PropertyName *string
	ScheduledAt  time.Time
	Status       string
	Rating       *int
	Feedback     string
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type FollowUpTask struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	AgentID     uuid.UUID
	TaskType    string
	ScheduledAt time.Time
	Notes       string
	CreatedAt   time.Time
}

type ActivityEntry struct {
	ID         uuid.UUID
	ActorID    uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Details    map[string]any
	CreatedAt  time.Time
}

const callLogColumns = `id, lead_id, agent_id, call_status, call_date, duration_seconds,
		notes, callback_scheduled_at, rejection_reason, record_state, created_at`

func scanCallLog(row pgx.Row) (CallLog, error) {
	var c CallLog
	err := row.Scan(
		&c.ID, &c.LeadID, &c.AgentID, &c.CallStatus, &c.CallDate, &c.DurationSeconds,
		&c.Notes, &c.CallbackScheduledAt, &c.RejectionReason, &c.RecordState, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CallLog{}, ErrNotFound
	}
	return c, err
}

const siteVisitColumns = `id, lead_id, conducted_by, property_name, scheduled_at, status,
		rating, feedback, notes, created_at, updated_at`

func scanSiteVisit(row pgx.Row) (SiteVisit, error) {
	var v SiteVisit
	err := row.Scan(
		&v.ID, &v.LeadID, &v.ConductedBy, &v.PropertyName, &v.ScheduledAt, &v.Status,
		&v.Rating, &v.Feedback, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return SiteVisit{}, ErrNotFound
	}
	return v, err
}

// ListCallLogs returns the non-deleted call logs for a lead, newest first.
// Archived rows are included only when includeArchived is set.
func (r *Repository) ListCallLogs(ctx context.Context, leadID uuid.UUID, includeArchived bool) ([]CallLog, error) {
	states := []string{CallRecordActive}
	if includeArchived {
		states = append(states, CallRecordArchived)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+callLogColumns+`
		FROM call_logs
		WHERE lead_id = $1 AND record_state = ANY($2)
		ORDER BY call_date DESC
	`, leadID, states)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]CallLog, 0)
	for rows.Next() {
		c, err := scanCallLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, c)
	}
	return logs, rows.Err()
}

func (r *Repository) GetCallLog(ctx context.Context, id uuid.UUID) (CallLog, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+callLogColumns+` FROM call_logs WHERE id = $1`, id)
	return scanCallLog(row)
}

// SetCallRecordState moves a call log between active/archived/deleted.
// Deleted rows stay deleted.
func (r *Repository) SetCallRecordState(ctx context.Context, id uuid.UUID, state string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_logs SET record_state = $2
		WHERE id = $1 AND record_state <> $3
	`, id, state, CallRecordDeleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetSiteVisit(ctx context.Context, id uuid.UUID) (SiteVisit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+siteVisitColumns+` FROM site_visits WHERE id = $1`, id)
	return scanSiteVisit(row)
}

func (r *Repository) ListSiteVisits(ctx context.Context, leadID uuid.UUID) ([]SiteVisit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+siteVisitColumns+`
		FROM site_visits
		WHERE lead_id = $1
		ORDER BY scheduled_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := make([]SiteVisit, 0)
	for rows.Next() {
		v, err := scanSiteVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// ListActivity returns the audit trail for a lead, newest first.
func (r *Repository) ListActivity(ctx context.Context, leadID uuid.UUID, limit int) ([]ActivityEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, entity_type, entity_id, action, details, created_at
		FROM activity_logs
		WHERE (entity_type = 'lead' AND entity_id = $1)
		   OR details->>'leadId' = $1::text
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]ActivityEntry, 0)
	for rows.Next() {
		var (
			e   ActivityEntry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.EntityType, &e.EntityID, &e.Action, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListDueFollowUps returns follow-up tasks due at or before the given time.
// When agentID is nil, tasks for all agents are returned.
func (r *Repository) ListDueFollowUps(ctx context.Context, agentID *uuid.UUID, due time.Time, limit int) ([]FollowUpTask, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, lead_id, agent_id, task_type, scheduled_at, notes, created_at
		FROM follow_up_tasks
		WHERE scheduled_at <= $1`
	args := []any{due}
	if agentID != nil {
		args = append(args, *agentID)
		query += ` AND agent_id = $2`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY scheduled_at ASC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]FollowUpTask, 0)
	for rows.Next() {
		var t FollowUpTask
		if err := rows.Scan(&t.ID, &t.LeadID, &t.AgentID, &t.TaskType, &t.ScheduledAt, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
