package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LeadStateUpdate is the computed mutation of a lead's lifecycle fields.
// Stage and temperature are always written together; the follow-up and contact
// timestamps are only touched when their flags are set.
type LeadStateUpdate struct {
	Stage              string
	Temperature        string
	LostReason         *string
	SetNextFollowup    bool
	NextFollowupAt     *time.Time
	TouchLastContacted bool
	ContactedAt        time.Time
}

type CreateCallLogParams struct {
	AgentID             uuid.UUID
	CallStatus          string
	CallDate            time.Time
	DurationSeconds     *int
	Notes               *string
	CallbackScheduledAt *time.Time
	RejectionReason     *string
}

type CreateFollowUpParams struct {
	AgentID     uuid.UUID
	TaskType    string
	ScheduledAt time.Time
	Notes       string
}

// ApplyCallEventParams bundles every row touched by one call event.
type ApplyCallEventParams struct {
	LeadID          uuid.UUID
	Lead            LeadStateUpdate
	Call            CreateCallLogParams
	FollowUp        *CreateFollowUpParams
	ActorID         uuid.UUID
	ActivityAction  string
	ActivityDetails map[string]any
}

// ApplyCallEvent persists one call event atomically: the lead mutation, the
// call log, the optional follow-up task, and the audit entry commit together
// or not at all. Readers never observe the call log without the lead change
// it caused.
func (r *Repository) ApplyCallEvent(ctx context.Context, p ApplyCallEventParams) (CallLog, *FollowUpTask, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return CallLog{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := updateLeadState(ctx, tx, p.LeadID, p.Lead); err != nil {
		return CallLog{}, nil, err
	}

	var call CallLog
	row := tx.QueryRow(ctx, `
		INSERT INTO call_logs (
			lead_id, agent_id, call_status, call_date, duration_seconds,
			notes, callback_scheduled_at, rejection_reason, record_state
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+callLogColumns,
		p.LeadID, p.Call.AgentID, p.Call.CallStatus, p.Call.CallDate, p.Call.DurationSeconds,
		p.Call.Notes, p.Call.CallbackScheduledAt, p.Call.RejectionReason, CallRecordActive,
	)
	call, err = scanCallLog(row)
	if err != nil {
		return CallLog{}, nil, fmt.Errorf("failed to insert call log: %w", err)
	}

	var task *FollowUpTask
	if p.FollowUp != nil {
		created, err := insertFollowUp(ctx, tx, p.LeadID, *p.FollowUp)
		if err != nil {
			return CallLog{}, nil, err
		}
		task = &created
	}

	if err := insertActivity(ctx, tx, p.ActorID, "call_log", call.ID, p.ActivityAction, p.ActivityDetails); err != nil {
		return CallLog{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CallLog{}, nil, err
	}
	return call, task, nil
}

type ScheduleVisitParams struct {
	ConductedBy  uuid.UUID
	PropertyName *string
	ScheduledAt  time.Time
	Notes        *string
}

type ApplyVisitScheduledParams struct {
	LeadID          uuid.UUID
	Lead            LeadStateUpdate
	Visit           ScheduleVisitParams
	ActorID         uuid.UUID
	ActivityDetails map[string]any
}

// ApplyVisitScheduled books a visit and applies the resulting lead state in
// one transaction.
func (r *Repository) ApplyVisitScheduled(ctx context.Context, p ApplyVisitScheduledParams) (SiteVisit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return SiteVisit{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := updateLeadState(ctx, tx, p.LeadID, p.Lead); err != nil {
		return SiteVisit{}, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO site_visits (lead_id, conducted_by, property_name, scheduled_at, status, feedback, notes)
		VALUES ($1, $2, $3, $4, 'scheduled', '', $5)
		RETURNING `+siteVisitColumns,
		p.LeadID, p.Visit.ConductedBy, p.Visit.PropertyName, p.Visit.ScheduledAt, p.Visit.Notes,
	)
	visit, err := scanSiteVisit(row)
	if err != nil {
		return SiteVisit{}, fmt.Errorf("failed to insert site visit: %w", err)
	}

	if err := insertActivity(ctx, tx, p.ActorID, "site_visit", visit.ID, "visit_scheduled", p.ActivityDetails); err != nil {
		return SiteVisit{}, err
	}

	return visit, tx.Commit(ctx)
}

// VisitOutcomeUpdate carries the visit-row changes for a completion or a
// later outcome edit. Feedback is only rewritten when SetFeedback is true,
// which keeps the historical block intact on rating-only edits.
type VisitOutcomeUpdate struct {
	Status      string
	Rating      *int
	SetFeedback bool
	Feedback    string
	Notes       *string
}

type ApplyVisitOutcomeParams struct {
	VisitID         uuid.UUID
	LeadID          uuid.UUID
	Visit           VisitOutcomeUpdate
	Lead            LeadStateUpdate
	ActorID         uuid.UUID
	ActivityAction  string
	ActivityDetails map[string]any
}

// ApplyVisitOutcome updates a visit's outcome and the owning lead's state in
// one transaction.
func (r *Repository) ApplyVisitOutcome(ctx context.Context, p ApplyVisitOutcomeParams) (SiteVisit, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return SiteVisit{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := updateLeadState(ctx, tx, p.LeadID, p.Lead); err != nil {
		return SiteVisit{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE site_visits SET
			status = $2,
			rating = $3,
			feedback = CASE WHEN $4 THEN $5 ELSE feedback END,
			notes = COALESCE($6, notes),
			updated_at = now()
		WHERE id = $1
		RETURNING `+siteVisitColumns,
		p.VisitID, p.Visit.Status, p.Visit.Rating, p.Visit.SetFeedback, p.Visit.Feedback, p.Visit.Notes,
	)
	visit, err := scanSiteVisit(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SiteVisit{}, ErrNotFound
		}
		return SiteVisit{}, fmt.Errorf("failed to update site visit: %w", err)
	}

	if err := insertActivity(ctx, tx, p.ActorID, "site_visit", visit.ID, p.ActivityAction, p.ActivityDetails); err != nil {
		return SiteVisit{}, err
	}

	return visit, tx.Commit(ctx)
}

// UpdateLeadParams is a field-level patch for manual edits. Nil means "leave
// unchanged"; manual edits bypass the stage policy entirely.
type UpdateLeadParams struct {
	Name              *string
	Phone             *string
	Email             *string
	Stage             *string
	Temperature       *string
	BudgetMin         *int64
	BudgetMax         *int64
	PreferredLocation *string
	Notes             *string
	LostReason        *string
	IsPriority        *bool
	AssignedToID      *uuid.UUID
	NextFollowupAt    *time.Time
}

// ApplyLeadEdit patches lead fields and records the audit entry in the same
// transaction.
func (r *Repository) ApplyLeadEdit(ctx context.Context, leadID uuid.UUID, params UpdateLeadParams, actorID uuid.UUID, details map[string]any) (Lead, error) {
	sets := make([]string, 0, 13)
	args := []any{leadID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Phone != nil {
		add("phone", *params.Phone)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Stage != nil {
		add("stage", *params.Stage)
	}
	if params.Temperature != nil {
		add("temperature", *params.Temperature)
	}
	if params.BudgetMin != nil {
		add("budget_min", *params.BudgetMin)
	}
	if params.BudgetMax != nil {
		add("budget_max", *params.BudgetMax)
	}
	if params.PreferredLocation != nil {
		add("preferred_location", *params.PreferredLocation)
	}
	if params.Notes != nil {
		add("notes", *params.Notes)
	}
	if params.LostReason != nil {
		add("lost_reason", *params.LostReason)
	}
	if params.IsPriority != nil {
		add("is_priority", *params.IsPriority)
	}
	if params.AssignedToID != nil {
		add("assigned_to_id", *params.AssignedToID)
	}
	if params.NextFollowupAt != nil {
		add("next_followup_at", *params.NextFollowupAt)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, leadID)
	}
	sets = append(sets, "updated_at = now()")

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`UPDATE leads SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+leadColumns,
		args...,
	)
	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, err
	}

	if err := insertActivity(ctx, tx, actorID, "lead", leadID, "lead_edited", details); err != nil {
		return Lead{}, err
	}

	return lead, tx.Commit(ctx)
}

// RecordActivity appends a standalone audit entry outside any apply
// transaction (e.g. lead creation).
func (r *Repository) RecordActivity(ctx context.Context, actorID uuid.UUID, entityType string, entityID uuid.UUID, action string, details map[string]any) error {
	return insertActivity(ctx, r.pool, actorID, entityType, entityID, action, details)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, so activity inserts
// can ride inside apply transactions or stand alone.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func updateLeadState(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, u LeadStateUpdate) error {
	tag, err := tx.Exec(ctx, `
		UPDATE leads SET
			stage = $2,
			temperature = $3,
			lost_reason = COALESCE($4, lost_reason),
			next_followup_at = CASE WHEN $5 THEN $6 ELSE next_followup_at END,
			last_contacted_at = CASE WHEN $7 THEN $8 ELSE last_contacted_at END,
			updated_at = now()
		WHERE id = $1
	`, leadID, u.Stage, u.Temperature, u.LostReason,
		u.SetNextFollowup, u.NextFollowupAt,
		u.TouchLastContacted, nullableTime(u.TouchLastContacted, u.ContactedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update lead state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertFollowUp(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, p CreateFollowUpParams) (FollowUpTask, error) {
	var t FollowUpTask
	err := tx.QueryRow(ctx, `
		INSERT INTO follow_up_tasks (lead_id, agent_id, task_type, scheduled_at, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, agent_id, task_type, scheduled_at, notes, created_at
	`, leadID, p.AgentID, p.TaskType, p.ScheduledAt, p.Notes).Scan(
		&t.ID, &t.LeadID, &t.AgentID, &t.TaskType, &t.ScheduledAt, &t.Notes, &t.CreatedAt,
	)
	if err != nil {
		return FollowUpTask{}, fmt.Errorf("failed to insert follow-up task: %w", err)
	}
	return t, nil
}

func insertActivity(ctx context.Context, q execer, actorID uuid.UUID, entityType string, entityID uuid.UUID, action string, details map[string]any) error {
	var raw []byte
	if details != nil {
		encoded, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode activity details: %w", err)
		}
		raw = encoded
	}

	_, err := q.Exec(ctx, `
		INSERT INTO activity_logs (actor_id, entity_type, entity_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
	`, actorID, entityType, entityID, action, raw)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

func nullableTime(set bool, t time.Time) *time.Time {
	if !set {
		return nil
	}
	return &t
}
