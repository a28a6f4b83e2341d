// Package service orchestrates the lead lifecycle. Every mutating operation
// runs the same shape: load, guard, apply the stage policy and the follow-up
// scheduler, persist atomically through the repository, publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_pipeline_backend/internal/events"
	"crm_pipeline_backend/internal/leads/domain"
	"crm_pipeline_backend/internal/leads/repository"
	"crm_pipeline_backend/platform/apperr"
	"crm_pipeline_backend/platform/httpkit"
	"crm_pipeline_backend/platform/logger"
	"crm_pipeline_backend/platform/phone"

	"github.com/google/uuid"
)

// Dialer dispatches an outbound call through the telephony provider. The
// dispatch happens outside any transaction and never changes CRM state.
type Dialer interface {
	Dial(ctx context.Context, agentID uuid.UUID, leadPhone string) (string, error)
}

type Service struct {
	repo   repository.Store
	policy *domain.Policy
	bus    events.Bus
	dialer Dialer
	log    *logger.Logger
	now    func() time.Time
}

// New creates the lifecycle service. dialer may be nil when no provider is
// configured; TriggerCall then fails with ExternalDispatch.
func New(repo repository.Store, policy *domain.Policy, bus events.Bus, dialer Dialer, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		bus:    bus,
		dialer: dialer,
		log:    log,
		now:    time.Now,
	}
}

type CreateLeadInput struct {
	Name              string
	Phone             string
	Email             *string
	BudgetMin         *int64
	BudgetMax         *int64
	PreferredLocation *string
	Notes             *string
	AssignedToID      *uuid.UUID
}

func (s *Service) CreateLead(ctx context.Context, identity httpkit.Identity, in CreateLeadInput) (repository.Lead, error) {
	assignedTo := identity.AgentID()
	if in.AssignedToID != nil {
		if !identity.IsPrivileged() && *in.AssignedToID != identity.AgentID() {
			return repository.Lead{}, apperr.Forbidden("cannot assign leads to another agent")
		}
		assignedTo = *in.AssignedToID
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Name:              in.Name,
		Phone:             phone.NormalizeE164(in.Phone),
		Email:             in.Email,
		Stage:             string(domain.StageNew),
		Temperature:       string(domain.TemperatureCold),
		BudgetMin:         in.BudgetMin,
		BudgetMax:         in.BudgetMax,
		PreferredLocation: in.PreferredLocation,
		Notes:             in.Notes,
		AssignedToID:      assignedTo,
	})
	if err != nil {
		return repository.Lead{}, fmt.Errorf("failed to create lead: %w", err)
	}

	if err := s.repo.RecordActivity(ctx, identity.AgentID(), "lead", lead.ID, "lead_created", map[string]any{
		"name": lead.Name,
	}); err != nil {
		s.log.DatabaseError("record lead_created activity", err)
	}
	return lead, nil
}

func (s *Service) GetLead(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return repository.Lead{}, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return repository.Lead{}, err
	}
	return lead, nil
}

// ListLeads scopes unprivileged callers to their own book regardless of the
// requested filter.
func (s *Service) ListLeads(ctx context.Context, identity httpkit.Identity, filter repository.ListLeadsFilter) ([]repository.Lead, error) {
	if !identity.IsPrivileged() {
		agentID := identity.AgentID()
		filter.AssignedToID = &agentID
	}
	return s.repo.ListLeads(ctx, filter)
}

func (s *Service) StageMetrics(ctx context.Context) ([]repository.StageMetric, error) {
	return s.repo.StageMetrics(ctx)
}

type RecordCallInput struct {
	Outcome         domain.CallOutcome
	CallDate        *time.Time
	DurationSeconds *int
	Notes           *string
	CallbackAt      *time.Time
	RejectionReason string
}

// CallResult is everything one committed call event produced.
type CallResult struct {
	Call     repository.CallLog
	Lead     repository.Lead
	FollowUp *repository.FollowUpTask
}

// RecordCall applies an agent-entered call outcome to the lead lifecycle.
func (s *Service) RecordCall(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID, in RecordCallInput) (CallResult, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return CallResult{}, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return CallResult{}, err
	}
	return s.applyCall(ctx, lead, identity.AgentID(), in, "call")
}

// RecordResolvedCall records a webhook-delivered call. The lead and agent were
// resolved by phone matching, so no ownership guard applies.
func (s *Service) RecordResolvedCall(ctx context.Context, leadID, agentID uuid.UUID, in RecordCallInput) (CallResult, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return CallResult{}, mapRepoErr(err)
	}
	return s.applyCall(ctx, lead, agentID, in, "webhook_call")
}

func (s *Service) applyCall(ctx context.Context, lead repository.Lead, agentID uuid.UUID, in RecordCallInput, trigger string) (CallResult, error) {
	if !domain.IsKnownOutcome(in.Outcome) {
		return CallResult{}, apperr.Validation("unknown call outcome: " + string(in.Outcome))
	}

	now := s.now()
	callDate := now
	if in.CallDate != nil {
		callDate = *in.CallDate
	}

	event := domain.EventForOutcome(in.Outcome, in.CallbackAt, in.RejectionReason)
	change := s.policy.Apply(currentState(lead), event)
	plan := domain.ScheduleFollowUp(event, now)

	update := repository.LeadStateUpdate{
		Stage:              string(change.Stage),
		Temperature:        string(change.Temperature),
		LostReason:         change.LostReason,
		SetNextFollowup:    plan.NextFollowupAt != nil,
		NextFollowupAt:     plan.NextFollowupAt,
		TouchLastContacted: plan.TouchLastContacted,
		ContactedAt:        callDate,
	}

	var followUp *repository.CreateFollowUpParams
	if plan.Task != nil {
		followUp = &repository.CreateFollowUpParams{
			AgentID:     agentID,
			TaskType:    string(plan.Task.TaskType),
			ScheduledAt: plan.Task.ScheduledAt,
			Notes:       plan.Task.Notes,
		}
	}

	var rejection *string
	if in.RejectionReason != "" {
		rejection = &in.RejectionReason
	}

	call, task, err := s.repo.ApplyCallEvent(ctx, repository.ApplyCallEventParams{
		LeadID: lead.ID,
		Lead:   update,
		Call: repository.CreateCallLogParams{
			AgentID:             agentID,
			CallStatus:          string(in.Outcome),
			CallDate:            callDate,
			DurationSeconds:     in.DurationSeconds,
			Notes:               in.Notes,
			CallbackScheduledAt: in.CallbackAt,
			RejectionReason:     rejection,
		},
		FollowUp:       followUp,
		ActorID:        agentID,
		ActivityAction: "call_recorded",
		ActivityDetails: map[string]any{
			"leadId":   lead.ID.String(),
			"outcome":  string(in.Outcome),
			"oldStage": lead.Stage,
			"newStage": string(change.Stage),
			"trigger":  trigger,
		},
	})
	if err != nil {
		return CallResult{}, mapRepoErr(err)
	}

	updated, err := s.repo.GetByID(ctx, lead.ID)
	if err != nil {
		return CallResult{}, mapRepoErr(err)
	}

	s.publishStageChange(ctx, lead, updated, agentID, trigger)
	if task != nil {
		s.bus.Publish(ctx, events.FollowUpScheduled{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			AgentID:   agentID,
			TaskType:  task.TaskType,
		})
	}
	return CallResult{Call: call, Lead: updated, FollowUp: task}, nil
}

type ScheduleVisitInput struct {
	ScheduledAt  time.Time
	PropertyName *string
	Notes        *string
}

func (s *Service) ScheduleVisit(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID, in ScheduleVisitInput) (repository.SiteVisit, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return repository.SiteVisit{}, err
	}

	change := s.policy.Apply(currentState(lead), domain.VisitScheduled{})

	visit, err := s.repo.ApplyVisitScheduled(ctx, repository.ApplyVisitScheduledParams{
		LeadID: lead.ID,
		Lead: repository.LeadStateUpdate{
			Stage:       string(change.Stage),
			Temperature: string(change.Temperature),
		},
		Visit: repository.ScheduleVisitParams{
			ConductedBy:  identity.AgentID(),
			PropertyName: in.PropertyName,
			ScheduledAt:  in.ScheduledAt,
			Notes:        in.Notes,
		},
		ActorID: identity.AgentID(),
		ActivityDetails: map[string]any{
			"leadId":      lead.ID.String(),
			"scheduledAt": in.ScheduledAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}

	updated, err := s.repo.GetByID(ctx, lead.ID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	s.publishStageChange(ctx, lead, updated, identity.AgentID(), "visit_scheduled")
	return visit, nil
}

type CompleteVisitInput struct {
	NextStage *domain.Stage
	Rating    *int
	Feedback  string
}

// CompleteVisit marks a scheduled visit completed, appending to the feedback
// history and moving the lead per the visit outcome.
func (s *Service) CompleteVisit(ctx context.Context, identity httpkit.Identity, visitID uuid.UUID, in CompleteVisitInput) (repository.SiteVisit, error) {
	visit, err := s.repo.GetSiteVisit(ctx, visitID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	if visit.Status == "completed" {
		return repository.SiteVisit{}, apperr.Conflict("site visit already completed")
	}
	lead, err := s.repo.GetByID(ctx, visit.LeadID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return repository.SiteVisit{}, err
	}
	if in.NextStage != nil && !domain.IsKnownStage(*in.NextStage) {
		return repository.SiteVisit{}, apperr.Validation("unknown stage: " + string(*in.NextStage))
	}

	change := s.policy.Apply(currentState(lead), domain.VisitCompleted{NextStage: in.NextStage, Rating: in.Rating})

	note := in.Feedback
	if note == "" {
		note = "Site visit completed"
	}
	feedback := domain.AppendCompletionFeedback(visit.Feedback, note, s.now())

	updated, err := s.repo.ApplyVisitOutcome(ctx, repository.ApplyVisitOutcomeParams{
		VisitID: visit.ID,
		LeadID:  lead.ID,
		Visit: repository.VisitOutcomeUpdate{
			Status:      "completed",
			Rating:      in.Rating,
			SetFeedback: true,
			Feedback:    feedback,
		},
		Lead: repository.LeadStateUpdate{
			Stage:       string(change.Stage),
			Temperature: string(change.Temperature),
			LostReason:  change.LostReason,
		},
		ActorID:        identity.AgentID(),
		ActivityAction: "visit_completed",
		ActivityDetails: map[string]any{
			"leadId":   lead.ID.String(),
			"oldStage": lead.Stage,
			"newStage": string(change.Stage),
		},
	})
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}

	after, err := s.repo.GetByID(ctx, lead.ID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	s.publishStageChange(ctx, lead, after, identity.AgentID(), "visit_completed")
	return updated, nil
}

type EditVisitOutcomeInput struct {
	Rating    int
	Notes     *string
	NextStage *domain.Stage
}

// EditVisitOutcome changes the rating on an already-completed visit. The
// feedback history block is never rewritten; only rating and current notes
// are replaced.
func (s *Service) EditVisitOutcome(ctx context.Context, identity httpkit.Identity, visitID uuid.UUID, in EditVisitOutcomeInput) (repository.SiteVisit, error) {
	visit, err := s.repo.GetSiteVisit(ctx, visitID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	if visit.Status != "completed" {
		return repository.SiteVisit{}, apperr.Conflict("site visit has not been completed")
	}
	lead, err := s.repo.GetByID(ctx, visit.LeadID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return repository.SiteVisit{}, err
	}
	if in.NextStage != nil && !domain.IsKnownStage(*in.NextStage) {
		return repository.SiteVisit{}, apperr.Validation("unknown stage: " + string(*in.NextStage))
	}

	change := s.policy.Apply(currentState(lead), domain.RatingEdited{Rating: in.Rating, NextStage: in.NextStage})
	rating := in.Rating

	updated, err := s.repo.ApplyVisitOutcome(ctx, repository.ApplyVisitOutcomeParams{
		VisitID: visit.ID,
		LeadID:  lead.ID,
		Visit: repository.VisitOutcomeUpdate{
			Status: visit.Status,
			Rating: &rating,
			Notes:  in.Notes,
		},
		Lead: repository.LeadStateUpdate{
			Stage:       string(change.Stage),
			Temperature: string(change.Temperature),
		},
		ActorID:        identity.AgentID(),
		ActivityAction: "visit_rating_edited",
		ActivityDetails: map[string]any{
			"leadId": lead.ID.String(),
			"rating": in.Rating,
		},
	})
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}

	after, err := s.repo.GetByID(ctx, lead.ID)
	if err != nil {
		return repository.SiteVisit{}, mapRepoErr(err)
	}
	s.publishStageChange(ctx, lead, after, identity.AgentID(), "visit_rating_edited")
	return updated, nil
}

// EditLead is a manual field patch; it bypasses the stage policy. A
// sales_agent may not reassign leads or change priority.
func (s *Service) EditLead(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID, patch repository.UpdateLeadParams) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return repository.Lead{}, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return repository.Lead{}, err
	}
	if !identity.IsPrivileged() && (patch.AssignedToID != nil || patch.IsPriority != nil) {
		return repository.Lead{}, apperr.Forbidden("only managers may reassign leads or change priority")
	}
	if patch.Stage != nil && !domain.IsKnownStage(domain.Stage(*patch.Stage)) {
		return repository.Lead{}, apperr.Validation("unknown stage: " + *patch.Stage)
	}
	if patch.Temperature != nil && !domain.IsKnownTemperature(domain.Temperature(*patch.Temperature)) {
		return repository.Lead{}, apperr.Validation("unknown temperature: " + *patch.Temperature)
	}
	if patch.Phone != nil {
		normalized := phone.NormalizeE164(*patch.Phone)
		patch.Phone = &normalized
	}

	updated, err := s.repo.ApplyLeadEdit(ctx, leadID, patch, identity.AgentID(), editDetails(patch))
	if err != nil {
		return repository.Lead{}, mapRepoErr(err)
	}
	s.publishStageChange(ctx, lead, updated, identity.AgentID(), "manual_edit")
	return updated, nil
}

func (s *Service) ListCallLogs(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID, includeArchived bool) ([]repository.CallLog, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return nil, err
	}
	return s.repo.ListCallLogs(ctx, leadID, includeArchived)
}

// ArchiveCallLog hides a call log from default listings without losing it.
func (s *Service) ArchiveCallLog(ctx context.Context, identity httpkit.Identity, callID uuid.UUID) error {
	return s.setCallState(ctx, identity, callID, repository.CallRecordArchived, "call_archived")
}

// DeleteCallLog marks a call log deleted. Managers only; the row is retained
// for audit.
func (s *Service) DeleteCallLog(ctx context.Context, identity httpkit.Identity, callID uuid.UUID) error {
	if !identity.IsPrivileged() {
		return apperr.Forbidden("only managers may delete call logs")
	}
	return s.setCallState(ctx, identity, callID, repository.CallRecordDeleted, "call_deleted")
}

func (s *Service) setCallState(ctx context.Context, identity httpkit.Identity, callID uuid.UUID, state, action string) error {
	call, err := s.repo.GetCallLog(ctx, callID)
	if err != nil {
		return mapRepoErr(err)
	}
	lead, err := s.repo.GetByID(ctx, call.LeadID)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return err
	}
	if err := s.repo.SetCallRecordState(ctx, callID, state); err != nil {
		return mapRepoErr(err)
	}
	if err := s.repo.RecordActivity(ctx, identity.AgentID(), "call_log", callID, action, map[string]any{
		"leadId": call.LeadID.String(),
	}); err != nil {
		s.log.DatabaseError("record "+action+" activity", err)
	}
	return nil
}

func (s *Service) ListSiteVisits(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID) ([]repository.SiteVisit, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return nil, err
	}
	return s.repo.ListSiteVisits(ctx, leadID)
}

func (s *Service) ListActivity(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID, limit int) ([]repository.ActivityEntry, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListActivity(ctx, leadID, limit)
}

// TriggerCall asks the telephony provider to bridge the calling agent to the
// lead. The resulting call comes back through the webhook; nothing is written
// here.
func (s *Service) TriggerCall(ctx context.Context, identity httpkit.Identity, leadID uuid.UUID) (string, error) {
	if s.dialer == nil {
		return "", apperr.ExternalDispatch("no dialer configured")
	}
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return "", mapRepoErr(err)
	}
	if err := guardLead(identity, lead); err != nil {
		return "", err
	}
	callID, err := s.dialer.Dial(ctx, identity.AgentID(), lead.Phone)
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternalDispatch, "dialer dispatch failed", err)
	}
	return callID, nil
}

func (s *Service) publishStageChange(ctx context.Context, before, after repository.Lead, actorID uuid.UUID, trigger string) {
	if before.Stage == after.Stage && before.Temperature == after.Temperature {
		return
	}
	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         after.ID,
		ActorID:        actorID,
		OldStage:       before.Stage,
		NewStage:       after.Stage,
		OldTemperature: before.Temperature,
		NewTemperature: after.Temperature,
		Trigger:        trigger,
	})
}

func currentState(lead repository.Lead) domain.State {
	return domain.State{
		Stage:       domain.Stage(lead.Stage),
		Temperature: domain.Temperature(lead.Temperature),
	}
}

func editDetails(patch repository.UpdateLeadParams) map[string]any {
	fields := make([]string, 0, 8)
	appendIf := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	appendIf("name", patch.Name != nil)
	appendIf("phone", patch.Phone != nil)
	appendIf("email", patch.Email != nil)
	appendIf("stage", patch.Stage != nil)
	appendIf("temperature", patch.Temperature != nil)
	appendIf("budgetMin", patch.BudgetMin != nil)
	appendIf("budgetMax", patch.BudgetMax != nil)
	appendIf("preferredLocation", patch.PreferredLocation != nil)
	appendIf("notes", patch.Notes != nil)
	appendIf("lostReason", patch.LostReason != nil)
	appendIf("isPriority", patch.IsPriority != nil)
	appendIf("assignedToId", patch.AssignedToID != nil)
	appendIf("nextFollowupAt", patch.NextFollowupAt != nil)
	return map[string]any{"fields": fields}
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	return err
}
