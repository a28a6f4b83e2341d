package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"crm_pipeline_backend/internal/events"
	"crm_pipeline_backend/internal/leads/domain"
	"crm_pipeline_backend/internal/leads/repository"
	"crm_pipeline_backend/platform/apperr"
	"crm_pipeline_backend/platform/httpkit"
	"crm_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	leads  map[uuid.UUID]repository.Lead
	visits map[uuid.UUID]repository.SiteVisit
	calls  map[uuid.UUID]repository.CallLog

	lastCallParams   *repository.ApplyCallEventParams
	lastVisitOutcome *repository.ApplyVisitOutcomeParams
	lastListFilter   repository.ListLeadsFilter
	callStates       map[uuid.UUID]string
	activities       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:      make(map[uuid.UUID]repository.Lead),
		visits:     make(map[uuid.UUID]repository.SiteVisit),
		calls:      make(map[uuid.UUID]repository.CallLog),
		callStates: make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) Create(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	lead := repository.Lead{
		ID:           uuid.New(),
		Name:         p.Name,
		Phone:        p.Phone,
		Stage:        p.Stage,
		Temperature:  p.Temperature,
		AssignedToID: p.AssignedToID,
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) ListLeads(_ context.Context, filter repository.ListLeadsFilter) ([]repository.Lead, error) {
	f.lastListFilter = filter
	return nil, nil
}

func (f *fakeStore) StageMetrics(context.Context) ([]repository.StageMetric, error) {
	return nil, nil
}

func (f *fakeStore) applyLeadState(id uuid.UUID, u repository.LeadStateUpdate) {
	lead := f.leads[id]
	lead.Stage = u.Stage
	lead.Temperature = u.Temperature
	if u.LostReason != nil {
		lead.LostReason = u.LostReason
	}
	if u.SetNextFollowup {
		lead.NextFollowupAt = u.NextFollowupAt
	}
	if u.TouchLastContacted {
		at := u.ContactedAt
		lead.LastContactedAt = &at
	}
	f.leads[id] = lead
}

func (f *fakeStore) ApplyCallEvent(_ context.Context, p repository.ApplyCallEventParams) (repository.CallLog, *repository.FollowUpTask, error) {
	f.lastCallParams = &p
	f.applyLeadState(p.LeadID, p.Lead)
	call := repository.CallLog{
		ID:          uuid.New(),
		LeadID:      p.LeadID,
		AgentID:     p.Call.AgentID,
		CallStatus:  p.Call.CallStatus,
		CallDate:    p.Call.CallDate,
		RecordState: repository.CallRecordActive,
	}
	f.calls[call.ID] = call
	var task *repository.FollowUpTask
	if p.FollowUp != nil {
		task = &repository.FollowUpTask{
			ID:          uuid.New(),
			LeadID:      p.LeadID,
			AgentID:     p.FollowUp.AgentID,
			TaskType:    p.FollowUp.TaskType,
			ScheduledAt: p.FollowUp.ScheduledAt,
			Notes:       p.FollowUp.Notes,
		}
	}
	return call, task, nil
}

func (f *fakeStore) ApplyVisitScheduled(_ context.Context, p repository.ApplyVisitScheduledParams) (repository.SiteVisit, error) {
	f.applyLeadState(p.LeadID, p.Lead)
	visit := repository.SiteVisit{
		ID:          uuid.New(),
		LeadID:      p.LeadID,
		ConductedBy: p.Visit.ConductedBy,
		ScheduledAt: p.Visit.ScheduledAt,
		Status:      "scheduled",
	}
	f.visits[visit.ID] = visit
	return visit, nil
}

func (f *fakeStore) ApplyVisitOutcome(_ context.Context, p repository.ApplyVisitOutcomeParams) (repository.SiteVisit, error) {
	f.lastVisitOutcome = &p
	f.applyLeadState(p.LeadID, p.Lead)
	visit := f.visits[p.VisitID]
	visit.Status = p.Visit.Status
	visit.Rating = p.Visit.Rating
	if p.Visit.SetFeedback {
		visit.Feedback = p.Visit.Feedback
	}
	if p.Visit.Notes != nil {
		visit.Notes = p.Visit.Notes
	}
	f.visits[p.VisitID] = visit
	return visit, nil
}

func (f *fakeStore) ApplyLeadEdit(_ context.Context, leadID uuid.UUID, params repository.UpdateLeadParams, _ uuid.UUID, _ map[string]any) (repository.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if params.Stage != nil {
		lead.Stage = *params.Stage
	}
	if params.Temperature != nil {
		lead.Temperature = *params.Temperature
	}
	if params.AssignedToID != nil {
		lead.AssignedToID = *params.AssignedToID
	}
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeStore) GetCallLog(_ context.Context, id uuid.UUID) (repository.CallLog, error) {
	call, ok := f.calls[id]
	if !ok {
		return repository.CallLog{}, repository.ErrNotFound
	}
	return call, nil
}

func (f *fakeStore) ListCallLogs(context.Context, uuid.UUID, bool) ([]repository.CallLog, error) {
	return nil, nil
}

func (f *fakeStore) SetCallRecordState(_ context.Context, id uuid.UUID, state string) error {
	f.callStates[id] = state
	return nil
}

func (f *fakeStore) GetSiteVisit(_ context.Context, id uuid.UUID) (repository.SiteVisit, error) {
	visit, ok := f.visits[id]
	if !ok {
		return repository.SiteVisit{}, repository.ErrNotFound
	}
	return visit, nil
}

func (f *fakeStore) ListSiteVisits(context.Context, uuid.UUID) ([]repository.SiteVisit, error) {
	return nil, nil
}

func (f *fakeStore) ListActivity(context.Context, uuid.UUID, int) ([]repository.ActivityEntry, error) {
	return nil, nil
}

func (f *fakeStore) RecordActivity(_ context.Context, _ uuid.UUID, _ string, _ uuid.UUID, action string, _ map[string]any) error {
	f.activities = append(f.activities, action)
	return nil
}

func (f *fakeStore) ListDueFollowUps(context.Context, *uuid.UUID, time.Time, int) ([]repository.FollowUpTask, error) {
	return nil, nil
}

var _ repository.Store = (*fakeStore)(nil)

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

func newTestService(store *fakeStore, bus *fakeBus) *Service {
	svc := New(store, domain.NewPolicy(domain.DefaultProgression()), bus, nil, logger.New("test"))
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func seedLead(store *fakeStore, stage, temperature string, agentID uuid.UUID) repository.Lead {
	lead := repository.Lead{
		ID:           uuid.New(),
		Name:         "Asha Verma",
		Phone:        "+919876543210",
		Stage:        stage,
		Temperature:  temperature,
		AssignedToID: agentID,
	}
	store.leads[lead.ID] = lead
	return lead
}

func TestRecordCallPositiveConnect(t *testing.T) {
	store := newFakeStore()
	bus := &fakeBus{}
	svc := newTestService(store, bus)

	agentID := uuid.New()
	lead := seedLead(store, "new", "cold", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	result, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome: domain.OutcomeConnectedPositive,
	})
	if err != nil {
		t.Fatalf("RecordCall: %v", err)
	}
	if result.Lead.Stage != "contacted" || result.Lead.Temperature != "hot" {
		t.Errorf("lead state = %s/%s, want contacted/hot", result.Lead.Stage, result.Lead.Temperature)
	}
	if result.FollowUp != nil {
		t.Errorf("expected no follow-up task, got %s", result.FollowUp.TaskType)
	}
	if result.Lead.LastContactedAt == nil {
		t.Error("expected last contacted timestamp to be set")
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	changed, ok := bus.published[0].(events.LeadStageChanged)
	if !ok {
		t.Fatalf("published %T, want LeadStageChanged", bus.published[0])
	}
	if changed.OldStage != "new" || changed.NewStage != "contacted" || changed.Trigger != "call" {
		t.Errorf("unexpected event payload: %+v", changed)
	}
}

func TestRecordCallNotConnectedSchedulesRetry(t *testing.T) {
	store := newFakeStore()
	bus := &fakeBus{}
	svc := newTestService(store, bus)

	agentID := uuid.New()
	lead := seedLead(store, "contacted", "warm", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	result, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome: domain.OutcomeNotConnected,
	})
	if err != nil {
		t.Fatalf("RecordCall: %v", err)
	}
	if result.Lead.Stage != "contacted" || result.Lead.Temperature != "warm" {
		t.Errorf("lead state changed to %s/%s, want unchanged", result.Lead.Stage, result.Lead.Temperature)
	}
	if result.FollowUp == nil {
		t.Fatal("expected a retry_call follow-up task")
	}
	if result.FollowUp.TaskType != string(domain.TaskRetryCall) {
		t.Errorf("task type = %s, want retry_call", result.FollowUp.TaskType)
	}
	want := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if !result.FollowUp.ScheduledAt.Equal(want) {
		t.Errorf("task scheduled at %v, want %v", result.FollowUp.ScheduledAt, want)
	}
	// No stage change but a follow-up was created.
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.FollowUpScheduled); !ok {
		t.Errorf("published %T, want FollowUpScheduled", bus.published[0])
	}
}

func TestRecordCallCallbackAtRequestedTime(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "new", "cold", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	callbackAt := time.Date(2026, 3, 12, 17, 30, 0, 0, time.UTC)
	result, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome:    domain.OutcomeConnectedCallback,
		CallbackAt: &callbackAt,
	})
	if err != nil {
		t.Fatalf("RecordCall: %v", err)
	}
	if result.Lead.Stage != "contacted" {
		t.Errorf("stage = %s, want contacted", result.Lead.Stage)
	}
	if result.FollowUp == nil || !result.FollowUp.ScheduledAt.Equal(callbackAt) {
		t.Fatalf("expected callback task at %v, got %+v", callbackAt, result.FollowUp)
	}
	if result.Lead.NextFollowupAt == nil || !result.Lead.NextFollowupAt.Equal(callbackAt) {
		t.Errorf("next follow-up = %v, want %v", result.Lead.NextFollowupAt, callbackAt)
	}
}

func TestRecordCallNotInterestedDefaultReason(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "negotiation", "hot", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	result, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome: domain.OutcomeNotInterested,
	})
	if err != nil {
		t.Fatalf("RecordCall: %v", err)
	}
	if result.Lead.Stage != "closed" {
		t.Errorf("stage = %s, want closed", result.Lead.Stage)
	}
	if result.Lead.LostReason == nil || *result.Lead.LostReason != domain.DefaultLostReason {
		t.Errorf("lost reason = %v, want default", result.Lead.LostReason)
	}
}

func TestRecordCallRejectsUnknownOutcome(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "new", "cold", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	_, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome: "wrong_number",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if store.lastCallParams != nil {
		t.Error("no call should be persisted for an unknown outcome")
	}
}

func TestRecordCallForbiddenForOtherAgent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	lead := seedLead(store, "new", "cold", uuid.New())
	identity := httpkit.NewIdentity(uuid.New(), httpkit.RoleSalesAgent)

	_, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome: domain.OutcomeConnectedPositive,
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestRecordCallManagerBypassesOwnership(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	lead := seedLead(store, "new", "cold", uuid.New())
	identity := httpkit.NewIdentity(uuid.New(), httpkit.RoleSalesManager)

	if _, err := svc.RecordCall(context.Background(), identity, lead.ID, RecordCallInput{
		Outcome: domain.OutcomeConnectedPositive,
	}); err != nil {
		t.Fatalf("RecordCall as manager: %v", err)
	}
}

func TestCompleteVisitAppendsFeedbackHistory(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "site_visit", "warm", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	visit := repository.SiteVisit{
		ID:       uuid.New(),
		LeadID:   lead.ID,
		Status:   "scheduled",
		Feedback: "First visit went well — COMPLETED [2026-03-01T10:00:00Z]",
	}
	store.visits[visit.ID] = visit

	rating := 4
	updated, err := svc.CompleteVisit(context.Background(), identity, visit.ID, CompleteVisitInput{
		Rating:   &rating,
		Feedback: "Liked the corner unit",
	})
	if err != nil {
		t.Fatalf("CompleteVisit: %v", err)
	}
	if updated.Status != "completed" {
		t.Errorf("status = %s, want completed", updated.Status)
	}
	if !strings.HasPrefix(updated.Feedback, visit.Feedback) {
		t.Error("prior feedback history was rewritten")
	}
	if !strings.Contains(updated.Feedback, "Liked the corner unit — COMPLETED [") {
		t.Errorf("new entry missing from feedback: %q", updated.Feedback)
	}
	if got := store.leads[lead.ID]; got.Stage != "completed" || got.Temperature != "hot" {
		t.Errorf("lead state = %s/%s, want completed/hot", got.Stage, got.Temperature)
	}
}

func TestCompleteVisitTwiceConflicts(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "site_visit", "warm", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	visit := repository.SiteVisit{ID: uuid.New(), LeadID: lead.ID, Status: "completed"}
	store.visits[visit.ID] = visit

	_, err := svc.CompleteVisit(context.Background(), identity, visit.ID, CompleteVisitInput{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCompleteVisitStageOverride(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "site_visit", "warm", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	visit := repository.SiteVisit{ID: uuid.New(), LeadID: lead.ID, Status: "scheduled"}
	store.visits[visit.ID] = visit

	next := domain.StageNegotiation
	if _, err := svc.CompleteVisit(context.Background(), identity, visit.ID, CompleteVisitInput{
		NextStage: &next,
	}); err != nil {
		t.Fatalf("CompleteVisit: %v", err)
	}
	if got := store.leads[lead.ID]; got.Stage != "negotiation" || got.Temperature != "hot" {
		t.Errorf("lead state = %s/%s, want negotiation/hot", got.Stage, got.Temperature)
	}
}

func TestEditVisitOutcomeRequiresCompletedVisit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "site_visit", "warm", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	visit := repository.SiteVisit{ID: uuid.New(), LeadID: lead.ID, Status: "scheduled"}
	store.visits[visit.ID] = visit

	_, err := svc.EditVisitOutcome(context.Background(), identity, visit.ID, EditVisitOutcomeInput{Rating: 3})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestEditVisitOutcomeKeepsFeedback(t *testing.T) {
	store := newFakeStore()
	bus := &fakeBus{}
	svc := newTestService(store, bus)

	agentID := uuid.New()
	lead := seedLead(store, "completed", "warm", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	visit := repository.SiteVisit{
		ID:       uuid.New(),
		LeadID:   lead.ID,
		Status:   "completed",
		Feedback: "Good visit — COMPLETED [2026-03-01T10:00:00Z]",
	}
	store.visits[visit.ID] = visit

	updated, err := svc.EditVisitOutcome(context.Background(), identity, visit.ID, EditVisitOutcomeInput{Rating: 2})
	if err != nil {
		t.Fatalf("EditVisitOutcome: %v", err)
	}
	if updated.Feedback != visit.Feedback {
		t.Error("rating edit must not touch the feedback history")
	}
	if updated.Rating == nil || *updated.Rating != 2 {
		t.Errorf("rating = %v, want 2", updated.Rating)
	}
	if got := store.leads[lead.ID]; got.Temperature != "cold" {
		t.Errorf("temperature = %s, want cold for rating 2", got.Temperature)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	changed, ok := bus.published[0].(events.LeadStageChanged)
	if !ok {
		t.Fatalf("published %T, want LeadStageChanged", bus.published[0])
	}
	if changed.Trigger != "visit_rating_edited" {
		t.Errorf("trigger = %s, want visit_rating_edited", changed.Trigger)
	}
}

func TestEditLeadAllowList(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "new", "cold", agentID)
	otherAgent := uuid.New()

	agent := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)
	_, err := svc.EditLead(context.Background(), agent, lead.ID, repository.UpdateLeadParams{
		AssignedToID: &otherAgent,
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("agent reassignment err = %v, want forbidden", err)
	}

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleSalesManager)
	updated, err := svc.EditLead(context.Background(), manager, lead.ID, repository.UpdateLeadParams{
		AssignedToID: &otherAgent,
	})
	if err != nil {
		t.Fatalf("manager reassignment: %v", err)
	}
	if updated.AssignedToID != otherAgent {
		t.Errorf("assigned to %s, want %s", updated.AssignedToID, otherAgent)
	}
}

func TestEditLeadRejectsUnknownStage(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "new", "cold", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	bad := "archived"
	_, err := svc.EditLead(context.Background(), identity, lead.ID, repository.UpdateLeadParams{Stage: &bad})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestListLeadsScopesUnprivilegedCaller(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	other := uuid.New()
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	if _, err := svc.ListLeads(context.Background(), identity, repository.ListLeadsFilter{AssignedToID: &other}); err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if store.lastListFilter.AssignedToID == nil || *store.lastListFilter.AssignedToID != agentID {
		t.Errorf("filter agent = %v, want caller %s", store.lastListFilter.AssignedToID, agentID)
	}

	admin := httpkit.NewIdentity(uuid.New(), httpkit.RoleAdmin)
	if _, err := svc.ListLeads(context.Background(), admin, repository.ListLeadsFilter{AssignedToID: &other}); err != nil {
		t.Fatalf("ListLeads as admin: %v", err)
	}
	if store.lastListFilter.AssignedToID == nil || *store.lastListFilter.AssignedToID != other {
		t.Errorf("admin filter was overridden: %v", store.lastListFilter.AssignedToID)
	}
}

func TestDeleteCallLogManagersOnly(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "contacted", "warm", agentID)
	call := repository.CallLog{ID: uuid.New(), LeadID: lead.ID, AgentID: agentID}
	store.calls[call.ID] = call

	agent := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)
	if err := svc.DeleteCallLog(context.Background(), agent, call.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("agent delete err = %v, want forbidden", err)
	}

	if err := svc.ArchiveCallLog(context.Background(), agent, call.ID); err != nil {
		t.Fatalf("agent archive: %v", err)
	}
	if store.callStates[call.ID] != repository.CallRecordArchived {
		t.Errorf("record state = %s, want archived", store.callStates[call.ID])
	}

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleSalesManager)
	if err := svc.DeleteCallLog(context.Background(), manager, call.ID); err != nil {
		t.Fatalf("manager delete: %v", err)
	}
	if store.callStates[call.ID] != repository.CallRecordDeleted {
		t.Errorf("record state = %s, want deleted", store.callStates[call.ID])
	}
}

func TestTriggerCallWithoutDialer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	lead := seedLead(store, "new", "cold", agentID)
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	_, err := svc.TriggerCall(context.Background(), identity, lead.ID)
	if !apperr.Is(err, apperr.KindExternalDispatch) {
		t.Fatalf("err = %v, want external dispatch", err)
	}
}

func TestCreateLeadAgentCannotAssignElsewhere(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeBus{})

	agentID := uuid.New()
	other := uuid.New()
	identity := httpkit.NewIdentity(agentID, httpkit.RoleSalesAgent)

	_, err := svc.CreateLead(context.Background(), identity, CreateLeadInput{
		Name:         "Rohan Mehta",
		Phone:        "98765 43210",
		AssignedToID: &other,
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}

	lead, err := svc.CreateLead(context.Background(), identity, CreateLeadInput{
		Name:  "Rohan Mehta",
		Phone: "98765 43210",
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if lead.AssignedToID != agentID {
		t.Errorf("assigned to %s, want caller %s", lead.AssignedToID, agentID)
	}
	if lead.Stage != "new" || lead.Temperature != "cold" {
		t.Errorf("new lead state = %s/%s, want new/cold", lead.Stage, lead.Temperature)
	}
}
