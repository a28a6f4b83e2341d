package telephony

import (
	"context"
	"errors"
	"fmt"

	"crm_pipeline_backend/internal/events"
	leadsservice "crm_pipeline_backend/internal/leads/service"
	"crm_pipeline_backend/platform/logger"
	"crm_pipeline_backend/platform/phone"

	"github.com/google/uuid"
)

// CallRecorder is the lifecycle entry point for resolved webhook calls.
type CallRecorder interface {
	RecordResolvedCall(ctx context.Context, leadID, agentID uuid.UUID, in leadsservice.RecordCallInput) (leadsservice.CallResult, error)
}

// PhoneResolver resolves leads and agents by phone match key.
type PhoneResolver interface {
	FindLeadByPhoneKey(ctx context.Context, matchKey string) (uuid.UUID, error)
	FindAgentByPhoneKey(ctx context.Context, matchKey string) (uuid.UUID, error)
}

// CallEvent is the provider's call-status payload after field normalization.
type CallEvent struct {
	CallTo       string
	AgentPhone   string
	DialStatus   string
	Filename     string
	AnsweredTime string
	CallID       string
}

type Service struct {
	recorder CallRecorder
	resolver PhoneResolver
	bus      events.Bus
	log      *logger.Logger
}

func NewService(recorder CallRecorder, resolver PhoneResolver, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		recorder: recorder,
		resolver: resolver,
		bus:      bus,
		log:      log,
	}
}

// HandleCallEvent resolves the event's phone numbers and records the call
// against the matched lead. Events that cannot be resolved to exactly one
// lead and one agent are discarded; the provider retries endlessly on
// failure and a resolution miss never heals, so a discard is logged and
// published instead of failed.
func (s *Service) HandleCallEvent(ctx context.Context, event CallEvent) error {
	leadKey := phone.MatchKey(event.CallTo)
	agentKey := phone.MatchKey(event.AgentPhone)

	leadID, err := s.resolver.FindLeadByPhoneKey(ctx, leadKey)
	if err != nil {
		s.discard(ctx, discardReason("lead", err), leadKey, agentKey, event.CallID)
		return nil
	}
	agentID, err := s.resolver.FindAgentByPhoneKey(ctx, agentKey)
	if err != nil {
		s.discard(ctx, discardReason("agent", err), leadKey, agentKey, event.CallID)
		return nil
	}

	input := leadsservice.RecordCallInput{
		Outcome:         MapDialStatus(event.DialStatus),
		DurationSeconds: ParseAnsweredTime(event.AnsweredTime),
	}
	if event.Filename != "" {
		notes := "Recording: " + event.Filename
		input.Notes = &notes
	}

	if _, err := s.recorder.RecordResolvedCall(ctx, leadID, agentID, input); err != nil {
		return fmt.Errorf("record webhook call: %w", err)
	}

	s.log.Info("webhook call recorded",
		"leadId", leadID, "agentId", agentID, "dialStatus", event.DialStatus, "callId", event.CallID)
	return nil
}

func (s *Service) discard(ctx context.Context, reason, leadKey, agentKey, callID string) {
	s.log.WebhookDiscarded(reason, leadKey, agentKey, callID)
	s.bus.Publish(ctx, events.WebhookCallDiscarded{
		BaseEvent: events.NewBaseEvent(),
		Reason:    reason,
		LeadKey:   leadKey,
		AgentKey:  agentKey,
		CallID:    callID,
	})
}

func discardReason(side string, err error) string {
	if errors.Is(err, ErrAmbiguous) {
		return side + "_ambiguous"
	}
	return side + "_unmatched"
}
