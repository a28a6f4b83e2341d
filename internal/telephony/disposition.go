// Package telephony integrates the outbound dialer provider: the inbound
// call-status webhook and the click-to-call dispatch client.
package telephony

import (
	"strconv"
	"strings"

	"crm_pipeline_backend/internal/leads/domain"
)

// MapDialStatus normalizes a provider dial status to a call outcome. The
// provider only distinguishes answered from everything else (busy, no answer,
// cancel, congestion); richer dispositions come from agents, not the wire.
func MapDialStatus(dialStatus string) domain.CallOutcome {
	if strings.EqualFold(strings.TrimSpace(dialStatus), "ANSWER") {
		return domain.OutcomeConnectedPositive
	}
	return domain.OutcomeNotConnected
}

// ParseAnsweredTime converts the provider's "HH:MM:SS" talk time to seconds.
// Returns nil for empty or malformed values; a bad duration never blocks the
// call from being recorded.
func ParseAnsweredTime(answeredTime string) *int {
	answeredTime = strings.TrimSpace(answeredTime)
	if answeredTime == "" {
		return nil
	}
	parts := strings.Split(answeredTime, ":")
	if len(parts) != 3 {
		return nil
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return nil
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return nil
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil || s < 0 || s > 59 {
		return nil
	}
	total := h*3600 + m*60 + s
	return &total
}
