package domain

import "time"

// CallOutcome is the normalized disposition of one call attempt.
type CallOutcome string

const (
	OutcomeConnectedPositive CallOutcome = "connected_positive"
	OutcomeConnectedCallback CallOutcome = "connected_callback"
	OutcomeNotConnected      CallOutcome = "not_connected"
	OutcomeNotInterested     CallOutcome = "not_interested"
)

var knownOutcomes = map[CallOutcome]struct{}{
	OutcomeConnectedPositive: {},
	OutcomeConnectedCallback: {},
	OutcomeNotConnected:      {},
	OutcomeNotInterested:     {},
}

// IsKnownOutcome reports whether the value is a valid call outcome.
func IsKnownOutcome(o CallOutcome) bool {
	_, ok := knownOutcomes[o]
	return ok
}

// Event is the closed set of lifecycle triggers the policy understands.
// Each variant carries exactly the fields its rule needs, so invalid field
// combinations cannot be constructed.
type Event interface {
	lifecycleEvent()
}

// PositiveConnect is a call that reached the lead and went well.
type PositiveConnect struct{}

// CallbackRequested is a call where the lead asked to be called back,
// optionally at a specific time.
type CallbackRequested struct {
	CallbackAt *time.Time
}

// NotConnected is a call attempt that did not reach the lead.
type NotConnected struct{}

// NotInterested is a call where the lead rejected the offering.
type NotInterested struct {
	Reason string
}

// VisitScheduled is the booking of a site visit.
type VisitScheduled struct{}

// VisitCompleted is the completion of a site visit, optionally with an
// explicit next-stage override and a 1-5 rating.
type VisitCompleted struct {
	NextStage *Stage
	Rating    *int
}

// RatingEdited is a rating change on an already-completed visit.
type RatingEdited struct {
	Rating    int
	NextStage *Stage
}

func (PositiveConnect) lifecycleEvent()   {}
func (CallbackRequested) lifecycleEvent() {}
func (NotConnected) lifecycleEvent()      {}
func (NotInterested) lifecycleEvent()     {}
func (VisitScheduled) lifecycleEvent()    {}
func (VisitCompleted) lifecycleEvent()    {}
func (RatingEdited) lifecycleEvent()      {}

// EventForOutcome builds the lifecycle event for an agent-entered or
// webhook-delivered call outcome.
func EventForOutcome(outcome CallOutcome, callbackAt *time.Time, rejectionReason string) Event {
	switch outcome {
	case OutcomeConnectedPositive:
		return PositiveConnect{}
	case OutcomeConnectedCallback:
		return CallbackRequested{CallbackAt: callbackAt}
	case OutcomeNotInterested:
		return NotInterested{Reason: rejectionReason}
	default:
		return NotConnected{}
	}
}
