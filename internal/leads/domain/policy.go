package domain

// DefaultLostReason is recorded when a lead is closed as not interested
// without an explicit reason.
const DefaultLostReason = "Not Interested"

// State is the (stage, temperature) pair the policy operates on. The two are
// always decided together; the orchestrator never persists one without the
// other.
type State struct {
	Stage       Stage
	Temperature Temperature
}

// Change is the policy's verdict for one event.
type Change struct {
	State
	// LostReason is set when the event closes the lead.
	LostReason *string
}

// Policy computes the next (stage, temperature) pair for a lifecycle event.
// It is a pure function over an immutable progression table.
type Policy struct {
	progression Progression
}

// NewPolicy creates a stage policy over the given progression table.
func NewPolicy(progression Progression) *Policy {
	return &Policy{progression: progression}
}

// Apply returns the state a lead should hold after the event. An explicit
// caller-supplied stage always wins over derived defaults. Unknown or
// terminal stages are left unchanged: no regression, no skipping.
func (p *Policy) Apply(current State, event Event) Change {
	next := Change{State: current}

	switch ev := event.(type) {
	case PositiveConnect:
		if advanced, ok := p.progression[current.Stage]; ok {
			next.Stage = advanced
		}
		next.Temperature = TemperatureHot

	case CallbackRequested:
		if current.Stage == StageNew {
			next.Stage = StageContacted
		}

	case NotConnected:
		// No stage change, no temperature change.

	case NotInterested:
		next.Stage = StageClosed
		reason := ev.Reason
		if reason == "" {
			reason = DefaultLostReason
		}
		next.LostReason = &reason

	case VisitScheduled:
		if current.Stage == StageNew || current.Stage == StageContacted {
			next.Stage = StageSiteVisit
			if current.Temperature == TemperatureCold {
				next.Temperature = TemperatureWarm
			}
		}

	case VisitCompleted:
		if ev.NextStage != nil {
			next.Stage = *ev.NextStage
			next.Temperature = temperatureForOverride(*ev.NextStage, ev.Rating, current.Temperature)
		} else if !IsTerminalStage(current.Stage) {
			// A lead closed or lost while the visit was pending stays there;
			// only an explicit override can pull it back out.
			next.Stage = StageCompleted
			if ev.Rating != nil {
				next.Temperature = TemperatureFromRating(*ev.Rating)
			}
		}

	case RatingEdited:
		if ev.NextStage != nil {
			next.Stage = *ev.NextStage
			next.Temperature = TemperatureFromRating(ev.Rating)
		} else if !IsTerminalStage(current.Stage) {
			next.Temperature = TemperatureFromRating(ev.Rating)
		}
	}

	return next
}

// temperatureForOverride derives the temperature when a visit completion
// carries an explicit next-stage override.
func temperatureForOverride(override Stage, rating *int, current Temperature) Temperature {
	switch override {
	case StageNegotiation, StageToken:
		return TemperatureHot
	case StageLost:
		return TemperatureCold
	case StageCompleted, StageClosed:
		if rating != nil {
			return TemperatureFromRating(*rating)
		}
		return current
	default:
		return TemperatureWarm
	}
}
