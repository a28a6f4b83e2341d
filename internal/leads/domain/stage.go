// Package domain provides core business rules for the leads bounded context.
// It is pure: no persistence, no transport, fully unit-testable.
package domain

// Stage is a lead's position in the sales pipeline.
type Stage string

const (
	StageNew         Stage = "new"
	StageContacted   Stage = "contacted"
	StageSiteVisit   Stage = "site_visit"
	StageNegotiation Stage = "negotiation"
	StageToken       Stage = "token"
	StageCompleted   Stage = "completed"
	StageClosed      Stage = "closed"
	StageLost        Stage = "lost"
)

// Temperature is a coarse urgency signal on a lead.
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureWarm Temperature = "warm"
	TemperatureCold Temperature = "cold"
)

// Progression maps each pipeline stage to its successor for a positive
// connect. Terminal stages have no entry. The table is injected into the
// Policy so tests can exercise alternate pipelines.
type Progression map[Stage]Stage

// DefaultProgression is the production pipeline:
// new -> contacted -> site_visit -> negotiation -> token -> completed.
func DefaultProgression() Progression {
	return Progression{
		StageNew:         StageContacted,
		StageContacted:   StageSiteVisit,
		StageSiteVisit:   StageNegotiation,
		StageNegotiation: StageToken,
		StageToken:       StageCompleted,
	}
}

var knownStages = map[Stage]struct{}{
	StageNew:         {},
	StageContacted:   {},
	StageSiteVisit:   {},
	StageNegotiation: {},
	StageToken:       {},
	StageCompleted:   {},
	StageClosed:      {},
	StageLost:        {},
}

// IsKnownStage reports whether the value is a valid pipeline stage.
func IsKnownStage(stage Stage) bool {
	_, ok := knownStages[stage]
	return ok
}

var terminalStages = map[Stage]struct{}{
	StageClosed: {},
	StageLost:   {},
}

// IsTerminalStage reports whether the stage is absorbing: closed and lost
// leads never advance again.
func IsTerminalStage(stage Stage) bool {
	_, ok := terminalStages[stage]
	return ok
}

var knownTemperatures = map[Temperature]struct{}{
	TemperatureHot:  {},
	TemperatureWarm: {},
	TemperatureCold: {},
}

// IsKnownTemperature reports whether the value is a valid temperature.
func IsKnownTemperature(t Temperature) bool {
	_, ok := knownTemperatures[t]
	return ok
}

// TemperatureFromRating derives a temperature from a 1-5 visit rating.
// Boundaries are inclusive: 4 and above is hot, 3 is warm, below is cold.
func TemperatureFromRating(rating int) Temperature {
	switch {
	case rating >= 4:
		return TemperatureHot
	case rating >= 3:
		return TemperatureWarm
	default:
		return TemperatureCold
	}
}
