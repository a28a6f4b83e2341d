package domain

import "testing"

func defaultPolicy() *Policy {
	return NewPolicy(DefaultProgression())
}

func TestPositiveConnectAdvancesOneStepAndHeatsUp(t *testing.T) {
	cases := []struct {
		from Stage
		want Stage
	}{
		{StageNew, StageContacted},
		{StageContacted, StageSiteVisit},
		{StageSiteVisit, StageNegotiation},
		{StageNegotiation, StageToken},
		{StageToken, StageCompleted},
	}

	p := defaultPolicy()
	for _, tc := range cases {
		got := p.Apply(State{Stage: tc.from, Temperature: TemperatureCold}, PositiveConnect{})
		if got.Stage != tc.want {
			t.Errorf("positive connect from %s: stage = %s, want %s", tc.from, got.Stage, tc.want)
		}
		if got.Temperature != TemperatureHot {
			t.Errorf("positive connect from %s: temperature = %s, want hot", tc.from, got.Temperature)
		}
	}
}

func TestPositiveConnectLeavesTerminalAndUnknownStagesAlone(t *testing.T) {
	p := defaultPolicy()
	for _, stage := range []Stage{StageCompleted, StageClosed, StageLost, Stage("bogus")} {
		got := p.Apply(State{Stage: stage, Temperature: TemperatureWarm}, PositiveConnect{})
		if got.Stage != stage {
			t.Errorf("stage %s must not advance, got %s", stage, got.Stage)
		}
		if got.Temperature != TemperatureHot {
			t.Errorf("stage %s: temperature still becomes hot, got %s", stage, got.Temperature)
		}
	}
}

func TestPolicyHonorsAlternatePipelines(t *testing.T) {
	p := NewPolicy(Progression{StageNew: StageNegotiation})
	got := p.Apply(State{Stage: StageNew, Temperature: TemperatureCold}, PositiveConnect{})
	if got.Stage != StageNegotiation {
		t.Fatalf("alternate table ignored: got %s", got.Stage)
	}
}

func TestCallbackRequestedOnlyLiftsNewToContacted(t *testing.T) {
	p := defaultPolicy()

	got := p.Apply(State{Stage: StageNew, Temperature: TemperatureCold}, CallbackRequested{})
	if got.Stage != StageContacted {
		t.Fatalf("callback from new: stage = %s, want contacted", got.Stage)
	}
	if got.Temperature != TemperatureCold {
		t.Fatalf("callback must not change temperature, got %s", got.Temperature)
	}

	for _, stage := range []Stage{StageContacted, StageSiteVisit, StageNegotiation, StageToken, StageClosed} {
		got := p.Apply(State{Stage: stage, Temperature: TemperatureWarm}, CallbackRequested{})
		if got.Stage != stage {
			t.Errorf("callback from %s: stage changed to %s", stage, got.Stage)
		}
	}
}

func TestNotConnectedChangesNothing(t *testing.T) {
	p := defaultPolicy()
	current := State{Stage: StageContacted, Temperature: TemperatureWarm}
	got := p.Apply(current, NotConnected{})
	if got.State != current {
		t.Fatalf("not_connected mutated state: %+v", got.State)
	}
	if got.LostReason != nil {
		t.Fatalf("not_connected set a lost reason")
	}
}

func TestNotInterestedClosesWithDefaultReason(t *testing.T) {
	p := defaultPolicy()

	got := p.Apply(State{Stage: StageNegotiation, Temperature: TemperatureHot}, NotInterested{})
	if got.Stage != StageClosed {
		t.Fatalf("stage = %s, want closed", got.Stage)
	}
	if got.LostReason == nil || *got.LostReason != DefaultLostReason {
		t.Fatalf("lost reason = %v, want %q", got.LostReason, DefaultLostReason)
	}
	if got.Temperature != TemperatureHot {
		t.Fatalf("temperature changed on rejection: %s", got.Temperature)
	}

	withReason := p.Apply(State{Stage: StageNew, Temperature: TemperatureCold}, NotInterested{Reason: "Bought elsewhere"})
	if withReason.LostReason == nil || *withReason.LostReason != "Bought elsewhere" {
		t.Fatalf("explicit reason lost: %v", withReason.LostReason)
	}
}

func TestVisitScheduledLiftsEarlyStages(t *testing.T) {
	p := defaultPolicy()

	got := p.Apply(State{Stage: StageNew, Temperature: TemperatureCold}, VisitScheduled{})
	if got.Stage != StageSiteVisit || got.Temperature != TemperatureWarm {
		t.Fatalf("new+cold visit scheduled: got %s/%s, want site_visit/warm", got.Stage, got.Temperature)
	}

	got = p.Apply(State{Stage: StageContacted, Temperature: TemperatureHot}, VisitScheduled{})
	if got.Stage != StageSiteVisit || got.Temperature != TemperatureHot {
		t.Fatalf("contacted+hot visit scheduled: got %s/%s, want site_visit/hot", got.Stage, got.Temperature)
	}

	// Leads already past contact are not pulled back.
	got = p.Apply(State{Stage: StageNegotiation, Temperature: TemperatureWarm}, VisitScheduled{})
	if got.Stage != StageNegotiation {
		t.Fatalf("negotiation lead regressed to %s", got.Stage)
	}
}

func TestVisitCompletedRatingDrivesTemperature(t *testing.T) {
	p := defaultPolicy()
	cases := []struct {
		rating int
		want   Temperature
	}{
		{5, TemperatureHot},
		{4, TemperatureHot}, // threshold is inclusive at 4
		{3, TemperatureWarm},
		{2, TemperatureCold},
		{1, TemperatureCold},
	}

	for _, tc := range cases {
		rating := tc.rating
		got := p.Apply(State{Stage: StageSiteVisit, Temperature: TemperatureWarm}, VisitCompleted{Rating: &rating})
		if got.Stage != StageCompleted {
			t.Errorf("rating %d: stage = %s, want completed", tc.rating, got.Stage)
		}
		if got.Temperature != tc.want {
			t.Errorf("rating %d: temperature = %s, want %s", tc.rating, got.Temperature, tc.want)
		}
	}
}

func TestVisitCompletedWithoutRatingKeepsTemperature(t *testing.T) {
	p := defaultPolicy()
	got := p.Apply(State{Stage: StageSiteVisit, Temperature: TemperatureWarm}, VisitCompleted{})
	if got.Stage != StageCompleted || got.Temperature != TemperatureWarm {
		t.Fatalf("got %s/%s, want completed/warm", got.Stage, got.Temperature)
	}
}

func TestVisitCompletedLeavesTerminalLeadsClosed(t *testing.T) {
	// A concurrent rejection can close a lead while its visit is still
	// pending; the later completion must not reopen it.
	p := defaultPolicy()
	rating5 := 5

	for _, stage := range []Stage{StageClosed, StageLost} {
		got := p.Apply(State{Stage: stage, Temperature: TemperatureCold}, VisitCompleted{Rating: &rating5})
		if got.Stage != stage {
			t.Errorf("visit completion moved %s lead to %s", stage, got.Stage)
		}
		if got.Temperature != TemperatureCold {
			t.Errorf("%s lead reheated to %s by completion rating", stage, got.Temperature)
		}

		got = p.Apply(State{Stage: stage, Temperature: TemperatureCold}, RatingEdited{Rating: 5})
		if got.State != (State{Stage: stage, Temperature: TemperatureCold}) {
			t.Errorf("rating edit mutated %s lead: got %s/%s", stage, got.Stage, got.Temperature)
		}
	}

	// The explicit override still wins, matching the tie-break for
	// caller-supplied stages everywhere else.
	override := StageNegotiation
	got := p.Apply(State{Stage: StageClosed, Temperature: TemperatureCold}, VisitCompleted{NextStage: &override})
	if got.Stage != StageNegotiation {
		t.Fatalf("explicit override from closed: got %s, want negotiation", got.Stage)
	}
}

func TestVisitCompletedOverrideWins(t *testing.T) {
	p := defaultPolicy()
	rating5 := 5

	cases := []struct {
		name     string
		override Stage
		rating   *int
		from     State
		want     State
	}{
		{"negotiation override is hot", StageNegotiation, nil,
			State{StageSiteVisit, TemperatureWarm}, State{StageNegotiation, TemperatureHot}},
		{"token override is hot", StageToken, nil,
			State{StageSiteVisit, TemperatureCold}, State{StageToken, TemperatureHot}},
		{"lost override is cold", StageLost, &rating5,
			State{StageSiteVisit, TemperatureHot}, State{StageLost, TemperatureCold}},
		{"completed override derives from rating", StageCompleted, &rating5,
			State{StageSiteVisit, TemperatureCold}, State{StageCompleted, TemperatureHot}},
		{"closed override without rating keeps temperature", StageClosed, nil,
			State{StageSiteVisit, TemperatureWarm}, State{StageClosed, TemperatureWarm}},
		{"other override is warm", StageContacted, nil,
			State{StageSiteVisit, TemperatureHot}, State{StageContacted, TemperatureWarm}},
	}

	for _, tc := range cases {
		override := tc.override
		got := p.Apply(tc.from, VisitCompleted{NextStage: &override, Rating: tc.rating})
		if got.State != tc.want {
			t.Errorf("%s: got %s/%s, want %s/%s", tc.name, got.Stage, got.Temperature, tc.want.Stage, tc.want.Temperature)
		}
	}
}

func TestRatingEditedRecomputesTemperatureOnly(t *testing.T) {
	p := defaultPolicy()

	got := p.Apply(State{Stage: StageCompleted, Temperature: TemperatureHot}, RatingEdited{Rating: 2})
	if got.Stage != StageCompleted {
		t.Fatalf("rating edit moved stage to %s", got.Stage)
	}
	if got.Temperature != TemperatureCold {
		t.Fatalf("rating 2: temperature = %s, want cold", got.Temperature)
	}

	override := StageNegotiation
	got = p.Apply(State{Stage: StageCompleted, Temperature: TemperatureHot}, RatingEdited{Rating: 4, NextStage: &override})
	if got.Stage != StageNegotiation || got.Temperature != TemperatureHot {
		t.Fatalf("rating edit with override: got %s/%s, want negotiation/hot", got.Stage, got.Temperature)
	}
}

func TestConcreteSiteVisitScenario(t *testing.T) {
	// Lead{site_visit, warm} + completion with nextStage=negotiation, no rating
	// must yield {negotiation, hot}.
	p := defaultPolicy()
	override := StageNegotiation
	got := p.Apply(State{Stage: StageSiteVisit, Temperature: TemperatureWarm}, VisitCompleted{NextStage: &override})
	if got.Stage != StageNegotiation || got.Temperature != TemperatureHot {
		t.Fatalf("got %s/%s, want negotiation/hot", got.Stage, got.Temperature)
	}
}
