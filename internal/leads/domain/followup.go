package domain

import (
	"fmt"
	"time"
)

// TaskType classifies a follow-up task.
type TaskType string

const (
	TaskCallback  TaskType = "callback"
	TaskRetryCall TaskType = "retry_call"
)

// RetryCallDelay is the fixed offset for the automatic retry after an
// unreached call. Independent of agent input.
const RetryCallDelay = 2 * time.Hour

// NewFollowUpTask describes a follow-up task to be created.
type NewFollowUpTask struct {
	TaskType    TaskType
	ScheduledAt time.Time
	Notes       string
}

// FollowUpPlan is the scheduler's verdict for one event: at most one task,
// an optional new next-follow-up deadline, and whether the contact timestamp
// should be touched. The zero value means "do nothing".
type FollowUpPlan struct {
	Task               *NewFollowUpTask
	NextFollowupAt     *time.Time
	TouchLastContacted bool
}

// ScheduleFollowUp decides the derivative work an event requires. Pure; "now"
// is passed in so the 2-hour retry offset is deterministic under test.
func ScheduleFollowUp(event Event, now time.Time) FollowUpPlan {
	switch ev := event.(type) {
	case CallbackRequested:
		if ev.CallbackAt == nil {
			return FollowUpPlan{}
		}
		at := *ev.CallbackAt
		return FollowUpPlan{
			Task: &NewFollowUpTask{
				TaskType:    TaskCallback,
				ScheduledAt: at,
				Notes:       "Callback requested by lead",
			},
			NextFollowupAt: &at,
		}

	case NotConnected:
		at := now.Add(RetryCallDelay)
		return FollowUpPlan{
			Task: &NewFollowUpTask{
				TaskType:    TaskRetryCall,
				ScheduledAt: at,
				Notes:       "Auto retry after unreached call",
			},
			NextFollowupAt: &at,
		}

	case PositiveConnect:
		return FollowUpPlan{TouchLastContacted: true}

	default:
		return FollowUpPlan{}
	}
}

// AppendCompletionFeedback appends a completion note to a visit's feedback
// history. Prior entries are preserved: the history block is append-only and
// later rating or note edits must not rewrite it.
func AppendCompletionFeedback(existing, note string, at time.Time) string {
	entry := fmt.Sprintf("%s — COMPLETED [%s]", note, at.UTC().Format(time.RFC3339))
	if existing == "" {
		return entry
	}
	return existing + "\n" + entry
}
