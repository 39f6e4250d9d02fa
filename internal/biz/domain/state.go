package domain

import "time"

// ChatState is the cached projection of a chat's event history. It must
// always equal the fold of the chat's non-nullified events from the zero
// value; the persisted copy is an optimization, never the source of truth.
type ChatState struct {
	ChatID           string        `json:"chat_id"`
	StreakStart      time.Time     `json:"streak_start"`
	BestStreak       time.Duration `json:"best_streak"`
	BestStreakStart  time.Time     `json:"best_streak_start"`
	BestStreakEnd    time.Time     `json:"best_streak_end"`
	LastResetSeq     int64         `json:"last_reset_seq"`
	LastResetActor   Actor         `json:"last_reset_actor"`
	LastResetAt      time.Time     `json:"last_reset_at"`
	LastResetDetails EventDetails  `json:"last_reset_details"`
	TotalResets      int           `json:"total_resets"`
}

// Equal reports whether two states describe the same projection.
// Timestamps are compared as instants, not structurally: a state folded
// from the event log and one read back from persistence may carry the
// same instants in different time locations.
func (s ChatState) Equal(o ChatState) bool {
	return s.ChatID == o.ChatID &&
		s.StreakStart.Equal(o.StreakStart) &&
		s.BestStreak == o.BestStreak &&
		s.BestStreakStart.Equal(o.BestStreakStart) &&
		s.BestStreakEnd.Equal(o.BestStreakEnd) &&
		s.LastResetSeq == o.LastResetSeq &&
		s.LastResetActor == o.LastResetActor &&
		s.LastResetAt.Equal(o.LastResetAt) &&
		s.LastResetDetails.Equal(o.LastResetDetails) &&
		s.TotalResets == o.TotalResets
}

// CurrentStreak returns the duration of the running streak at now.
// A chat with no reset history has a zero streak.
func (s ChatState) CurrentStreak(now time.Time) time.Duration {
	if s.StreakStart.IsZero() {
		return 0
	}
	d := now.Sub(s.StreakStart)
	if d < 0 {
		return 0
	}
	return d
}

// Apply folds one event onto the state and returns the new state. TRIGGER
// and MANUAL_RESET both end the running streak; MANUAL_RESET additionally
// increments the manual-reset counter. UNDO is a meta-event and leaves the
// folded state unchanged.
func (s ChatState) Apply(ev Event) ChatState {
	next := s
	next.ChatID = ev.ChatID

	switch ev.Kind {
	case EventTrigger, EventManualReset:
		if !s.StreakStart.IsZero() {
			if ended := ev.Timestamp.Sub(s.StreakStart); ended > s.BestStreak {
				next.BestStreak = ended
				next.BestStreakStart = s.StreakStart
				next.BestStreakEnd = ev.Timestamp
			}
		}
		next.StreakStart = ev.Timestamp
		next.LastResetSeq = ev.Seq
		next.LastResetActor = ev.Actor
		next.LastResetAt = ev.Timestamp
		next.LastResetDetails = ev.Details
		if ev.Kind == EventManualReset {
			next.TotalResets++
		}

	case EventUndo:
		// meta-event: nullification is handled by Fold's skip set
	}

	return next
}

// Fold replays ordered events from the zero state, skipping events whose
// seq is in the nullified set. It is the single source of truth for
// deriving ChatState.
func Fold(chatID string, events []Event, nullified map[int64]bool) ChatState {
	state := ChatState{ChatID: chatID}
	for _, ev := range events {
		if nullified[ev.Seq] {
			continue
		}
		state = state.Apply(ev)
	}
	return state
}

// NullifiedSet collects the seqs excluded from folding, as recorded by
// UNDO events in the history.
func NullifiedSet(events []Event) map[int64]bool {
	nullified := make(map[int64]bool)
	for _, ev := range events {
		if ev.Kind != EventUndo {
			continue
		}
		for _, seq := range ev.Details.UndoneEventSeqs {
			nullified[seq] = true
		}
	}
	return nullified
}

// BreakerStat is one row of the per-chat streak-breaker leaderboard,
// aggregated from non-nullified events.
type BreakerStat struct {
	Actor        Actor `json:"actor"`
	TriggerCount int   `json:"trigger_count"`
	ManualCount  int   `json:"manual_count"`
	TotalBreaks  int   `json:"total_breaks"`
}
