package domain

import (
	"testing"
	"time"
)

func TestChatState_Apply_TriggerStartsStreak(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{Seq: 1, ChatID: "chat-1", Kind: EventTrigger, Timestamp: ts}

	state := ChatState{}.Apply(ev)

	if !state.StreakStart.Equal(ts) {
		t.Errorf("Expected streak start %v, got %v", ts, state.StreakStart)
	}
	if state.TotalResets != 0 {
		t.Errorf("Expected TRIGGER to leave TotalResets at 0, got %d", state.TotalResets)
	}
	if state.BestStreak != 0 {
		t.Errorf("Expected no best streak yet, got %v", state.BestStreak)
	}
}

func TestChatState_Apply_ManualResetCountsAndRecordsActor(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := start.Add(3 * time.Hour)
	actor := Actor{UserID: "u1", Name: "alice"}

	state := ChatState{ChatID: "chat-1", StreakStart: start}
	state = state.Apply(Event{
		Seq:       2,
		ChatID:    "chat-1",
		Kind:      EventManualReset,
		Actor:     actor,
		Timestamp: reset,
		Details:   EventDetails{Reason: "end of week"},
	})

	if state.TotalResets != 1 {
		t.Errorf("Expected TotalResets 1, got %d", state.TotalResets)
	}
	if state.LastResetActor != actor {
		t.Errorf("Expected last reset actor %v, got %v", actor, state.LastResetActor)
	}
	if state.BestStreak != 3*time.Hour {
		t.Errorf("Expected best streak 3h, got %v", state.BestStreak)
	}
	if !state.StreakStart.Equal(reset) {
		t.Errorf("Expected streak restarted at %v, got %v", reset, state.StreakStart)
	}
}

func TestChatState_Apply_BestStreakOnlyImproves(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	state := ChatState{StreakStart: start, BestStreak: 10 * time.Hour}

	state = state.Apply(Event{Seq: 5, Kind: EventTrigger, Timestamp: start.Add(time.Hour)})

	if state.BestStreak != 10*time.Hour {
		t.Errorf("Expected best streak unchanged at 10h, got %v", state.BestStreak)
	}
}

func TestChatState_Apply_UndoIsMetaEvent(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	before := ChatState{ChatID: "chat-1", StreakStart: start, TotalResets: 2}

	after := before.Apply(Event{
		Seq:       9,
		ChatID:    "chat-1",
		Kind:      EventUndo,
		Timestamp: start.Add(time.Hour),
		Details:   EventDetails{UndoneEventSeqs: []int64{7, 8}, UndoneCount: 2},
	})

	if !after.StreakStart.Equal(before.StreakStart) || after.TotalResets != before.TotalResets {
		t.Errorf("Expected UNDO to leave folded state unchanged, got %+v", after)
	}
}

func TestFold_SkipsNullifiedEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Seq: 1, ChatID: "chat-1", Kind: EventTrigger, Timestamp: base},
		{Seq: 2, ChatID: "chat-1", Kind: EventTrigger, Timestamp: base.Add(time.Hour)},
		{Seq: 3, ChatID: "chat-1", Kind: EventTrigger, Timestamp: base.Add(2 * time.Hour)},
	}

	// Undoing the last two triggers restores the streak started by the first.
	state := Fold("chat-1", events, map[int64]bool{2: true, 3: true})

	if !state.StreakStart.Equal(base) {
		t.Errorf("Expected streak start %v after undo, got %v", base, state.StreakStart)
	}
	if state.TotalResets != 0 {
		t.Errorf("Expected TRIGGER events to never touch TotalResets, got %d", state.TotalResets)
	}
}

func TestFold_EmptyHistoryIsZeroState(t *testing.T) {
	state := Fold("chat-1", nil, nil)

	if !state.StreakStart.IsZero() || state.TotalResets != 0 || state.BestStreak != 0 {
		t.Errorf("Expected zero state for empty history, got %+v", state)
	}
	if state.CurrentStreak(time.Now()) != 0 {
		t.Error("Expected zero current streak for a chat with no history")
	}
}

func TestNullifiedSet(t *testing.T) {
	events := []Event{
		{Seq: 1, Kind: EventTrigger},
		{Seq: 2, Kind: EventManualReset},
		{Seq: 3, Kind: EventUndo, Details: EventDetails{UndoneEventSeqs: []int64{1, 2}}},
	}

	nullified := NullifiedSet(events)
	if !nullified[1] || !nullified[2] {
		t.Errorf("Expected seqs 1 and 2 nullified, got %v", nullified)
	}
	if nullified[3] {
		t.Error("Expected the UNDO event itself to stay non-nullified")
	}
}

func TestCurrentStreak(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	state := ChatState{StreakStart: start}

	got := state.CurrentStreak(start.Add(90 * time.Minute))
	if got != 90*time.Minute {
		t.Errorf("Expected 90m, got %v", got)
	}
}
