package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
)

// DefaultUndoMax caps how many reset events one undo command may nullify.
const DefaultUndoMax = 10

// StreakUsecase owns the event-sourced streak lifecycle: recording
// trigger and manual-reset events, undoing them by replay, and serving
// the derived views. All writes for a chat are serialized through the
// shared per-chat lock.
type StreakUsecase struct {
	events  repo.EventRepo
	detect  *DetectionUsecase
	locks   *ChatLocks
	undoMax int
	now     func() time.Time
}

// NewStreakUsecase creates the streak usecase. undoMax <= 0 falls back
// to the default cap.
func NewStreakUsecase(events repo.EventRepo, detect *DetectionUsecase, locks *ChatLocks, undoMax int) *StreakUsecase {
	if undoMax <= 0 {
		undoMax = DefaultUndoMax
	}
	return &StreakUsecase{
		events:  events,
		detect:  detect,
		locks:   locks,
		undoMax: undoMax,
		now:     time.Now,
	}
}

// UndoMax returns the configured cap on events one undo may nullify.
func (uc *StreakUsecase) UndoMax() int {
	return uc.undoMax
}

// MessageResult reports what a processed message did to the chat's streak.
type MessageResult struct {
	Detection   domain.Detection
	EndedStreak time.Duration
	NewBest     bool
	State       domain.ChatState
}

// OnMessage runs detection on a regular chat message and, on a match,
// appends a TRIGGER event ending the running streak. A message with no
// match writes nothing.
func (uc *StreakUsecase) OnMessage(ctx context.Context, chatID, msgID, text string, actor domain.Actor) (MessageResult, error) {
	det, err := uc.detect.Detect(ctx, chatID, text)
	if err != nil {
		return MessageResult{}, err
	}
	if !det.Matched {
		return MessageResult{Detection: det}, nil
	}

	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	before, _, err := uc.events.GetState(ctx, chatID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("load chat state: %w", err)
	}
	before.ChatID = chatID

	seq, err := uc.events.NextSeq(ctx, chatID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("next seq: %w", err)
	}

	ev := domain.Event{
		Seq:       seq,
		ChatID:    chatID,
		Kind:      domain.EventTrigger,
		Actor:     actor,
		MsgID:     msgID,
		Timestamp: uc.now(),
		Details: domain.EventDetails{
			MatchedWord: det.Word,
			Layer:       det.Layer,
			Lemma:       det.Lemma,
			RuleName:    det.RuleName,
		},
		SnapshotBefore: before,
	}

	after := before.Apply(ev)
	if err := uc.events.Append(ctx, &ev, after); err != nil {
		return MessageResult{}, fmt.Errorf("append trigger event: %w", err)
	}

	ended := before.CurrentStreak(ev.Timestamp)
	return MessageResult{
		Detection:   det,
		EndedStreak: ended,
		NewBest:     ended > 0 && after.BestStreak == ended && after.BestStreak != before.BestStreak,
		State:       after,
	}, nil
}

// Reset appends a MANUAL_RESET event, ending the running streak and
// incrementing the manual-reset counter.
func (uc *StreakUsecase) Reset(ctx context.Context, chatID, msgID, reason string, actor domain.Actor) (MessageResult, error) {
	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	before, _, err := uc.events.GetState(ctx, chatID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("load chat state: %w", err)
	}
	before.ChatID = chatID

	seq, err := uc.events.NextSeq(ctx, chatID)
	if err != nil {
		return MessageResult{}, fmt.Errorf("next seq: %w", err)
	}

	ev := domain.Event{
		Seq:            seq,
		ChatID:         chatID,
		Kind:           domain.EventManualReset,
		Actor:          actor,
		MsgID:          msgID,
		Timestamp:      uc.now(),
		Details:        domain.EventDetails{Reason: reason},
		SnapshotBefore: before,
	}

	after := before.Apply(ev)
	if err := uc.events.Append(ctx, &ev, after); err != nil {
		return MessageResult{}, fmt.Errorf("append reset event: %w", err)
	}

	ended := before.CurrentStreak(ev.Timestamp)
	return MessageResult{
		EndedStreak: ended,
		NewBest:     ended > 0 && after.BestStreak == ended && after.BestStreak != before.BestStreak,
		State:       after,
	}, nil
}

// UndoResult reports the outcome of an undo command.
type UndoResult struct {
	UndoneSeqs []int64
	State      domain.ChatState
}

// Undo nullifies the most recent count non-nullified reset events and
// refolds the chat's state from the surviving history. A count outside
// [1, max] is a validation error. When fewer eligible events exist than
// requested, all of them are undone; with none, nothing is written.
func (uc *StreakUsecase) Undo(ctx context.Context, chatID, msgID string, count int, actor domain.Actor) (UndoResult, error) {
	if count < 1 || count > uc.undoMax {
		return UndoResult{}, fmt.Errorf("%w: %d not in [1, %d]", domain.ErrUndoCount, count, uc.undoMax)
	}

	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	history, err := uc.events.ListByChat(ctx, chatID)
	if err != nil {
		return UndoResult{}, fmt.Errorf("load event history: %w", err)
	}

	nullified := domain.NullifiedSet(history)

	var targets []int64
	for i := len(history) - 1; i >= 0 && len(targets) < count; i-- {
		ev := history[i]
		if ev.Kind == domain.EventUndo || nullified[ev.Seq] {
			continue
		}
		targets = append(targets, ev.Seq)
	}

	before := domain.Fold(chatID, history, nullified)
	if len(targets) == 0 {
		return UndoResult{State: before}, nil
	}

	for _, seq := range targets {
		nullified[seq] = true
	}
	after := domain.Fold(chatID, history, nullified)

	seq, err := uc.events.NextSeq(ctx, chatID)
	if err != nil {
		return UndoResult{}, fmt.Errorf("next seq: %w", err)
	}

	ev := domain.Event{
		Seq:       seq,
		ChatID:    chatID,
		Kind:      domain.EventUndo,
		Actor:     actor,
		MsgID:     msgID,
		Timestamp: uc.now(),
		Details: domain.EventDetails{
			UndoneEventSeqs: targets,
			UndoneCount:     len(targets),
		},
		SnapshotBefore: before,
	}

	if err := uc.events.AppendUndo(ctx, &ev, targets, after); err != nil {
		return UndoResult{}, fmt.Errorf("append undo event: %w", err)
	}

	return UndoResult{UndoneSeqs: targets, State: after}, nil
}

// Counter returns the current streak duration together with the cached
// state it was derived from.
func (uc *StreakUsecase) Counter(ctx context.Context, chatID string) (time.Duration, domain.ChatState, error) {
	state, _, err := uc.events.GetState(ctx, chatID)
	if err != nil {
		return 0, domain.ChatState{}, fmt.Errorf("load chat state: %w", err)
	}
	state.ChatID = chatID
	return state.CurrentStreak(uc.now()), state, nil
}

// Verify refolds the chat's history and compares the result against the
// cached projection. On divergence the cache is repaired from the fold
// and ErrStateDiverged is returned alongside the correct state.
func (uc *StreakUsecase) Verify(ctx context.Context, chatID string) (domain.ChatState, error) {
	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	history, err := uc.events.ListByChat(ctx, chatID)
	if err != nil {
		return domain.ChatState{}, fmt.Errorf("load event history: %w", err)
	}

	folded := domain.Fold(chatID, history, domain.NullifiedSet(history))

	cached, found, err := uc.events.GetState(ctx, chatID)
	if err != nil {
		return domain.ChatState{}, fmt.Errorf("load chat state: %w", err)
	}
	cached.ChatID = chatID

	if !found && len(history) == 0 {
		return folded, nil
	}
	if folded.Equal(cached) {
		return folded, nil
	}

	if err := uc.events.SaveState(ctx, folded); err != nil {
		return folded, fmt.Errorf("repair chat state: %w", err)
	}
	fmt.Printf("[Streak] Repaired diverged state for chat %s\n", chatID)
	return folded, domain.ErrStateDiverged
}

// History returns up to limit events, newest first.
func (uc *StreakUsecase) History(ctx context.Context, chatID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	events, err := uc.events.Recent(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	return events, nil
}

// Leaderboard returns the chat's streak breakers ranked by total breaks.
func (uc *StreakUsecase) Leaderboard(ctx context.Context, chatID string, limit int) ([]domain.BreakerStat, error) {
	if limit <= 0 {
		limit = 10
	}
	stats, err := uc.events.Leaderboard(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return stats, nil
}

// TopChats returns the chats with the longest best streaks.
func (uc *StreakUsecase) TopChats(ctx context.Context, limit int) ([]domain.ChatState, error) {
	if limit <= 0 {
		limit = 10
	}
	chats, err := uc.events.TopChats(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load top chats: %w", err)
	}
	return chats, nil
}
