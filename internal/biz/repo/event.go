package repo

import (
	"context"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

// EventRepo persists the append-only event log and the cached chat state
// projection. Events are ordered per chat by a strictly increasing seq;
// an event and the projection it produces are always committed together.
type EventRepo interface {
	// NextSeq returns the next per-chat sequence number. Callers must
	// hold the chat's write lock so assignment is race-free.
	NextSeq(ctx context.Context, chatID string) (int64, error)

	// Append atomically persists the event and the updated cached state.
	Append(ctx context.Context, ev *domain.Event, state domain.ChatState) error

	// AppendUndo atomically marks the target seqs nullified, persists the
	// UNDO event, and replaces the cached state.
	AppendUndo(ctx context.Context, ev *domain.Event, targets []int64, state domain.ChatState) error

	// GetState returns the cached projection. found is false for a chat
	// with no history; the zero state applies.
	GetState(ctx context.Context, chatID string) (state domain.ChatState, found bool, err error)

	// SaveState replaces the cached projection. Used only to repair a
	// detected divergence from the log.
	SaveState(ctx context.Context, state domain.ChatState) error

	// ListByChat returns the chat's full event history ordered by seq.
	ListByChat(ctx context.Context, chatID string) ([]domain.Event, error)

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, chatID string, limit int) ([]domain.Event, error)

	// Leaderboard aggregates reset counts per actor over the chat's
	// non-nullified TRIGGER and MANUAL_RESET events.
	Leaderboard(ctx context.Context, chatID string, limit int) ([]domain.BreakerStat, error)

	// TopChats returns cached states ordered by best streak, longest first.
	TopChats(ctx context.Context, limit int) ([]domain.ChatState, error)

	Close() error
}
