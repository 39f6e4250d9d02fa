package repo

import (
	"context"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

// TriggerRepo persists per-chat trigger rules. Rules are unique per
// (chat, kind, value) and listed in insertion order.
type TriggerRepo interface {
	// ListByChat returns all rules for the chat, including disabled ones,
	// in insertion order.
	ListByChat(ctx context.Context, chatID string) ([]domain.TriggerRule, error)

	// InsertRules inserts all rules in one transaction; on any conflict
	// none are inserted and domain.ErrDuplicateTrigger is returned.
	InsertRules(ctx context.Context, rules []domain.TriggerRule) error

	// DeleteBySourceWord removes the lemma rule and every pattern rule
	// derived from the canonical word. Returns the number of deleted rules.
	DeleteBySourceWord(ctx context.Context, chatID, word string) (int, error)

	// SetEnabled toggles a rule by name. found is false when the chat has
	// no rule with that value.
	SetEnabled(ctx context.Context, chatID, ruleName string, enabled bool) (found bool, err error)

	// HasLemma reports whether the chat already has a lemma rule for the
	// word (case-insensitive).
	HasLemma(ctx context.Context, chatID, lemma string) (bool, error)

	Close() error
}
