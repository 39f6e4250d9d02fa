package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// triggerRepo implements the trigger rule repository on sqlite
type triggerRepo struct {
	db *sql.DB
}

// NewTriggerRepo creates a new trigger rule repository
func NewTriggerRepo(dbPath string) (repo.TriggerRepo, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	// The autoincrement id preserves insertion order for rule evaluation
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_triggers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('lemma', 'pattern')),
			value TEXT NOT NULL,
			pattern TEXT NOT NULL DEFAULT '',
			variant TEXT NOT NULL DEFAULT '',
			source_word TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			added_by TEXT NOT NULL DEFAULT '',
			added_at INTEGER NOT NULL,
			UNIQUE (chat_id, kind, value)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chat_triggers table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_triggers_chat ON chat_triggers(chat_id)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_triggers_source ON chat_triggers(chat_id, source_word)`)

	return &triggerRepo{db: db}, nil
}

// NewReadOnlyTriggerRepo opens an existing trigger database without
// creating schema, for read-only consumers.
func NewReadOnlyTriggerRepo(dbPath string) (repo.TriggerRepo, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &triggerRepo{db: db}, nil
}

// ListByChat returns all rules for the chat in insertion order
func (r *triggerRepo) ListByChat(ctx context.Context, chatID string) ([]domain.TriggerRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, kind, value, pattern, variant, source_word, enabled, added_by, added_at
		FROM chat_triggers
		WHERE chat_id = ?
		ORDER BY id ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.TriggerRule
	for rows.Next() {
		var rule domain.TriggerRule
		var kind, variant string
		var enabled int
		var addedAt int64
		if err := rows.Scan(&rule.ChatID, &kind, &rule.Value, &rule.Pattern, &variant, &rule.SourceWord, &enabled, &rule.AddedBy, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trigger rule: %w", err)
		}
		rule.Kind = domain.RuleKind(kind)
		rule.Variant = domain.VariantKind(variant)
		rule.Enabled = enabled != 0
		rule.AddedAt = time.Unix(addedAt, 0)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// InsertRules inserts all rules in one transaction
func (r *triggerRepo) InsertRules(ctx context.Context, rules []domain.TriggerRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rule := range rules {
		enabled := 0
		if rule.Enabled {
			enabled = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_triggers (chat_id, kind, value, pattern, variant, source_word, enabled, added_by, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rule.ChatID,
			string(rule.Kind),
			rule.Value,
			rule.Pattern,
			string(rule.Variant),
			rule.SourceWord,
			enabled,
			rule.AddedBy,
			rule.AddedAt.Unix(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateTrigger
			}
			return fmt.Errorf("failed to insert trigger rule %s: %w", rule.Value, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trigger rules: %w", err)
	}
	return nil
}

// DeleteBySourceWord removes the lemma rule and every derived pattern rule
func (r *triggerRepo) DeleteBySourceWord(ctx context.Context, chatID, word string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_triggers WHERE chat_id = ? AND source_word = ?
	`, chatID, word)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trigger rules: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rules: %w", err)
	}
	return int(deleted), nil
}

// SetEnabled toggles a rule by name
func (r *triggerRepo) SetEnabled(ctx context.Context, chatID, ruleName string, enabled bool) (bool, error) {
	val := 0
	if enabled {
		val = 1
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE chat_triggers SET enabled = ? WHERE chat_id = ? AND value = ?
	`, val, chatID, ruleName)
	if err != nil {
		return false, fmt.Errorf("failed to toggle trigger rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count toggled rules: %w", err)
	}
	return affected > 0, nil
}

// HasLemma reports whether the chat has a lemma rule for the word
func (r *triggerRepo) HasLemma(ctx context.Context, chatID, lemma string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_triggers WHERE chat_id = ? AND kind = 'lemma' AND value = ?
	`, chatID, lemma).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query lemma rule: %w", err)
	}
	return count > 0, nil
}

// Close closes the database
func (r *triggerRepo) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
