package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// eventRepo implements the event log repository on sqlite
type eventRepo struct {
	db *sql.DB
}

// NewEventRepo creates a new event log repository
func NewEventRepo(dbPath string) (repo.EventRepo, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	// Create events table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			chat_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('TRIGGER', 'MANUAL_RESET', 'UNDO')),
			actor_id TEXT NOT NULL,
			actor_name TEXT NOT NULL DEFAULT '',
			msg_id TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			snapshot TEXT NOT NULL DEFAULT '{}',
			nullified INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (chat_id, seq)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	// Create cached state table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_state (
			chat_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			best_streak INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chat_state table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_chat_kind ON events(chat_id, kind)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_chat_state_best ON chat_state(best_streak)`)

	return &eventRepo{db: db}, nil
}

// NewReadOnlyEventRepo opens an existing event database without creating
// schema, for read-only consumers.
func NewReadOnlyEventRepo(dbPath string) (repo.EventRepo, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &eventRepo{db: db}, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// NextSeq returns the next per-chat sequence number
func (r *eventRepo) NextSeq(ctx context.Context, chatID string) (int64, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM events WHERE chat_id = ?
	`, chatID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max seq: %w", err)
	}
	return max.Int64 + 1, nil
}

// Append persists the event and the updated cached state in one transaction
func (r *eventRepo) Append(ctx context.Context, ev *domain.Event, state domain.ChatState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, ev); err != nil {
		return err
	}
	if err := upsertState(ctx, tx, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	return nil
}

// AppendUndo marks targets nullified, inserts the UNDO event, and replaces
// the cached state, all in one transaction
func (r *eventRepo) AppendUndo(ctx context.Context, ev *domain.Event, targets []int64, state domain.ChatState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, seq := range targets {
		if _, err := tx.ExecContext(ctx, `
			UPDATE events SET nullified = 1 WHERE chat_id = ? AND seq = ?
		`, ev.ChatID, seq); err != nil {
			return fmt.Errorf("failed to nullify event %d: %w", seq, err)
		}
	}

	if err := insertEvent(ctx, tx, ev); err != nil {
		return err
	}
	if err := upsertState(ctx, tx, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit undo: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev *domain.Event) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}
	snapshot, err := json.Marshal(ev.SnapshotBefore)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (chat_id, seq, kind, actor_id, actor_name, msg_id, timestamp, details, snapshot, nullified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`,
		ev.ChatID,
		ev.Seq,
		string(ev.Kind),
		ev.Actor.UserID,
		ev.Actor.Name,
		ev.MsgID,
		ev.Timestamp.UnixNano(),
		string(details),
		string(snapshot),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func upsertState(ctx context.Context, tx *sql.Tx, state domain.ChatState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO chat_state (chat_id, state, best_streak, updated_at)
		VALUES (?, ?, ?, ?)
	`, state.ChatID, string(encoded), int64(state.BestStreak), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// GetState returns the cached projection for a chat
func (r *eventRepo) GetState(ctx context.Context, chatID string) (domain.ChatState, bool, error) {
	var encoded string
	err := r.db.QueryRowContext(ctx, `
		SELECT state FROM chat_state WHERE chat_id = ?
	`, chatID).Scan(&encoded)
	if err == sql.ErrNoRows {
		return domain.ChatState{ChatID: chatID}, false, nil
	}
	if err != nil {
		return domain.ChatState{}, false, fmt.Errorf("failed to query state: %w", err)
	}

	var state domain.ChatState
	if err := json.Unmarshal([]byte(encoded), &state); err != nil {
		return domain.ChatState{}, false, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, true, nil
}

// SaveState replaces the cached projection
func (r *eventRepo) SaveState(ctx context.Context, state domain.ChatState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertState(ctx, tx, state); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// ListByChat returns the chat's full event history ordered by seq
func (r *eventRepo) ListByChat(ctx context.Context, chatID string) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, seq, kind, actor_id, actor_name, msg_id, timestamp, details, snapshot, nullified
		FROM events
		WHERE chat_id = ?
		ORDER BY seq ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Recent returns up to limit events, newest first
func (r *eventRepo) Recent(ctx context.Context, chatID string, limit int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, seq, kind, actor_id, actor_name, msg_id, timestamp, details, snapshot, nullified
		FROM events
		WHERE chat_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var kind, details, snapshot string
		var ts int64
		var nullified int
		if err := rows.Scan(&ev.ChatID, &ev.Seq, &kind, &ev.Actor.UserID, &ev.Actor.Name, &ev.MsgID, &ts, &details, &snapshot, &nullified); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		ev.Timestamp = time.Unix(0, ts)
		ev.Nullified = nullified != 0
		if err := json.Unmarshal([]byte(details), &ev.Details); err != nil {
			return nil, fmt.Errorf("failed to decode event details: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &ev.SnapshotBefore); err != nil {
			return nil, fmt.Errorf("failed to decode event snapshot: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Leaderboard aggregates reset counts per actor over non-nullified events
func (r *eventRepo) Leaderboard(ctx context.Context, chatID string, limit int) ([]domain.BreakerStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT actor_id, actor_name,
			SUM(CASE WHEN kind = 'TRIGGER' THEN 1 ELSE 0 END) AS triggers,
			SUM(CASE WHEN kind = 'MANUAL_RESET' THEN 1 ELSE 0 END) AS manuals
		FROM events
		WHERE chat_id = ? AND nullified = 0 AND kind IN ('TRIGGER', 'MANUAL_RESET')
		GROUP BY actor_id
		ORDER BY triggers + manuals DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var stats []domain.BreakerStat
	for rows.Next() {
		var stat domain.BreakerStat
		if err := rows.Scan(&stat.Actor.UserID, &stat.Actor.Name, &stat.TriggerCount, &stat.ManualCount); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		stat.TotalBreaks = stat.TriggerCount + stat.ManualCount
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// TopChats returns cached states ordered by best streak, longest first
func (r *eventRepo) TopChats(ctx context.Context, limit int) ([]domain.ChatState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT state FROM chat_state ORDER BY best_streak DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top chats: %w", err)
	}
	defer rows.Close()

	var states []domain.ChatState
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("failed to scan chat state: %w", err)
		}
		var state domain.ChatState
		if err := json.Unmarshal([]byte(encoded), &state); err != nil {
			return nil, fmt.Errorf("failed to decode chat state: %w", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// Close closes the database
func (r *eventRepo) Close() error {
	return r.db.Close()
}
