package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

func TestVerify_ConsistentAfterPersistenceRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "streaks.db")
	events, err := NewEventRepo(dbPath)
	if err != nil {
		t.Fatalf("Failed to open event repo: %v", err)
	}
	defer events.Close()

	locks := usecase.NewChatLocks()
	suc := usecase.NewStreakUsecase(events, nil, locks, 0)
	ctx := context.Background()

	actor := domain.Actor{UserID: "u1", Name: "Ann"}
	if _, err := suc.Reset(ctx, "chat-1", "msg-1", "fresh start", actor); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	// The event's timestamp is stored as unix nanoseconds while the
	// cached projection round-trips through JSON; the two paths can
	// place the same instant in different locations.
	state, err := suc.Verify(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Verify of an untouched state reported divergence: %v", err)
	}
	if state.TotalResets != 1 {
		t.Errorf("TotalResets = %d, want 1", state.TotalResets)
	}

	// A second Verify must also be clean.
	if _, err := suc.Verify(ctx, "chat-1"); err != nil {
		t.Errorf("Repeated Verify failed: %v", err)
	}
}

func TestEventRepo_StateMatchesFold(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "streaks.db")
	events, err := NewEventRepo(dbPath)
	if err != nil {
		t.Fatalf("Failed to open event repo: %v", err)
	}
	defer events.Close()

	locks := usecase.NewChatLocks()
	suc := usecase.NewStreakUsecase(events, nil, locks, 0)
	ctx := context.Background()
	actor := domain.Actor{UserID: "u1", Name: "Ann"}

	for _, msgID := range []string{"m1", "m2", "m3"} {
		if _, err := suc.Reset(ctx, "chat-1", msgID, "", actor); err != nil {
			t.Fatalf("Reset %s failed: %v", msgID, err)
		}
	}

	history, err := events.ListByChat(ctx, "chat-1")
	if err != nil {
		t.Fatalf("ListByChat failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History length = %d, want 3", len(history))
	}

	folded := domain.Fold("chat-1", history, domain.NullifiedSet(history))
	cached, found, err := events.GetState(ctx, "chat-1")
	if err != nil || !found {
		t.Fatalf("GetState = (%v, %v), want cached state", found, err)
	}
	cached.ChatID = "chat-1"

	if !folded.Equal(cached) {
		t.Errorf("Cached state differs from fold:\nfolded: %+v\ncached: %+v", folded, cached)
	}
}
