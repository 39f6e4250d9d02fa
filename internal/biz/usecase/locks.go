package usecase

import "sync"

// ChatLocks hands out one mutex per chat id so every mutating operation
// on a chat (event append, undo, rule changes) is serialized through a
// single ordering boundary while distinct chats proceed in parallel.
type ChatLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChatLocks creates an empty lock registry. One instance is shared by
// all usecases that mutate per-chat state.
func NewChatLocks() *ChatLocks {
	return &ChatLocks{locks: make(map[string]*sync.Mutex)}
}

// ForChat returns the chat's mutex, creating it on first use.
func (l *ChatLocks) ForChat(chatID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[chatID] = lock
	}
	return lock
}
