package repo

import "context"

// MessageRepo sends replies back to the chat transport.
type MessageRepo interface {
	SendText(ctx context.Context, chatID, text string) error
}
