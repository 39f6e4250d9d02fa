package data

import (
	"context"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
	"github.com/Kirun13/gigachat-bot-v2/internal/infra/feishu"
)

// feishuRepo implements the outbound message repository on Feishu
type feishuRepo struct {
	client *feishu.Client
}

// NewFeishuRepo creates a new Feishu message repository
func NewFeishuRepo(client *feishu.Client) repo.MessageRepo {
	return &feishuRepo{client: client}
}

// SendText sends a text message to a chat
func (r *feishuRepo) SendText(ctx context.Context, chatID, text string) error {
	return r.client.SendText(chatID, text)
}
