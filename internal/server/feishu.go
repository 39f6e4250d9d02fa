package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/infra/feishu"
	"github.com/Kirun13/gigachat-bot-v2/internal/service"
)

// FeishuServer receives Feishu messages and feeds them to the streak
// service
type FeishuServer struct {
	feishuClient *feishu.Client
	streakSvc    *service.StreakService

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(feishuClient *feishu.Client, streakSvc *service.StreakService) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		streakSvc:    streakSvc,
		seenMsgs:     make(map[string]time.Time),
	}
}

// Start starts the server
func (s *FeishuServer) Start() error {
	go s.cleanupLoop()

	s.feishuClient.OnMessage(s.handleMessage)
	return s.feishuClient.Start()
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.feishuClient.Stop()
}

// handleMessage handles one Feishu message
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	// Message deduplication: Feishu redelivers on slow ACKs
	if s.isMessageSeen(msg.MsgID) {
		fmt.Printf("[Server] Duplicate message ignored: %s\n", msg.MsgID)
		return
	}
	s.markMessageSeen(msg.MsgID)

	req := &service.MessageRequest{
		ChatID:     msg.ChatID,
		MsgID:      msg.MsgID,
		Content:    msg.Content,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
	}

	// Each message gets its own goroutine; per-chat ordering is enforced
	// by the chat locks inside the usecases
	go func() {
		if err := s.streakSvc.HandleMessage(context.Background(), req); err != nil {
			fmt.Printf("[Server] Handle message error: %v\n", err)
		}
	}()
}

// isMessageSeen checks if a message has been processed
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.RLock()
	defer s.seenMsgsMu.RUnlock()
	_, seen := s.seenMsgs[msgID]
	return seen
}

// markMessageSeen records a processed message
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()
}

// cleanupLoop evicts dedup entries older than 5 minutes
func (s *FeishuServer) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-5 * time.Minute)
		s.seenMsgsMu.Lock()
		for msgID, seen := range s.seenMsgs {
			if seen.Before(cutoff) {
				delete(s.seenMsgs, msgID)
			}
		}
		s.seenMsgsMu.Unlock()
	}
}
