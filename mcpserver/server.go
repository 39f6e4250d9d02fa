package mcpserver

import (
	"context"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

// StreakMCPServer exposes read-only streak tools over MCP
type StreakMCPServer struct {
	server    *mcp.Server
	streakUC  *usecase.StreakUsecase
	triggerUC *usecase.TriggerUsecase
}

var (
	globalServer *StreakMCPServer
	serverMu     sync.Mutex
)

// NewServer creates a new streak MCP server
func NewServer(streakUC *usecase.StreakUsecase, triggerUC *usecase.TriggerUsecase) *StreakMCPServer {
	serverMu.Lock()
	defer serverMu.Unlock()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "streak-tools",
		Version: "v1.0.0",
	}, nil)

	ss := &StreakMCPServer{
		server:    server,
		streakUC:  streakUC,
		triggerUC: triggerUC,
	}

	globalServer = ss

	// Register tools
	ss.registerTools()

	return ss
}

// registerTools registers all streak-related MCP tools
func (s *StreakMCPServer) registerTools() {
	// Tool: counter - current streak for a chat
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "streak_counter",
		Description: "Get the current streak of a chat: how long since the last trigger or reset, plus the best streak on record.",
	}, handleCounter)

	// Tool: leaderboard - who breaks the streak
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "streak_leaderboard",
		Description: "Get the streak-breaker ranking for a chat: who reset the streak and how often.",
	}, handleLeaderboard)

	// Tool: history - recent streak events
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "streak_history",
		Description: "Get the recent streak events of a chat (triggers, manual resets, undos), newest first.",
	}, handleHistory)

	// Tool: triggers - configured rules
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "streak_triggers",
		Description: "List the trigger words and evasion-detection rules configured for a chat.",
	}, handleTriggers)
}

// CounterInput selects the chat
type CounterInput struct {
	ChatID string `json:"chat_id" jsonschema:"description=The chat to query"`
}

// CounterOutput is the current streak state
type CounterOutput struct {
	CurrentStreak string `json:"current_streak"`
	BestStreak    string `json:"best_streak"`
	TotalResets   int    `json:"total_resets"`
	LastBrokenBy  string `json:"last_broken_by,omitempty"`
	Error         string `json:"error,omitempty"`
}

func handleCounter(ctx context.Context, req *mcp.CallToolRequest, input CounterInput) (*mcp.CallToolResult, CounterOutput, error) {
	streak, state, err := globalServer.streakUC.Counter(ctx, input.ChatID)
	if err != nil {
		return nil, CounterOutput{Error: err.Error()}, nil
	}

	out := CounterOutput{
		CurrentStreak: streak.String(),
		BestStreak:    state.BestStreak.String(),
		TotalResets:   state.TotalResets,
	}
	if state.LastResetActor.Name != "" {
		out.LastBrokenBy = state.LastResetActor.Name
	} else {
		out.LastBrokenBy = state.LastResetActor.UserID
	}
	return nil, out, nil
}

// LeaderboardInput selects the chat
type LeaderboardInput struct {
	ChatID string `json:"chat_id" jsonschema:"description=The chat to query"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of rows (default 10)"`
}

// BreakerRow is one leaderboard entry
type BreakerRow struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name,omitempty"`
	TotalBreaks int    `json:"total_breaks"`
	Manual      int    `json:"manual"`
}

// LeaderboardOutput contains the ranking
type LeaderboardOutput struct {
	Breakers []BreakerRow `json:"breakers"`
	Error    string       `json:"error,omitempty"`
}

func handleLeaderboard(ctx context.Context, req *mcp.CallToolRequest, input LeaderboardInput) (*mcp.CallToolResult, LeaderboardOutput, error) {
	stats, err := globalServer.streakUC.Leaderboard(ctx, input.ChatID, input.Limit)
	if err != nil {
		return nil, LeaderboardOutput{Error: err.Error()}, nil
	}

	rows := make([]BreakerRow, len(stats))
	for i, stat := range stats {
		rows[i] = BreakerRow{
			UserID:      stat.Actor.UserID,
			Name:        stat.Actor.Name,
			TotalBreaks: stat.TotalBreaks,
			Manual:      stat.ManualCount,
		}
	}
	return nil, LeaderboardOutput{Breakers: rows}, nil
}

// HistoryInput selects the chat
type HistoryInput struct {
	ChatID string `json:"chat_id" jsonschema:"description=The chat to query"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of events (default 20)"`
}

// HistoryEvent is one event row
type HistoryEvent struct {
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor"`
	Timestamp string `json:"timestamp"`
	Word      string `json:"word,omitempty"`
	Nullified bool   `json:"nullified"`
}

// HistoryOutput contains recent events
type HistoryOutput struct {
	Events []HistoryEvent `json:"events"`
	Error  string         `json:"error,omitempty"`
}

func handleHistory(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	events, err := globalServer.streakUC.History(ctx, input.ChatID, limit)
	if err != nil {
		return nil, HistoryOutput{Error: err.Error()}, nil
	}

	rows := make([]HistoryEvent, len(events))
	for i, ev := range events {
		actor := ev.Actor.Name
		if actor == "" {
			actor = ev.Actor.UserID
		}
		rows[i] = HistoryEvent{
			Seq:       ev.Seq,
			Kind:      string(ev.Kind),
			Actor:     actor,
			Timestamp: ev.Timestamp.Format(time.RFC3339),
			Word:      ev.Details.MatchedWord,
			Nullified: ev.Nullified,
		}
	}
	return nil, HistoryOutput{Events: rows}, nil
}

// TriggersInput selects the chat
type TriggersInput struct {
	ChatID string `json:"chat_id" jsonschema:"description=The chat to query"`
}

// TriggerRow is one rule row
type TriggerRow struct {
	Kind       string `json:"kind"`
	Value      string `json:"value"`
	Variant    string `json:"variant,omitempty"`
	SourceWord string `json:"source_word"`
	Enabled    bool   `json:"enabled"`
}

// TriggersOutput contains the rule list
type TriggersOutput struct {
	Rules []TriggerRow `json:"rules"`
	Error string       `json:"error,omitempty"`
}

func handleTriggers(ctx context.Context, req *mcp.CallToolRequest, input TriggersInput) (*mcp.CallToolResult, TriggersOutput, error) {
	rules, err := globalServer.triggerUC.ListAll(ctx, input.ChatID)
	if err != nil {
		return nil, TriggersOutput{Error: err.Error()}, nil
	}

	rows := make([]TriggerRow, len(rules))
	for i, rule := range rules {
		rows[i] = TriggerRow{
			Kind:       string(rule.Kind),
			Value:      rule.Value,
			Variant:    string(rule.Variant),
			SourceWord: rule.SourceWord,
			Enabled:    rule.Enabled,
		}
	}
	return nil, TriggersOutput{Rules: rows}, nil
}

// Run starts the MCP server on stdio
func (s *StreakMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
