package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

// Server provides a read-mostly HTTP API over the streak state
type Server struct {
	streakUC  *usecase.StreakUsecase
	triggerUC *usecase.TriggerUsecase

	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(streakUC *usecase.StreakUsecase, triggerUC *usecase.TriggerUsecase, port int) *Server {
	return &Server{
		streakUC:  streakUC,
		triggerUC: triggerUC,
		port:      port,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Per-chat streak views
	mux.HandleFunc("/api/chat/", s.handleChat)

	// Cross-chat ranking
	mux.HandleFunc("/api/topchats", s.handleTopChats)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: mux,
	}

	fmt.Printf("[API] Starting HTTP server on port %d\n", s.port)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// handleChat routes /api/chat/{chatID}/{action}
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "expected /api/chat/{chat_id}/{action}", http.StatusNotFound)
		return
	}
	chatID := parts[0]
	action := parts[1]

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "counter":
		s.handleCounter(w, r, chatID)
	case "leaderboard":
		s.handleLeaderboard(w, r, chatID)
	case "history":
		s.handleHistory(w, r, chatID)
	case "triggers":
		s.handleTriggers(w, r, chatID)
	case "verify":
		s.handleVerify(w, r, chatID)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func (s *Server) handleCounter(w http.ResponseWriter, r *http.Request, chatID string) {
	streak, state, err := s.streakUC.Counter(r.Context(), chatID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"chat_id":        chatID,
		"current_streak": streak.String(),
		"state":          state,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, chatID string) {
	stats, err := s.streakUC.Leaderboard(r.Context(), chatID, queryLimit(r, 10))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"leaderboard": stats})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, chatID string) {
	events, err := s.streakUC.History(r.Context(), chatID, queryLimit(r, 20))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]map[string]interface{}, len(events))
	for i, ev := range events {
		result[i] = map[string]interface{}{
			"seq":       ev.Seq,
			"kind":      ev.Kind,
			"actor":     ev.Actor,
			"timestamp": ev.Timestamp.Format(time.RFC3339),
			"details":   ev.Details,
			"nullified": ev.Nullified,
		}
	}

	s.writeJSON(w, map[string]interface{}{"events": result})
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request, chatID string) {
	rules, err := s.triggerUC.ListAll(r.Context(), chatID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]map[string]interface{}, len(rules))
	for i, rule := range rules {
		result[i] = map[string]interface{}{
			"kind":        rule.Kind,
			"value":       rule.Value,
			"variant":     rule.Variant,
			"source_word": rule.SourceWord,
			"enabled":     rule.Enabled,
		}
	}

	s.writeJSON(w, map[string]interface{}{"rules": result})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, chatID string) {
	state, err := s.streakUC.Verify(r.Context(), chatID)
	if errors.Is(err, domain.ErrStateDiverged) {
		s.writeJSON(w, map[string]interface{}{"consistent": false, "repaired": true, "state": state})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"consistent": true, "state": state})
}

func (s *Server) handleTopChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	chats, err := s.streakUC.TopChats(r.Context(), queryLimit(r, 10))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"chats": chats})
}

func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			return parsed
		}
	}
	return def
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
