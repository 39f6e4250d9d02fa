package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

// StreakService routes incoming chat messages: commands go to their
// handlers, everything else runs through trigger detection.
type StreakService struct {
	streakUC    *usecase.StreakUsecase
	triggerUC   *usecase.TriggerUsecase
	messageRepo repo.MessageRepo
	botName     string
}

// NewStreakService creates a new streak service
func NewStreakService(
	streakUC *usecase.StreakUsecase,
	triggerUC *usecase.TriggerUsecase,
	messageRepo repo.MessageRepo,
	botName string,
) *StreakService {
	return &StreakService{
		streakUC:    streakUC,
		triggerUC:   triggerUC,
		messageRepo: messageRepo,
		botName:     botName,
	}
}

// MessageRequest represents an incoming message
type MessageRequest struct {
	ChatID     string
	MsgID      string
	Content    string
	SenderID   string
	SenderName string
}

// HandleMessage processes one incoming message
func (s *StreakService) HandleMessage(ctx context.Context, req *MessageRequest) error {
	actor := domain.Actor{UserID: req.SenderID, Name: req.SenderName}

	if cmd, args, ok := s.parseCommand(req.Content); ok {
		return s.handleCommand(ctx, req, cmd, args, actor)
	}

	res, err := s.streakUC.OnMessage(ctx, req.ChatID, req.MsgID, req.Content, actor)
	if err != nil {
		return fmt.Errorf("process message: %w", err)
	}
	if !res.Detection.Matched {
		return nil
	}

	fmt.Printf("[Service] Streak broken in %s by %s (%s layer, rule %s)\n",
		req.ChatID, req.SenderID, res.Detection.Layer, res.Detection.RuleName)

	return s.reply(ctx, req.ChatID, formatTriggerReply(res.Detection, res.EndedStreak, res.NewBest, actor))
}

// parseCommand recognizes a leading /command token, tolerating a @botname
// suffix. The rest of the first line becomes the arguments.
func (s *StreakService) parseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	line := text
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}

	fields := strings.Fields(line)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		suffix := cmd[at+1:]
		if s.botName != "" && !strings.EqualFold(suffix, s.botName) {
			// Command addressed to another bot
			return "", "", false
		}
		cmd = cmd[:at]
	}

	args := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	return cmd, args, true
}

func (s *StreakService) handleCommand(ctx context.Context, req *MessageRequest, cmd, args string, actor domain.Actor) error {
	fmt.Printf("[Service] Command /%s from %s in %s\n", cmd, req.SenderID, req.ChatID)

	switch cmd {
	case "start", "help":
		return s.reply(ctx, req.ChatID, helpText)

	case "counter":
		streak, state, err := s.streakUC.Counter(ctx, req.ChatID)
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		return s.reply(ctx, req.ChatID, formatCounter(streak, state))

	case "leaderboard":
		stats, err := s.streakUC.Leaderboard(ctx, req.ChatID, 10)
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		return s.reply(ctx, req.ChatID, formatLeaderboard(stats))

	case "history":
		limit := 10
		if args != "" {
			if parsed, err := strconv.Atoi(strings.Fields(args)[0]); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		events, err := s.streakUC.History(ctx, req.ChatID, limit)
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		return s.reply(ctx, req.ChatID, formatHistory(events))

	case "triggers":
		rules, err := s.triggerUC.ListAll(ctx, req.ChatID)
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		return s.reply(ctx, req.ChatID, formatTriggers(rules))

	case "reset":
		res, err := s.streakUC.Reset(ctx, req.ChatID, req.MsgID, args, actor)
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		msg := fmt.Sprintf("Streak reset by %s.", actorName(actor))
		if res.EndedStreak > 0 {
			msg += fmt.Sprintf(" It lasted %s.", FormatDuration(res.EndedStreak))
			if res.NewBest {
				msg += " New record!"
			}
		}
		return s.reply(ctx, req.ChatID, msg)

	case "undo":
		count := 1
		if args != "" {
			parsed, err := strconv.Atoi(strings.Fields(args)[0])
			if err != nil {
				return s.reply(ctx, req.ChatID, "Usage: /undo [n], where n is a number.")
			}
			count = parsed
		}
		res, err := s.streakUC.Undo(ctx, req.ChatID, req.MsgID, count, actor)
		if errors.Is(err, domain.ErrUndoCount) {
			return s.reply(ctx, req.ChatID, fmt.Sprintf("The undo count must be between 1 and %d.", s.streakUC.UndoMax()))
		}
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		return s.reply(ctx, req.ChatID, formatUndo(res.State, res.UndoneSeqs, time.Now()))

	case "addword":
		if args == "" {
			return s.reply(ctx, req.ChatID, "Usage: /addword <word>")
		}
		lemma, variants, err := s.triggerUC.AddWord(ctx, req.ChatID, args, actor)
		switch {
		case errors.Is(err, domain.ErrDuplicateTrigger):
			return s.reply(ctx, req.ChatID, fmt.Sprintf("%q is already a trigger word.", args))
		case errors.Is(err, domain.ErrWordTooShort):
			return s.reply(ctx, req.ChatID, "That word is too short to track.")
		case err != nil:
			return s.replyError(ctx, req.ChatID, err)
		}
		return s.reply(ctx, req.ChatID,
			fmt.Sprintf("Added %q with %d evasion rules. Check them with /triggers.", lemma, len(variants)))

	case "removeword":
		if args == "" {
			return s.reply(ctx, req.ChatID, "Usage: /removeword <word>")
		}
		deleted, err := s.triggerUC.RemoveWord(ctx, req.ChatID, args, actor)
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		if deleted == 0 {
			return s.reply(ctx, req.ChatID, fmt.Sprintf("%q is not a trigger word here.", args))
		}
		return s.reply(ctx, req.ChatID, fmt.Sprintf("Removed %q and %d rule(s).", args, deleted))

	case "enablerule", "disablerule":
		if args == "" {
			return s.reply(ctx, req.ChatID, fmt.Sprintf("Usage: /%s <rule>", cmd))
		}
		var err error
		if cmd == "enablerule" {
			err = s.triggerUC.Enable(ctx, req.ChatID, args, actor)
		} else {
			err = s.triggerUC.Disable(ctx, req.ChatID, args, actor)
		}
		if errors.Is(err, domain.ErrRuleNotFound) {
			return s.reply(ctx, req.ChatID, fmt.Sprintf("No rule named %q. See /triggers.", args))
		}
		if err != nil {
			return s.replyError(ctx, req.ChatID, err)
		}
		state := "enabled"
		if cmd == "disablerule" {
			state = "disabled"
		}
		return s.reply(ctx, req.ChatID, fmt.Sprintf("Rule %q %s.", args, state))

	default:
		// Unknown commands are ignored; they may belong to another bot
		return nil
	}
}

func (s *StreakService) reply(ctx context.Context, chatID, text string) error {
	if err := s.messageRepo.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (s *StreakService) replyError(ctx context.Context, chatID string, err error) error {
	fmt.Printf("[Service] Error: %v\n", err)
	_ = s.messageRepo.SendText(ctx, chatID, "Something went wrong, try again later.")
	return err
}
