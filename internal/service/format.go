package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

// FormatDuration renders a duration as the two largest non-zero units,
// e.g. "3d 7h" or "12m 40s". A zero duration renders as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	if len(parts) == 0 {
		return "0s"
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}

func actorName(actor domain.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	if actor.UserID != "" {
		return actor.UserID
	}
	return "someone"
}

// formatCounter renders the /counter reply
func formatCounter(streak time.Duration, state domain.ChatState) string {
	if state.StreakStart.IsZero() {
		return "No streak is running yet. It starts with the first reset."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current streak: %s\n", FormatDuration(streak))
	if state.BestStreak > 0 {
		fmt.Fprintf(&b, "Best streak: %s\n", FormatDuration(state.BestStreak))
	}
	if !state.LastResetAt.IsZero() {
		fmt.Fprintf(&b, "Last broken by %s", actorName(state.LastResetActor))
		if word := state.LastResetDetails.MatchedWord; word != "" {
			fmt.Fprintf(&b, " (said %q)", word)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTriggerReply renders the streak-broken announcement
func formatTriggerReply(res domain.Detection, ended time.Duration, newBest bool, actor domain.Actor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💥 %s broke the streak", actorName(actor))
	if res.Word != "" {
		fmt.Fprintf(&b, " with %q", res.Word)
	}
	b.WriteString("!\n")
	if ended > 0 {
		fmt.Fprintf(&b, "The streak lasted %s.", FormatDuration(ended))
		if newBest {
			b.WriteString(" New record!")
		}
	} else {
		b.WriteString("The counter starts now.")
	}
	return b.String()
}

// formatLeaderboard renders the /leaderboard reply
func formatLeaderboard(stats []domain.BreakerStat) string {
	if len(stats) == 0 {
		return "Nobody has broken the streak yet."
	}

	var b strings.Builder
	b.WriteString("🏆 Streak breakers:\n")
	for i, stat := range stats {
		fmt.Fprintf(&b, "%d. %s — %d break(s)", i+1, actorName(stat.Actor), stat.TotalBreaks)
		if stat.ManualCount > 0 {
			fmt.Fprintf(&b, " (%d manual)", stat.ManualCount)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTriggers renders the /triggers reply: words with their rules
func formatTriggers(rules []domain.TriggerRule) string {
	if len(rules) == 0 {
		return "No trigger words configured. Add one with /addword <word>."
	}

	// Group rules under their source word, insertion order
	order := []string{}
	byWord := map[string][]domain.TriggerRule{}
	for _, rule := range rules {
		if _, seen := byWord[rule.SourceWord]; !seen {
			order = append(order, rule.SourceWord)
		}
		byWord[rule.SourceWord] = append(byWord[rule.SourceWord], rule)
	}

	var b strings.Builder
	b.WriteString("Trigger words:\n")
	for _, word := range order {
		fmt.Fprintf(&b, "• %s\n", word)
		for _, rule := range byWord[word] {
			if rule.Kind != domain.RulePattern {
				continue
			}
			mark := "on"
			if !rule.Enabled {
				mark = "off"
			}
			fmt.Fprintf(&b, "    %s [%s]\n", rule.Value, mark)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatUndo renders the /undo reply
func formatUndo(res domain.ChatState, undone []int64, now time.Time) string {
	if len(undone) == 0 {
		return "Nothing to undo."
	}
	return fmt.Sprintf("Rolled back %d event(s). Current streak: %s",
		len(undone), FormatDuration(res.CurrentStreak(now)))
}

// formatHistory renders the /history reply
func formatHistory(events []domain.Event) string {
	if len(events) == 0 {
		return "No events recorded."
	}

	var b strings.Builder
	for _, ev := range events {
		mark := ""
		if ev.Nullified {
			mark = " (undone)"
		}
		fmt.Fprintf(&b, "#%d %s %s by %s%s\n",
			ev.Seq, ev.Timestamp.Format("2006-01-02 15:04"), ev.Kind, actorName(ev.Actor), mark)
	}
	return strings.TrimRight(b.String(), "\n")
}

const helpText = `I track how long this chat survives without the trigger words.

/counter — current streak
/leaderboard — who breaks the streak most
/triggers — configured trigger words and rules
/history [n] — recent reset events
/reset [reason] — reset the streak manually
/undo [n] — roll back the last n resets (default 1)
/addword <word> — add a trigger word with evasion detection
/removeword <word> — remove a word and its rules
/enablerule <rule> — enable a detection rule
/disablerule <rule> — disable a detection rule
/help — this message`
