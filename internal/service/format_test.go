package service

import (
	"strings"
	"testing"
	"time"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{12*time.Minute + 40*time.Second, "12m 40s"},
		{3 * time.Hour, "3h"},
		{26*time.Hour + 30*time.Minute, "1d 2h"},
		{(24*3 + 7) * time.Hour, "3d 7h"},
		{-time.Minute, "0s"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatCounter_NoHistory(t *testing.T) {
	got := formatCounter(0, domain.ChatState{})
	if !strings.Contains(got, "No streak") {
		t.Errorf("Unexpected empty-state reply: %q", got)
	}
}

func TestFormatCounter_WithHistory(t *testing.T) {
	state := domain.ChatState{
		StreakStart:    time.Now().Add(-2 * time.Hour),
		BestStreak:     5 * time.Hour,
		LastResetAt:    time.Now().Add(-2 * time.Hour),
		LastResetActor: domain.Actor{UserID: "u1", Name: "Ann"},
		LastResetDetails: domain.EventDetails{
			MatchedWord: "котик",
		},
	}

	got := formatCounter(2*time.Hour, state)
	for _, want := range []string{"2h", "5h", "Ann", "котик"} {
		if !strings.Contains(got, want) {
			t.Errorf("Counter reply misses %q: %q", want, got)
		}
	}
}

func TestFormatLeaderboard(t *testing.T) {
	stats := []domain.BreakerStat{
		{Actor: domain.Actor{UserID: "u1", Name: "Ann"}, TriggerCount: 3, TotalBreaks: 3},
		{Actor: domain.Actor{UserID: "u2"}, ManualCount: 1, TotalBreaks: 1},
	}

	got := formatLeaderboard(stats)
	if !strings.Contains(got, "1. Ann") || !strings.Contains(got, "2. u2") {
		t.Errorf("Leaderboard order or names wrong: %q", got)
	}
	if !strings.Contains(got, "(1 manual)") {
		t.Errorf("Manual count missing: %q", got)
	}
}

func TestFormatTriggers_GroupsByWord(t *testing.T) {
	rules := []domain.TriggerRule{
		{Kind: domain.RuleLemma, Value: "котик", SourceWord: "котик", Enabled: true},
		{Kind: domain.RulePattern, Value: "котик_spaced", SourceWord: "котик", Enabled: true},
		{Kind: domain.RulePattern, Value: "котик_translit", SourceWord: "котик", Enabled: false},
	}

	got := formatTriggers(rules)
	if !strings.Contains(got, "• котик") {
		t.Errorf("Word header missing: %q", got)
	}
	if !strings.Contains(got, "котик_spaced [on]") {
		t.Errorf("Enabled rule missing: %q", got)
	}
	if !strings.Contains(got, "котик_translit [off]") {
		t.Errorf("Disabled rule not marked: %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	svc := &StreakService{botName: "streakbot"}

	cases := []struct {
		text     string
		wantCmd  string
		wantArgs string
		wantOK   bool
	}{
		{"/counter", "counter", "", true},
		{"/addword котик", "addword", "котик", true},
		{"/undo 3", "undo", "3", true},
		{"/counter@streakbot", "counter", "", true},
		{"/counter@otherbot", "", "", false},
		{"/reset была причина\nвторая строка", "reset", "была причина", true},
		{"просто текст", "", "", false},
	}

	for _, tc := range cases {
		cmd, args, ok := svc.parseCommand(tc.text)
		if ok != tc.wantOK || cmd != tc.wantCmd || args != tc.wantArgs {
			t.Errorf("parseCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.text, cmd, args, ok, tc.wantCmd, tc.wantArgs, tc.wantOK)
		}
	}
}
