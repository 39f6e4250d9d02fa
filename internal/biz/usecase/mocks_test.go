package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

// Mock implementations

type mockEventRepo struct {
	events map[string][]domain.Event
	states map[string]domain.ChatState
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{
		events: make(map[string][]domain.Event),
		states: make(map[string]domain.ChatState),
	}
}

func (m *mockEventRepo) NextSeq(ctx context.Context, chatID string) (int64, error) {
	return int64(len(m.events[chatID]) + 1), nil
}

func (m *mockEventRepo) Append(ctx context.Context, ev *domain.Event, state domain.ChatState) error {
	m.events[ev.ChatID] = append(m.events[ev.ChatID], *ev)
	m.states[ev.ChatID] = state
	return nil
}

func (m *mockEventRepo) AppendUndo(ctx context.Context, ev *domain.Event, targets []int64, state domain.ChatState) error {
	nullified := make(map[int64]bool, len(targets))
	for _, seq := range targets {
		nullified[seq] = true
	}
	events := m.events[ev.ChatID]
	for i := range events {
		if nullified[events[i].Seq] {
			events[i].Nullified = true
		}
	}
	m.events[ev.ChatID] = append(events, *ev)
	m.states[ev.ChatID] = state
	return nil
}

func (m *mockEventRepo) GetState(ctx context.Context, chatID string) (domain.ChatState, bool, error) {
	state, ok := m.states[chatID]
	return state, ok, nil
}

func (m *mockEventRepo) SaveState(ctx context.Context, state domain.ChatState) error {
	m.states[state.ChatID] = state
	return nil
}

func (m *mockEventRepo) ListByChat(ctx context.Context, chatID string) ([]domain.Event, error) {
	return append([]domain.Event(nil), m.events[chatID]...), nil
}

func (m *mockEventRepo) Recent(ctx context.Context, chatID string, limit int) ([]domain.Event, error) {
	events := m.events[chatID]
	var result []domain.Event
	for i := len(events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, events[i])
	}
	return result, nil
}

func (m *mockEventRepo) Leaderboard(ctx context.Context, chatID string, limit int) ([]domain.BreakerStat, error) {
	byActor := make(map[string]*domain.BreakerStat)
	for _, ev := range m.events[chatID] {
		if ev.Nullified || ev.Kind == domain.EventUndo {
			continue
		}
		stat, ok := byActor[ev.Actor.UserID]
		if !ok {
			stat = &domain.BreakerStat{Actor: ev.Actor}
			byActor[ev.Actor.UserID] = stat
		}
		switch ev.Kind {
		case domain.EventTrigger:
			stat.TriggerCount++
		case domain.EventManualReset:
			stat.ManualCount++
		}
		stat.TotalBreaks++
	}
	var result []domain.BreakerStat
	for _, stat := range byActor {
		result = append(result, *stat)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TotalBreaks > result[j].TotalBreaks
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockEventRepo) TopChats(ctx context.Context, limit int) ([]domain.ChatState, error) {
	var result []domain.ChatState
	for _, state := range m.states {
		result = append(result, state)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BestStreak > result[j].BestStreak
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockEventRepo) Close() error {
	return nil
}

type mockTriggerRepo struct {
	rules map[string][]domain.TriggerRule
}

func newMockTriggerRepo() *mockTriggerRepo {
	return &mockTriggerRepo{rules: make(map[string][]domain.TriggerRule)}
}

func (m *mockTriggerRepo) ListByChat(ctx context.Context, chatID string) ([]domain.TriggerRule, error) {
	return append([]domain.TriggerRule(nil), m.rules[chatID]...), nil
}

func (m *mockTriggerRepo) InsertRules(ctx context.Context, rules []domain.TriggerRule) error {
	for _, rule := range rules {
		for _, existing := range m.rules[rule.ChatID] {
			if existing.Kind == rule.Kind && strings.EqualFold(existing.Value, rule.Value) {
				return domain.ErrDuplicateTrigger
			}
		}
	}
	for _, rule := range rules {
		m.rules[rule.ChatID] = append(m.rules[rule.ChatID], rule)
	}
	return nil
}

func (m *mockTriggerRepo) DeleteBySourceWord(ctx context.Context, chatID, word string) (int, error) {
	var kept []domain.TriggerRule
	deleted := 0
	for _, rule := range m.rules[chatID] {
		if strings.EqualFold(rule.SourceWord, word) {
			deleted++
			continue
		}
		kept = append(kept, rule)
	}
	m.rules[chatID] = kept
	return deleted, nil
}

func (m *mockTriggerRepo) SetEnabled(ctx context.Context, chatID, ruleName string, enabled bool) (bool, error) {
	rules := m.rules[chatID]
	for i := range rules {
		if strings.EqualFold(rules[i].Value, ruleName) {
			rules[i].Enabled = enabled
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTriggerRepo) HasLemma(ctx context.Context, chatID, lemma string) (bool, error) {
	for _, rule := range m.rules[chatID] {
		if rule.Kind == domain.RuleLemma && strings.EqualFold(rule.Value, lemma) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTriggerRepo) Close() error {
	return nil
}

// mockLemmatizer maps inflected forms to lemmas; unknown words come back
// unchanged.
type mockLemmatizer struct {
	dict map[string]string
}

func (m *mockLemmatizer) Normalize(ctx context.Context, word, langHint string) (string, error) {
	if lemma, ok := m.dict[strings.ToLower(word)]; ok {
		return lemma, nil
	}
	return word, nil
}

// Shared fixtures

func testTables() VariantTables {
	return VariantTables{
		Translit: map[rune]string{
			'к': "k",
			'о': "o",
			'т': "t",
		},
		Confusable: map[rune]string{
			'o': "0о",
			'e': "3е",
			'a': "@а",
		},
	}
}

func newTestCompiler() *PatternCompiler {
	return NewPatternCompiler(testTables(), 0)
}

func newTestTriggers(triggers *mockTriggerRepo, defaults []string) (*TriggerUsecase, *DetectionUsecase) {
	lemmatizer := &mockLemmatizer{dict: map[string]string{
		"котики": "котик",
		"котика": "котик",
		"tests":  "test",
	}}
	compiler := newTestCompiler()
	locks := NewChatLocks()
	tuc := NewTriggerUsecase(triggers, lemmatizer, compiler, locks, defaults, 0)
	duc := NewDetectionUsecase(tuc, lemmatizer, compiler, NewExclusionFilter(nil))
	return tuc, duc
}
