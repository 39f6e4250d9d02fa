package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
)

// DefaultRuleCacheTTL bounds how stale a chat's cached rule set may get
// without an explicit mutation.
const DefaultRuleCacheTTL = 5 * time.Minute

// TriggerUsecase manages a chat's trigger rules: the mutable lemma and
// pattern rule set, its TTL'd read cache, and the seeding of default
// trigger words for chats seen for the first time.
type TriggerUsecase struct {
	triggerRepo repo.TriggerRepo
	lemmatizer  repo.Lemmatizer
	compiler    *PatternCompiler
	locks       *ChatLocks
	defaults    []string
	cacheTTL    time.Duration

	cacheMu sync.RWMutex
	cache   map[string]*ruleCacheEntry
}

// ruleCacheEntry is an immutable cache record. Mutations replace the
// whole entry (copy-on-write) so concurrent readers never observe a
// partially updated rule set.
type ruleCacheEntry struct {
	rules   *domain.RuleSet
	all     []domain.TriggerRule
	expires time.Time
}

// NewTriggerUsecase creates the trigger registry usecase. defaults are
// the trigger words seeded into a chat's rule set on first use.
func NewTriggerUsecase(
	triggerRepo repo.TriggerRepo,
	lemmatizer repo.Lemmatizer,
	compiler *PatternCompiler,
	locks *ChatLocks,
	defaults []string,
	cacheTTL time.Duration,
) *TriggerUsecase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultRuleCacheTTL
	}
	return &TriggerUsecase{
		triggerRepo: triggerRepo,
		lemmatizer:  lemmatizer,
		compiler:    compiler,
		locks:       locks,
		defaults:    defaults,
		cacheTTL:    cacheTTL,
		cache:       make(map[string]*ruleCacheEntry),
	}
}

// ActiveRules returns the chat's enabled rules grouped for matching,
// served from the per-chat cache when fresh.
func (uc *TriggerUsecase) ActiveRules(ctx context.Context, chatID string) (*domain.RuleSet, error) {
	uc.cacheMu.RLock()
	entry, ok := uc.cache[chatID]
	uc.cacheMu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.rules, nil
	}

	entry, err := uc.refresh(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return entry.rules, nil
}

// ListAll returns every rule for the chat, including disabled ones and
// pattern sources, for display.
func (uc *TriggerUsecase) ListAll(ctx context.Context, chatID string) ([]domain.TriggerRule, error) {
	uc.cacheMu.RLock()
	entry, ok := uc.cache[chatID]
	uc.cacheMu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.all, nil
	}

	entry, err := uc.refresh(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return entry.all, nil
}

// AddLemma normalizes the word to its canonical lemma and inserts an
// enabled lemma rule. Case-insensitive duplicates are rejected.
func (uc *TriggerUsecase) AddLemma(ctx context.Context, chatID, word string, actor domain.Actor) (string, error) {
	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	lemma, err := uc.canonicalize(ctx, word)
	if err != nil {
		return "", err
	}

	if exists, err := uc.triggerRepo.HasLemma(ctx, chatID, lemma); err != nil {
		return "", fmt.Errorf("check lemma: %w", err)
	} else if exists {
		return "", domain.ErrDuplicateTrigger
	}

	if err := uc.triggerRepo.InsertRules(ctx, []domain.TriggerRule{lemmaRule(chatID, lemma, actor)}); err != nil {
		return "", err
	}

	if _, err := uc.refresh(ctx, chatID); err != nil {
		return "", err
	}
	return lemma, nil
}

// AddWord adds a lemma rule plus the full generated variant-pattern set
// for the word. All rules are created atomically or none at all.
func (uc *TriggerUsecase) AddWord(ctx context.Context, chatID, word string, actor domain.Actor) (string, []Variant, error) {
	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	lemma, err := uc.canonicalize(ctx, word)
	if err != nil {
		return "", nil, err
	}

	if exists, err := uc.triggerRepo.HasLemma(ctx, chatID, lemma); err != nil {
		return "", nil, fmt.Errorf("check lemma: %w", err)
	} else if exists {
		return "", nil, domain.ErrDuplicateTrigger
	}

	variants := uc.compiler.GenerateVariants(lemma)
	rules := make([]domain.TriggerRule, 0, len(variants)+1)
	rules = append(rules, lemmaRule(chatID, lemma, actor))
	for _, v := range variants {
		rules = append(rules, domain.TriggerRule{
			ChatID:     chatID,
			Kind:       domain.RulePattern,
			Value:      v.RuleName,
			Pattern:    v.Source,
			Variant:    v.Kind,
			SourceWord: lemma,
			Enabled:    true,
			AddedBy:    actor.UserID,
			AddedAt:    time.Now(),
		})
	}

	if err := uc.triggerRepo.InsertRules(ctx, rules); err != nil {
		return "", nil, err
	}

	if _, err := uc.refresh(ctx, chatID); err != nil {
		return "", nil, err
	}
	return lemma, variants, nil
}

// RemoveWord deletes the word's lemma rule and every pattern rule derived
// from it. Returns the number of deleted rules; zero means the word was
// not configured.
func (uc *TriggerUsecase) RemoveWord(ctx context.Context, chatID, word string, actor domain.Actor) (int, error) {
	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	lemma, err := uc.canonicalize(ctx, word)
	if err != nil {
		return 0, err
	}

	deleted, err := uc.triggerRepo.DeleteBySourceWord(ctx, chatID, lemma)
	if err != nil {
		return 0, fmt.Errorf("delete trigger rules: %w", err)
	}

	if _, err := uc.refresh(ctx, chatID); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Enable turns a rule on by name.
func (uc *TriggerUsecase) Enable(ctx context.Context, chatID, ruleName string, actor domain.Actor) error {
	return uc.setEnabled(ctx, chatID, ruleName, true)
}

// Disable turns a rule off by name.
func (uc *TriggerUsecase) Disable(ctx context.Context, chatID, ruleName string, actor domain.Actor) error {
	return uc.setEnabled(ctx, chatID, ruleName, false)
}

func (uc *TriggerUsecase) setEnabled(ctx context.Context, chatID, ruleName string, enabled bool) error {
	lock := uc.locks.ForChat(chatID)
	lock.Lock()
	defer lock.Unlock()

	found, err := uc.triggerRepo.SetEnabled(ctx, chatID, strings.TrimSpace(ruleName), enabled)
	if err != nil {
		return fmt.Errorf("toggle rule: %w", err)
	}
	if !found {
		return domain.ErrRuleNotFound
	}

	_, err = uc.refresh(ctx, chatID)
	return err
}

// canonicalize lowercases, trims, and lemmatizes a user-supplied word.
func (uc *TriggerUsecase) canonicalize(ctx context.Context, word string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if utf8.RuneCountInString(word) < 2 {
		return "", domain.ErrWordTooShort
	}

	lemma, err := uc.lemmatizer.Normalize(ctx, word, "")
	if err != nil {
		// The normalizer may not know the word; use it as-is.
		lemma = word
	}
	lemma = strings.ToLower(strings.TrimSpace(lemma))
	if lemma == "" {
		lemma = word
	}
	return lemma, nil
}

// refresh rebuilds the chat's rule cache entry from the repository and
// swaps it in wholesale. First use of a chat seeds the default words.
func (uc *TriggerUsecase) refresh(ctx context.Context, chatID string) (*ruleCacheEntry, error) {
	all, err := uc.triggerRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list trigger rules: %w", err)
	}

	if len(all) == 0 && len(uc.defaults) > 0 {
		// Seeding runs on the read path, so a concurrent first read of
		// the same chat may seed in between our list and insert. The
		// loser's duplicate insert is benign; the rules exist either way.
		if err := uc.seedDefaults(ctx, chatID); err != nil && !errors.Is(err, domain.ErrDuplicateTrigger) {
			return nil, err
		}
		all, err = uc.triggerRepo.ListByChat(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("list trigger rules: %w", err)
		}
	}

	rules := &domain.RuleSet{Lemmas: make(map[string]bool)}
	for _, rule := range all {
		if !rule.Enabled {
			continue
		}
		switch rule.Kind {
		case domain.RuleLemma:
			rules.Lemmas[strings.ToLower(rule.Value)] = true
		case domain.RulePattern:
			rules.Patterns = append(rules.Patterns, rule)
		}
	}

	entry := &ruleCacheEntry{rules: rules, all: all, expires: time.Now().Add(uc.cacheTTL)}
	uc.cacheMu.Lock()
	uc.cache[chatID] = entry
	uc.cacheMu.Unlock()
	return entry, nil
}

// seedDefaults copies the configured default trigger words into a chat
// that has no rules yet.
func (uc *TriggerUsecase) seedDefaults(ctx context.Context, chatID string) error {
	system := domain.Actor{UserID: "system"}
	var rules []domain.TriggerRule
	for _, word := range uc.defaults {
		lemma, err := uc.canonicalize(ctx, word)
		if err != nil {
			continue
		}
		rules = append(rules, lemmaRule(chatID, lemma, system))
		for _, v := range uc.compiler.GenerateVariants(lemma) {
			rules = append(rules, domain.TriggerRule{
				ChatID:     chatID,
				Kind:       domain.RulePattern,
				Value:      v.RuleName,
				Pattern:    v.Source,
				Variant:    v.Kind,
				SourceWord: lemma,
				Enabled:    true,
				AddedBy:    system.UserID,
				AddedAt:    time.Now(),
			})
		}
	}
	if len(rules) == 0 {
		return nil
	}
	if err := uc.triggerRepo.InsertRules(ctx, rules); err != nil {
		return fmt.Errorf("seed default triggers: %w", err)
	}
	fmt.Printf("[Triggers] Seeded %d default rules for chat %s\n", len(rules), chatID)
	return nil
}

func lemmaRule(chatID, lemma string, actor domain.Actor) domain.TriggerRule {
	return domain.TriggerRule{
		ChatID:     chatID,
		Kind:       domain.RuleLemma,
		Value:      lemma,
		SourceWord: lemma,
		Enabled:    true,
		AddedBy:    actor.UserID,
		AddedAt:    time.Now(),
	}
}
