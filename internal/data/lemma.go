package data

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
)

// Common inflectional endings tried longest-first when a word form is
// not in the dictionary. A stripped stem is accepted only when it is a
// known lemma, so the heuristic never invents new canonical forms.
var inflectionSuffixes = []string{
	"ами", "ями", "ов", "ев", "ей", "ам", "ям", "ах", "ях",
	"ом", "ем", "ой", "у", "ю", "а", "я", "е", "и", "ы", "о",
	"ies", "ing", "ed", "es", "s",
}

// dictLemmatizer is a static dictionary lemmatizer. It serves as the
// default normalizer and as the fallback when no remote normalizer is
// configured; unknown words come back unchanged.
type dictLemmatizer struct {
	dict   map[string]string
	lemmas map[string]bool
}

// NewDictLemmatizer creates a lemmatizer over a word-form dictionary.
// Keys and values are normalized to lowercase.
func NewDictLemmatizer(dict map[string]string) repo.Lemmatizer {
	normalized := make(map[string]string, len(dict))
	lemmas := make(map[string]bool, len(dict))
	for form, lemma := range dict {
		normalized[strings.ToLower(form)] = strings.ToLower(lemma)
		lemmas[strings.ToLower(lemma)] = true
	}
	return &dictLemmatizer{dict: normalized, lemmas: lemmas}
}

// Normalize returns the canonical lemma for a word form
func (l *dictLemmatizer) Normalize(ctx context.Context, word, langHint string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if lemma, ok := l.dict[word]; ok {
		return lemma, nil
	}
	for _, suffix := range inflectionSuffixes {
		stem := strings.TrimSuffix(word, suffix)
		if stem == word || utf8.RuneCountInString(stem) < 3 {
			continue
		}
		if l.lemmas[stem] {
			return stem, nil
		}
		if lemma, ok := l.dict[stem]; ok {
			return lemma, nil
		}
	}
	return word, nil
}
