package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
)

// DetectionUsecase runs a message through the two detection layers. The
// lemma layer catches plain and inflected forms of a trigger word; the
// pattern layer catches the generated evasion variants. Matches that fall
// entirely inside an excluded span (quotes, URLs, commands) are discarded.
type DetectionUsecase struct {
	triggers   *TriggerUsecase
	lemmatizer repo.Lemmatizer
	compiler   *PatternCompiler
	exclusions *ExclusionFilter
}

// NewDetectionUsecase creates the detection usecase.
func NewDetectionUsecase(
	triggers *TriggerUsecase,
	lemmatizer repo.Lemmatizer,
	compiler *PatternCompiler,
	exclusions *ExclusionFilter,
) *DetectionUsecase {
	return &DetectionUsecase{
		triggers:   triggers,
		lemmatizer: lemmatizer,
		compiler:   compiler,
		exclusions: exclusions,
	}
}

// Detect checks the message text against the chat's active rules and
// returns the first surviving match. The lemma layer always wins over the
// pattern layer; within a layer the earlier match wins (leftmost token for
// lemmas, rule insertion order for patterns). Detect never writes state.
func (uc *DetectionUsecase) Detect(ctx context.Context, chatID, text string) (domain.Detection, error) {
	rules, err := uc.triggers.ActiveRules(ctx, chatID)
	if err != nil {
		return domain.Detection{}, err
	}
	if len(rules.Lemmas) == 0 && len(rules.Patterns) == 0 {
		return domain.Detection{}, nil
	}

	excluded := uc.exclusions.ExcludedSpans(text)

	if d, ok := uc.detectLemma(ctx, text, rules, excluded); ok {
		return d, nil
	}
	return uc.detectPattern(text, rules, excluded)
}

// detectLemma tokenizes the message into letter runs and looks each token
// up by its lowercase form and its lemma, leftmost token first.
func (uc *DetectionUsecase) detectLemma(ctx context.Context, text string, rules *domain.RuleSet, excluded []domain.Span) (domain.Detection, bool) {
	for _, tok := range tokenize(text) {
		if containedInAny(tok.span, excluded) {
			continue
		}

		lower := strings.ToLower(tok.text)
		if rules.Lemmas[lower] {
			return domain.Detection{
				Matched: true,
				Layer:   domain.MatchLemma,
				Word:    tok.text,
				Lemma:   lower,
				Span:    tok.span,
			}, true
		}

		lemma, err := uc.lemmatizer.Normalize(ctx, lower, "")
		if err != nil || lemma == "" {
			continue
		}
		lemma = strings.ToLower(lemma)
		if lemma != lower && rules.Lemmas[lemma] {
			return domain.Detection{
				Matched: true,
				Layer:   domain.MatchLemma,
				Word:    tok.text,
				Lemma:   lemma,
				Span:    tok.span,
			}, true
		}
	}
	return domain.Detection{}, false
}

// detectPattern runs each enabled pattern rule in insertion order against
// the message. Diacritic patterns run against the canonically decomposed
// text, with matches mapped back to byte offsets in the original.
func (uc *DetectionUsecase) detectPattern(text string, rules *domain.RuleSet, excluded []domain.Span) (domain.Detection, error) {
	var decomposed string
	var offsets []int

	for _, rule := range rules.Patterns {
		re, err := uc.compiler.Compile(rule.Pattern)
		if err != nil {
			return domain.Detection{}, fmt.Errorf("compile rule %s: %w", rule.Value, err)
		}

		haystack := text
		if rule.Variant == domain.VariantDiacritic {
			if offsets == nil {
				decomposed, offsets = decomposeWithOffsets(text)
			}
			haystack = decomposed
		}

		for _, m := range re.FindAllStringSubmatchIndex(haystack, -1) {
			// Group 1 is the word itself, without the boundary guards.
			span := domain.Span{Start: m[2], End: m[3]}
			if rule.Variant == domain.VariantDiacritic {
				span = mapSpan(span, offsets, text)
			}
			if containedInAny(span, excluded) {
				continue
			}
			return domain.Detection{
				Matched:  true,
				Layer:    domain.MatchPattern,
				Word:     text[span.Start:span.End],
				RuleName: rule.Value,
				Span:     span,
			}, nil
		}
	}
	return domain.Detection{}, nil
}

// token is a maximal run of letters with its byte span in the source text.
type token struct {
	text string
	span domain.Span
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: text[start:i], span: domain.Span{Start: start, End: i}})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: text[start:], span: domain.Span{Start: start, End: len(text)}})
	}
	return tokens
}

func containedInAny(span domain.Span, excluded []domain.Span) bool {
	for _, e := range excluded {
		if span.Within(e) {
			return true
		}
	}
	return false
}

// decomposeWithOffsets returns text in NFD form plus, for every byte of
// the decomposed string, the offset of the originating rune in text.
func decomposeWithOffsets(text string) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(text))
	for i, r := range text {
		d := norm.NFD.String(string(r))
		b.WriteString(d)
		for j := 0; j < len(d); j++ {
			offsets = append(offsets, i)
		}
	}
	return b.String(), offsets
}

// mapSpan converts a byte span in the decomposed text back to a span in
// the original. The end is extended through the full originating rune.
func mapSpan(span domain.Span, offsets []int, text string) domain.Span {
	if span.End <= span.Start || span.End > len(offsets) {
		return span
	}
	start := offsets[span.Start]
	lastOrigin := offsets[span.End-1]
	_, size := utf8.DecodeRuneInString(text[lastOrigin:])
	return domain.Span{Start: start, End: lastOrigin + size}
}
