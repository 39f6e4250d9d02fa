package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

// VariantTables holds the configured character tables and parameters for
// variant generation. Tables are supplied at startup and never mutated.
type VariantTables struct {
	Translit     map[rune]string // cross-script phonetic counterparts
	Confusable   map[rune]string // look-alike characters and digits
	ZeroWidth    []rune          // invisible formatting characters
	MinWordLen   int             // words shorter than this get no variants
	MaxSeparator int             // max separator width for SPACED patterns
}

// Variant is one generated pattern rule for a canonical word.
type Variant struct {
	RuleName string
	Source   string
	Kind     domain.VariantKind
}

// PatternCompiler generates evasion-pattern sources for canonical words
// and compiles them into cached matchers. Generation is deterministic and
// idempotent; every generated source is guaranteed to compile because all
// word characters are escaped before template substitution.
type PatternCompiler struct {
	tables VariantTables

	mu       sync.Mutex
	cache    map[string]*compiledPattern
	cacheCap int
}

type compiledPattern struct {
	re       *regexp.Regexp
	lastUsed time.Time
}

// NewPatternCompiler creates a pattern compiler with a bounded matcher
// cache. cacheCap <= 0 selects the default of 256 entries.
func NewPatternCompiler(tables VariantTables, cacheCap int) *PatternCompiler {
	if tables.MinWordLen <= 0 {
		tables.MinWordLen = 3
	}
	if tables.MaxSeparator <= 0 {
		tables.MaxSeparator = 2
	}
	if len(tables.ZeroWidth) == 0 {
		tables.ZeroWidth = []rune{'\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad', '\u2060'}
	}
	if cacheCap <= 0 {
		cacheCap = 256
	}
	return &PatternCompiler{
		tables:   tables,
		cache:    make(map[string]*compiledPattern),
		cacheCap: cacheCap,
	}
}

// GenerateVariants produces the ordered, named variant set for a word.
// Identical input always yields identical output, so re-invocation after
// a partial failure is safe. Words below the minimum length yield nil.
func (c *PatternCompiler) GenerateVariants(word string) []Variant {
	word = strings.ToLower(strings.TrimSpace(word))
	runes := []rune(word)
	if len(runes) < c.tables.MinWordLen {
		return nil
	}

	var variants []Variant
	add := func(kind domain.VariantKind, source string) {
		variants = append(variants, Variant{
			RuleName: domain.RuleName(word, kind),
			Source:   source,
			Kind:     kind,
		})
	}

	if src, ok := c.translitSource(runes); ok {
		add(domain.VariantTranslit, src)
	}
	if src, ok := c.lookalikeSource(runes); ok {
		add(domain.VariantLookalike, src)
	}
	add(domain.VariantSpaced, c.spacedSource(runes))
	add(domain.VariantZeroWidth, c.zeroWidthSource(runes))
	add(domain.VariantDiacritic, c.diacriticSource(word))
	add(domain.VariantMultimodal, c.multimodalSource(runes))

	return variants
}

// translitSource builds a per-letter alternation against the phonetic
// table. Skipped when no letter of the word has a counterpart.
func (c *PatternCompiler) translitSource(runes []rune) (string, bool) {
	var b strings.Builder
	mapped := false
	for _, r := range runes {
		alt, ok := c.tables.Translit[r]
		if !ok {
			b.WriteString(escapeRune(r))
			continue
		}
		mapped = true
		b.WriteString("(?:" + escapeRune(r) + "|" + regexp.QuoteMeta(alt) + ")")
	}
	return b.String(), mapped
}

// lookalikeSource builds a per-letter union class of confusable
// characters. Skipped when no letter has confusables.
func (c *PatternCompiler) lookalikeSource(runes []rune) (string, bool) {
	var b strings.Builder
	mapped := false
	for _, r := range runes {
		conf, ok := c.tables.Confusable[r]
		if !ok {
			b.WriteString(escapeRune(r))
			continue
		}
		mapped = true
		b.WriteString(classOf(string(r) + conf))
	}
	return b.String(), mapped
}

// spacedSource allows 0..MaxSeparator arbitrary characters between every
// letter.
func (c *PatternCompiler) spacedSource(runes []rune) string {
	sep := fmt.Sprintf(`[\s\S]{0,%d}?`, c.tables.MaxSeparator)
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = escapeRune(r)
	}
	return strings.Join(parts, sep)
}

// zeroWidthSource allows optional invisible formatting characters between
// every letter.
func (c *PatternCompiler) zeroWidthSource(runes []rune) string {
	sep := classOf(string(c.tables.ZeroWidth)) + "{0,3}"
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = escapeRune(r)
	}
	return strings.Join(parts, sep)
}

// diacriticSource allows optional combining marks after each base letter.
// The word itself is canonically decomposed first; matching is performed
// against the NFD form of the input text.
func (c *PatternCompiler) diacriticSource(word string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(word) {
		if isCombiningMark(r) {
			continue
		}
		b.WriteString(escapeRune(r))
		b.WriteString(`\p{Mn}{0,2}`)
	}
	return b.String()
}

// multimodalSource composes the lookalike and transliteration classes
// with spaced and zero-width separators into a single pattern.
func (c *PatternCompiler) multimodalSource(runes []rune) string {
	sep := classOf(`\s` + string(c.tables.ZeroWidth)) + fmt.Sprintf("{0,%d}", c.tables.MaxSeparator)
	parts := make([]string, len(runes))
	for i, r := range runes {
		alts := []string{escapeRune(r)}
		if conf, ok := c.tables.Confusable[r]; ok {
			alts = []string{classOf(string(r) + conf)}
		}
		if alt, ok := c.tables.Translit[r]; ok {
			alts = append(alts, regexp.QuoteMeta(alt))
		}
		if len(alts) == 1 {
			parts[i] = alts[0]
		} else {
			parts[i] = "(?:" + strings.Join(alts, "|") + ")"
		}
	}
	return strings.Join(parts, sep)
}

// Unicode-aware word boundaries: Go's \b is ASCII-only, so the compiled
// pattern guards the core with non-letter/digit groups and captures the
// core so callers can read the match span from capture group 1.
const (
	boundaryPrefix = `(?:\A|[^\p{L}\p{N}])`
	boundarySuffix = `(?:[^\p{L}\p{N}]|\z)`
)

// Compile returns the case-insensitive, boundary-anchored matcher for a
// pattern source, caching compiled matchers with recency-based eviction.
func (c *PatternCompiler) Compile(source string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.cache[source]; ok {
		entry.lastUsed = time.Now()
		return entry.re, nil
	}

	re, err := regexp.Compile(`(?i)` + boundaryPrefix + `(` + source + `)` + boundarySuffix)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}

	if len(c.cache) >= c.cacheCap {
		c.evictOldest()
	}
	c.cache[source] = &compiledPattern{re: re, lastUsed: time.Now()}
	return re, nil
}

func (c *PatternCompiler) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.cache {
		if oldestKey == "" || entry.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = entry.lastUsed
		}
	}
	if oldestKey != "" {
		delete(c.cache, oldestKey)
	}
}

// escapeRune escapes a single word character for safe template
// substitution.
func escapeRune(r rune) string {
	return regexp.QuoteMeta(string(r))
}

// classOf builds a character class from the given characters, escaping
// class metacharacters. Literal `\s` style escapes pass through.
func classOf(chars string) string {
	var b strings.Builder
	b.WriteString("[")
	escaped := false
	for _, r := range chars {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			b.WriteRune(r)
			escaped = true
		case ']', '^', '-':
			b.WriteString(`\` + string(r))
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("]")
	return b.String()
}

func isCombiningMark(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
