package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

// ExclusionFilter finds spans of text that must never produce a match:
// quoted fragments, URL-like spans, and bot-command context. A candidate
// match fully contained in an excluded span is discarded by the detector.
type ExclusionFilter struct {
	commands map[string]bool
}

// NewExclusionFilter creates a filter. commandWords are the bot-command
// names whose leading token and arguments form an excluded span; an empty
// list excludes any leading /command line.
func NewExclusionFilter(commandWords []string) *ExclusionFilter {
	commands := make(map[string]bool, len(commandWords))
	for _, word := range commandWords {
		commands[strings.ToLower(word)] = true
	}
	return &ExclusionFilter{commands: commands}
}

var urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)

// quotePairs maps opening quote runes to their closing counterparts.
var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'«':  '»',
	'“':  '”',
	'‘':  '’',
}

// ExcludedSpans returns the byte spans of text that must not trigger.
func (f *ExclusionFilter) ExcludedSpans(text string) []domain.Span {
	var spans []domain.Span

	spans = append(spans, quotedSpans(text)...)

	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		spans = append(spans, domain.Span{Start: loc[0], End: loc[1]})
	}

	if span, ok := f.commandSpan(text); ok {
		spans = append(spans, span)
	}

	return spans
}

// quotedSpans finds balanced straight, curly, and guillemet quotes. An
// opening quote without a closing counterpart excludes nothing.
func quotedSpans(text string) []domain.Span {
	var spans []domain.Span
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		closing, ok := quotePairs[r]
		if !ok {
			i += w
			continue
		}
		rest := text[i+w:]
		j := strings.IndexRune(rest, closing)
		if j < 0 {
			i += w
			continue
		}
		end := i + w + j + utf8.RuneLen(closing)
		spans = append(spans, domain.Span{Start: i, End: end})
		i = end
	}
	return spans
}

// commandSpan excludes the leading bot-command token and its arguments:
// from the start of the text through the end of the first line.
func (f *ExclusionFilter) commandSpan(text string) (domain.Span, bool) {
	if !strings.HasPrefix(text, "/") {
		return domain.Span{}, false
	}

	line := text
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		line = text[:nl]
	}

	token := strings.Fields(line)[0]
	name := strings.ToLower(strings.TrimPrefix(token, "/"))
	// Strip a bot mention suffix such as /triggers@mybot.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	if len(f.commands) > 0 && !f.commands[name] {
		return domain.Span{}, false
	}
	return domain.Span{Start: 0, End: len(line)}, true
}
