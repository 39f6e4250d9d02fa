package usecase

import (
	"strings"
	"testing"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

func TestExcludedSpans_Quotes(t *testing.T) {
	f := NewExclusionFilter(nil)

	text := `он сказал "кот" и ушёл`
	spans := f.ExcludedSpans(text)

	word := strings.Index(text, "кот")
	inner := domain.Span{Start: word, End: word + len("кот")}
	if !containedInAny(inner, spans) {
		t.Errorf("Quoted word is not excluded, spans: %v", spans)
	}
}

func TestExcludedSpans_UnbalancedQuoteExcludesNothing(t *testing.T) {
	f := NewExclusionFilter(nil)

	text := `он сказал "кот и ушёл`
	word := strings.Index(text, "кот")
	inner := domain.Span{Start: word, End: word + len("кот")}
	if containedInAny(inner, f.ExcludedSpans(text)) {
		t.Errorf("Unbalanced quote must not exclude anything")
	}
}

func TestExcludedSpans_CurlyAndGuillemetQuotes(t *testing.T) {
	f := NewExclusionFilter(nil)

	for _, text := range []string{"смотри «кот» тут", "он сказал “кот” вчера"} {
		word := strings.Index(text, "кот")
		inner := domain.Span{Start: word, End: word + len("кот")}
		if !containedInAny(inner, f.ExcludedSpans(text)) {
			t.Errorf("Word inside quotes is not excluded in %q", text)
		}
	}
}

func TestExcludedSpans_URL(t *testing.T) {
	f := NewExclusionFilter(nil)

	text := "see https://example.com/кот/page and www.кот.org too"
	spans := f.ExcludedSpans(text)

	for _, idx := range []int{strings.Index(text, "https"), strings.Index(text, "www")} {
		covered := false
		for _, s := range spans {
			if idx >= s.Start && idx < s.End {
				covered = true
			}
		}
		if !covered {
			t.Errorf("URL at offset %d is not excluded, spans: %v", idx, spans)
		}
	}
}

func TestExcludedSpans_CommandLine(t *testing.T) {
	f := NewExclusionFilter([]string{"addword", "removeword"})

	text := "/addword кот\nа вот и кот"
	spans := f.ExcludedSpans(text)

	arg := strings.Index(text, "кот")
	if !containedInAny(domain.Span{Start: arg, End: arg + len("кот")}, spans) {
		t.Errorf("Command argument is not excluded")
	}

	second := strings.LastIndex(text, "кот")
	if containedInAny(domain.Span{Start: second, End: second + len("кот")}, spans) {
		t.Errorf("Text after the command line must not be excluded")
	}
}

func TestExcludedSpans_CommandWithBotMention(t *testing.T) {
	f := NewExclusionFilter([]string{"addword"})

	spans := f.ExcludedSpans("/addword@streakbot кот")
	if len(spans) == 0 {
		t.Fatalf("Mention-suffixed command is not excluded")
	}
}

func TestExcludedSpans_UnknownCommandNotExcluded(t *testing.T) {
	f := NewExclusionFilter([]string{"addword"})

	if spans := f.ExcludedSpans("/other кот"); len(spans) != 0 {
		t.Errorf("Unknown command must not be excluded, got %v", spans)
	}
}

func TestExcludedSpans_PlainTextEmpty(t *testing.T) {
	f := NewExclusionFilter(nil)

	if spans := f.ExcludedSpans("просто кот тут"); len(spans) != 0 {
		t.Errorf("Plain text produced spans: %v", spans)
	}
}
