package usecase

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/domain"
)

func TestGenerateVariants_Deterministic(t *testing.T) {
	c := newTestCompiler()

	first := c.GenerateVariants("test")
	second := c.GenerateVariants("test")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Variant generation is not deterministic:\n%v\n%v", first, second)
	}
}

func TestGenerateVariants_ShortWordYieldsNothing(t *testing.T) {
	c := newTestCompiler()

	if got := c.GenerateVariants("ab"); got != nil {
		t.Errorf("Expected no variants for short word, got %v", got)
	}
}

func TestGenerateVariants_AllKindsPresent(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("кот")

	kinds := make(map[domain.VariantKind]bool)
	for _, v := range variants {
		kinds[v.Kind] = true
		if want := domain.RuleName("кот", v.Kind); v.RuleName != want {
			t.Errorf("Rule name = %q, want %q", v.RuleName, want)
		}
	}
	for _, kind := range []domain.VariantKind{
		domain.VariantTranslit,
		domain.VariantSpaced,
		domain.VariantZeroWidth,
		domain.VariantDiacritic,
		domain.VariantMultimodal,
	} {
		if !kinds[kind] {
			t.Errorf("Missing %s variant", kind)
		}
	}
	// No letter of кот has a confusable in the test tables.
	if kinds[domain.VariantLookalike] {
		t.Errorf("Unexpected lookalike variant for кот")
	}
}

func TestGenerateVariants_AllCompile(t *testing.T) {
	c := newTestCompiler()

	for _, word := range []string{"test", "кот", "c++", "a.b.c", "внатуре"} {
		for _, v := range c.GenerateVariants(word) {
			if _, err := c.Compile(v.Source); err != nil {
				t.Errorf("Variant %s of %q does not compile: %v", v.RuleName, word, err)
			}
		}
	}
}

func TestCompile_TranslitMatches(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("кот")
	re := mustCompileVariant(t, c, variants, domain.VariantTranslit)

	for _, text := range []string{"кот", "kot", "кot", "KOT"} {
		if re.FindStringIndex("ну "+text+" же") == nil {
			t.Errorf("Transliteration pattern did not match %q", text)
		}
	}
}

func TestCompile_LookalikeMatches(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("test")
	re := mustCompileVariant(t, c, variants, domain.VariantLookalike)

	for _, text := range []string{"test", "t3st", "tеst"} {
		if re.FindStringIndex(text) == nil {
			t.Errorf("Lookalike pattern did not match %q", text)
		}
	}
}

func TestCompile_SpacedMatches(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("test")
	re := mustCompileVariant(t, c, variants, domain.VariantSpaced)

	for _, text := range []string{"test", "t e s t", "t.e.s.t", "t--e--s--t"} {
		if re.FindStringIndex(text) == nil {
			t.Errorf("Spaced pattern did not match %q", text)
		}
	}
}

func TestCompile_ZeroWidthMatches(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("test")
	re := mustCompileVariant(t, c, variants, domain.VariantZeroWidth)

	if re.FindStringIndex("te\u200bst") == nil {
		t.Errorf("Zero-width pattern did not match text with U+200B")
	}
	if re.FindStringIndex("te st") != nil {
		t.Errorf("Zero-width pattern must not match a plain space")
	}
}

func TestCompile_DiacriticMatches(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("test")
	re := mustCompileVariant(t, c, variants, domain.VariantDiacritic)

	// Matching runs against NFD text, so combining marks follow the base.
	if re.FindStringIndex("tést") == nil {
		t.Errorf("Diacritic pattern did not match e + combining acute")
	}
}

func TestCompile_WordBoundaries(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("test")
	re := mustCompileVariant(t, c, variants, domain.VariantSpaced)

	for _, text := range []string{"contest", "testing", "протест"} {
		if re.FindStringIndex(text) != nil {
			t.Errorf("Pattern matched inside larger word %q", text)
		}
	}
	for _, text := range []string{"test", "a test!", "тест,test."} {
		if re.FindStringIndex(text) == nil {
			t.Errorf("Pattern did not match standalone word in %q", text)
		}
	}
}

func TestCompile_MetacharactersEscaped(t *testing.T) {
	c := newTestCompiler()

	variants := c.GenerateVariants("c++")
	re := mustCompileVariant(t, c, variants, domain.VariantSpaced)

	if re.FindStringIndex("I love c++ a lot") == nil {
		t.Errorf("Escaped pattern did not match literal c++")
	}
	if re.FindStringIndex("ccc") != nil {
		t.Errorf("+ was treated as a quantifier")
	}
}

func TestCompile_CacheEviction(t *testing.T) {
	c := NewPatternCompiler(testTables(), 2)

	sources := []string{"aaa", "bbb", "ccc"}
	for _, src := range sources {
		if _, err := c.Compile(src); err != nil {
			t.Fatalf("Compile(%q) failed: %v", src, err)
		}
	}

	c.mu.Lock()
	size := len(c.cache)
	c.mu.Unlock()
	if size > 2 {
		t.Errorf("Cache size = %d, want at most 2", size)
	}
}

func mustCompileVariant(t *testing.T, c *PatternCompiler, variants []Variant, kind domain.VariantKind) *regexp.Regexp {
	t.Helper()
	for _, v := range variants {
		if v.Kind != kind {
			continue
		}
		re, err := c.Compile(v.Source)
		if err != nil {
			t.Fatalf("Compile %s failed: %v", v.RuleName, err)
		}
		return re
	}
	t.Fatalf("No %s variant generated", kind)
	return nil
}
