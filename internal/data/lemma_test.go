package data

import (
	"context"
	"testing"
)

func TestDictLemmatizer_KnownForm(t *testing.T) {
	l := NewDictLemmatizer(map[string]string{
		"Котики": "котик",
		"котика": "котик",
	})

	got, err := l.Normalize(context.Background(), "КОТИКИ", "ru")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "котик" {
		t.Errorf("Normalize = %q, want %q", got, "котик")
	}
}

func TestDictLemmatizer_SuffixFallback(t *testing.T) {
	l := NewDictLemmatizer(map[string]string{
		"котика": "котик",
	})

	// "котиками" is not in the dictionary; stripping "ами" yields the
	// known lemma "котик".
	got, err := l.Normalize(context.Background(), "котиками", "ru")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "котик" {
		t.Errorf("Normalize = %q, want %q", got, "котик")
	}
}

func TestDictLemmatizer_UnknownWordUnchanged(t *testing.T) {
	l := NewDictLemmatizer(map[string]string{"котика": "котик"})

	got, err := l.Normalize(context.Background(), "собака", "ru")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "собака" {
		t.Errorf("Normalize = %q, want input unchanged", got)
	}
}

func TestDictLemmatizer_ShortStemNotStripped(t *testing.T) {
	l := NewDictLemmatizer(map[string]string{"x": "ко"})

	// Stripping "е" from "кое" would leave the two-rune lemma "ко";
	// the heuristic refuses stems shorter than three runes.
	got, err := l.Normalize(context.Background(), "кое", "ru")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "кое" {
		t.Errorf("Normalize = %q, want input unchanged", got)
	}
}
