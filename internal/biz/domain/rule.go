package domain

import "time"

// RuleKind identifies whether a trigger rule matches by lemma or by a
// generated evasion pattern.
type RuleKind string

const (
	RuleLemma   RuleKind = "lemma"
	RulePattern RuleKind = "pattern"
)

// VariantKind is one of the modeled evasion-pattern families.
type VariantKind string

const (
	VariantTranslit   VariantKind = "translit"
	VariantLookalike  VariantKind = "lookalike"
	VariantSpaced     VariantKind = "spaced"
	VariantZeroWidth  VariantKind = "zerowidth"
	VariantDiacritic  VariantKind = "diacritic"
	VariantMultimodal VariantKind = "multimodal"
)

// RuleName derives the unique pattern-rule name for a word and variant
// kind. The derivation is deterministic so a word's rules can be removed
// together by their source word.
func RuleName(word string, kind VariantKind) string {
	return word + "_" + string(kind)
}

// TriggerRule is one configured detection rule for a chat. Lemma rules
// hold the canonical lemma in Value; pattern rules hold the rule name in
// Value and the generated source in Pattern. Unique per (chat, kind, value).
type TriggerRule struct {
	ChatID     string
	Kind       RuleKind
	Value      string
	Pattern    string
	Variant    VariantKind
	SourceWord string
	Enabled    bool
	AddedBy    string
	AddedAt    time.Time
}

// RuleSet groups a chat's enabled rules for matching. It is built once
// per cache refresh and never mutated afterwards, so concurrent readers
// always observe a complete set.
type RuleSet struct {
	Lemmas   map[string]bool // lowercased enabled lemmas
	Patterns []TriggerRule   // enabled pattern rules in insertion order
}
