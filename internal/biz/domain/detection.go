package domain

// MatchLayer identifies which detection layer produced a match.
type MatchLayer string

const (
	MatchLemma   MatchLayer = "lemma"
	MatchPattern MatchLayer = "pattern"
)

// Span is a half-open byte range [Start, End) in the original message text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Within reports whether s is fully contained in outer.
func (s Span) Within(outer Span) bool {
	return s.Start >= outer.Start && s.End <= outer.End
}

// Detection is the outcome of running the detection engine on a message.
// The lemma layer always wins over the pattern layer; within a layer the
// first match in order wins.
type Detection struct {
	Matched  bool       `json:"matched"`
	Layer    MatchLayer `json:"layer,omitempty"`
	Word     string     `json:"word,omitempty"`      // matched fragment as it appeared
	Lemma    string     `json:"lemma,omitempty"`     // canonical lemma (lemma layer)
	RuleName string     `json:"rule_name,omitempty"` // pattern rule name (pattern layer)
	Span     Span       `json:"span"`
}
