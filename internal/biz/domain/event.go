package domain

import "time"

// EventKind identifies the kind of a streak event.
type EventKind string

const (
	EventTrigger     EventKind = "TRIGGER"      // automatic trigger detection
	EventManualReset EventKind = "MANUAL_RESET" // manual reset via command
	EventUndo        EventKind = "UNDO"         // rollback of previous events
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// EventDetails carries kind-specific event data. Only the fields for the
// owning event's kind are populated.
type EventDetails struct {
	// TRIGGER
	MatchedWord string     `json:"matched_word,omitempty"`
	Layer       MatchLayer `json:"layer,omitempty"`
	Lemma       string     `json:"lemma,omitempty"`
	RuleName    string     `json:"rule_name,omitempty"`

	// MANUAL_RESET
	Reason string `json:"reason,omitempty"`

	// UNDO
	UndoneEventSeqs []int64 `json:"undone_event_seqs,omitempty"`
	UndoneCount     int     `json:"undone_count,omitempty"`
}

// Equal reports whether two detail records carry the same values.
func (d EventDetails) Equal(o EventDetails) bool {
	if d.MatchedWord != o.MatchedWord || d.Layer != o.Layer ||
		d.Lemma != o.Lemma || d.RuleName != o.RuleName ||
		d.Reason != o.Reason || d.UndoneCount != o.UndoneCount {
		return false
	}
	if len(d.UndoneEventSeqs) != len(o.UndoneEventSeqs) {
		return false
	}
	for i, seq := range d.UndoneEventSeqs {
		if o.UndoneEventSeqs[i] != seq {
			return false
		}
	}
	return true
}

// Event is an immutable record of a streak-affecting action. Events are
// append-only and strictly ordered per chat by Seq; they are never
// mutated or deleted, only logically excluded by a later UNDO.
type Event struct {
	Seq            int64
	ChatID         string
	Kind           EventKind
	Actor          Actor
	MsgID          string
	Timestamp      time.Time
	Details        EventDetails
	SnapshotBefore ChatState
	Nullified      bool
}
