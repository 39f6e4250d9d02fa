package repo

import "context"

// Lemmatizer normalizes a word to its canonical dictionary form. The
// implementation is an external collaborator; it must be deterministic
// for identical input and may return unknown words unchanged.
type Lemmatizer interface {
	Normalize(ctx context.Context, word, langHint string) (string, error)
}
