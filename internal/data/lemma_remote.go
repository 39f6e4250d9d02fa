package data

import (
	"context"
	"fmt"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/repo"
	"github.com/Kirun13/gigachat-bot-v2/lemma"
)

// remoteLemmatizer implements the lemmatizer repository on the remote
// normalizer, with the dictionary lemmatizer as fallback
type remoteLemmatizer struct {
	client   *lemma.Client
	fallback repo.Lemmatizer
}

// NewRemoteLemmatizer creates a lemmatizer backed by the remote
// normalizer. Errors fall through to the dictionary fallback so word
// management keeps working when the API is unreachable.
func NewRemoteLemmatizer(client *lemma.Client, fallback repo.Lemmatizer) repo.Lemmatizer {
	if client == nil {
		return fallback
	}
	return &remoteLemmatizer{client: client, fallback: fallback}
}

// Normalize returns the canonical lemma for a word form
func (l *remoteLemmatizer) Normalize(ctx context.Context, word, langHint string) (string, error) {
	result, err := l.client.Lemmatize(ctx, word, langHint)
	if err != nil {
		fmt.Printf("[Lemma] Remote normalizer failed, using dictionary: %v\n", err)
		return l.fallback.Normalize(ctx, word, langHint)
	}
	return result, nil
}
