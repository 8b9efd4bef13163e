// Package llm defines the text-generation interface used by meepoo and the
// errors every implementation reports.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrInvalidEndpoint means the configured base URL does not form a
	// usable request URL. It is a configuration error and never retryable.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrMalformedResponse means the HTTP exchange completed but the body
	// did not carry generated text where it was expected.
	ErrMalformedResponse = errors.New("malformed response")
)

// Kind names the shape of the input a generation was built from.
type Kind string

const (
	KindPrompt  Kind = "prompt"
	KindHunks   Kind = "hunks"
	KindDiff    Kind = "diff"
	KindSummary Kind = "summary"
)

// Generator turns change descriptions into text.
// Implementations hold no per-call state and are safe for concurrent use.
type Generator interface {
	// GenerateMessage sends prompt as-is.
	GenerateMessage(ctx context.Context, prompt string) (string, error)
	// GenerateCommitMessageFromHunks writes a commit message from per-file summaries.
	GenerateCommitMessageFromHunks(ctx context.Context, hunkComments []string) (string, error)
	// GenerateCommitMessage writes a commit message from a unified diff.
	GenerateCommitMessage(ctx context.Context, diff string) (string, error)
	// Summarize condenses an arbitrary chunk of change text.
	Summarize(ctx context.Context, token string) (string, error)
}
