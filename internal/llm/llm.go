// Package llm wraps the hosted completion endpoint behind a small interface.
// The model is a fallible, non-deterministic oracle: identical prompts may
// yield different completions across calls, and any call may fail. Callers
// must treat the output as a best-effort structured guess, and tests must
// use a deterministic stand-in.
package llm

import "context"

// Completer maps a prompt string to a generated completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
