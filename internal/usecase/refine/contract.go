package refine

import "context"

// Completer generates a text completion for prompt, authenticating with token.
type Completer interface {
	Complete(ctx context.Context, token, prompt string) (string, error)
}
