package domain

import "context"

// Completer is the port for a hosted language-model completion endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
