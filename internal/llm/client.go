package llm

import "context"

// Client sends one prompt to a completion service and returns the text reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
