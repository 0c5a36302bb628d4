// Package llm holds the clients for the generative text service. The engine
// only hands over an assembled prompt string; nothing here feeds back into
// extraction or ranking.
package llm

import "context"

type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
