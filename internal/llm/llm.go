// Package llm holds the generative collaborator contract and shared transport helpers.
package llm

import "context"

// Generator answers one prompt with free text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
