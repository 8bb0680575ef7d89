package repositories

import "context"

// TextGenerator abstracts the generative-text provider
type TextGenerator interface {
	// Generate sends a single prompt and returns the first generated text span
	Generate(ctx context.Context, prompt string) (string, error)
}
