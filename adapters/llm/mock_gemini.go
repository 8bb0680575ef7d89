package llm

import (
	"context"
	"strings"
	"sync"
)

// MockGeminiClient is a canned TextGenerator for local development
type MockGeminiClient struct {
	mu      sync.Mutex
	prompts []string
	// Response, when set, is returned verbatim instead of the canned draft
	Response string
	Err      error
}

// NewMockGeminiClient creates a new mock Gemini client
func NewMockGeminiClient() *MockGeminiClient {
	return &MockGeminiClient{}
}

// Generate implements repositories.TextGenerator
func (m *MockGeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}

	statement := prompt
	if i := strings.Index(prompt, "User's Statement: "); i >= 0 {
		statement = strings.Trim(prompt[i+len("User's Statement: "):], `"`)
	}

	var b strings.Builder
	b.WriteString("FIRST INFORMATION REPORT (DRAFT)\n\n")
	b.WriteString("1. Details of the complainant: [to be filled]\n")
	b.WriteString("2. Date and time of occurrence: [to be filled]\n")
	b.WriteString("3. Statement of the complainant:\n   ")
	b.WriteString(statement)
	b.WriteString("\n\nSuggested IPC sections: [to be reviewed by an officer]\n")
	return b.String(), nil
}

// Prompts returns every prompt received so far
func (m *MockGeminiClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
