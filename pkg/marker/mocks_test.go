package marker

import "context"

// --- Mocks ---

type mockGenerator struct {
	image      string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.image, nil
}
