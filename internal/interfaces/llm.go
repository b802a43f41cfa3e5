package interfaces

import "context"

// Message is one turn of an LLM conversation.
type Message struct {
	Role    string `json:"role"` // system|user|assistant
	Content string `json:"content"`
}

// ContentRequest is a provider-agnostic generation request.
type ContentRequest struct {
	Messages    []Message
	Model       string
	Temperature float32
	MaxTokens   int
	System      string
}

// ContentResponse is a provider-agnostic generation response.
type ContentResponse struct {
	Text         string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
}

// LLMProvider generates content for the agent manager. Implementations do
// no retries; the agent manager owns the single repair retry.
type LLMProvider interface {
	GenerateContent(ctx context.Context, req *ContentRequest) (*ContentResponse, error)
	ProviderName() string
	Close() error
}
