package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model    string
	Messages []Message
	// APIKey overrides the provider's configured credential for this request only.
	APIKey      string
	MaxTokens   int
	Temperature float64
	TopK        int
	TopP        float64
	// ResponseMIMEType is passed through to providers that support it ("text/plain").
	ResponseMIMEType string
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
