package llm

import "time"

// CompletionRequest is one chat completion. SystemPrompt goes first as a
// system message; zero Model, MaxTokens or nil Temperature use the
// client's defaults.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	Model        string    `json:"model,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	Temperature  *float32  `json:"temperature,omitempty"`
}

type Role string

const RoleUser Role = "user"

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Temperature returns &t, for CompletionRequest.Temperature. Use
// Temperature(0) for deterministic replies.
func Temperature(t float32) *float32 { return &t }

// CompletionResponse is the first choice of a completion.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Usage        TokenUsage    `json:"usage"`
	Duration     time.Duration `json:"duration"`
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
