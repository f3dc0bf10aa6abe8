package core

import "context"

// Turn is one entry of a conversation handed to the model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider streams a reply to the conversation. emit is called once per
// text chunk in the order the model produced them; an emit error stops the stream.
type LLMProvider interface {
	StreamChat(ctx context.Context, systemPrompt string, history []Turn, emit func(chunk string) error) error
}
