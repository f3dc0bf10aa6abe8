package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Shopvora/internal/core"
)

// GeminiLLM streams the assistant's replies.
type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// StreamChat sends the conversation as a chat session and emits each text
// part of the streamed response as it arrives.
func (g *GeminiLLM) StreamChat(ctx context.Context, systemPrompt string, history []core.Turn, emit func(string) error) error {
	contents, err := toContents(history)
	if err != nil {
		return err
	}

	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	cs := m.StartChat()
	last := contents[len(contents)-1]
	cs.History = contents[:len(contents)-1]

	it := cs.SendMessageStream(ctx, last.Parts...)
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, p := range cand.Content.Parts {
				t, ok := p.(genai.Text)
				if !ok || t == "" {
					continue
				}
				if err := emit(string(t)); err != nil {
					return err
				}
			}
		}
	}
}

// toContents maps turns onto Gemini roles. Gemini wants the conversation to
// open with the user and alternate, so leading model turns are dropped and
// consecutive turns of one role are merged. The last turn must be the user's.
func toContents(history []core.Turn) ([]*genai.Content, error) {
	var out []*genai.Content
	for _, t := range history {
		text := strings.TrimSpace(t.Content)
		if text == "" {
			continue
		}
		role := "user"
		if t.Role == "assistant" || t.Role == "model" {
			role = "model"
		}
		if len(out) == 0 && role == "model" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(text))
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}
	if len(out) == 0 || out[len(out)-1].Role != "user" {
		return nil, errors.New("conversation must end with a user message")
	}
	return out, nil
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
