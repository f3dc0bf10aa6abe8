package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
	"github.com/markdave123-py/Shopvora/internal/core"
)

// contextChunks is how many blog passages ground each answer.
const contextChunks = 4

const assistantPrompt = `You are Shopvora's friendly skincare assistant. Answer questions about skincare routines, ingredients and products in a warm, concise way.
Do not diagnose medical conditions; suggest seeing a dermatologist for persistent or severe problems.
When the passages below are relevant, base your answer on them and mention the article title. If they are not relevant, answer from general skincare knowledge.`

type ChatHandler struct {
	dbclient core.DbClient
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
}

// NewChatHandler builds the assistant endpoint; a nil llm answers 503.
func NewChatHandler(db core.DbClient, emb core.EmbeddingProvider, llm core.LLMProvider) *ChatHandler {
	return &ChatHandler{dbclient: db, embedder: emb, llm: llm}
}

type SmartTaskRequest struct {
	Messages []core.Turn `json:"messages"`
	// Message is the older single-question form.
	Message string `json:"message"`
}

// SmartTask streams the assistant's reply as plain text, flushing each chunk.
func (h *ChatHandler) SmartTask(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		respond.Error(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	ctx := r.Context()
	log := hlog.FromRequest(r)

	var req SmartTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	history := req.Messages
	if len(history) == 0 && strings.TrimSpace(req.Message) != "" {
		history = []core.Turn{{Role: "user", Content: req.Message}}
	}
	question := lastUserTurn(history)
	if question == "" {
		respond.Error(w, http.StatusBadRequest, "a user message is required")
		return
	}

	prompt := assistantPrompt
	if passages := h.retrieve(r, question); passages != "" {
		prompt += "\n\nPassages from the Shopvora blog:\n" + passages
	}

	flusher, _ := w.(http.Flusher)
	started := false
	err := h.llm.StreamChat(ctx, prompt, history, func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if !started {
			respond.Internal(w, r, fmt.Errorf("assistant: %w", err))
			return
		}
		// Headers are gone; abort so the reply does not end cleanly.
		log.Error().Err(err).Msg("assistant stream interrupted")
		panic(http.ErrAbortHandler)
	}
	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// retrieve finds blog passages near the question. Retrieval is best effort.
func (h *ChatHandler) retrieve(r *http.Request, question string) string {
	if h.embedder == nil {
		return ""
	}
	log := hlog.FromRequest(r)
	vecs, err := h.embedder.EmbedTexts(r.Context(), []string{question})
	if err != nil || len(vecs) == 0 {
		log.Warn().Err(err).Msg("question embedding failed")
		return ""
	}
	chunks, err := h.dbclient.SearchBlogChunks(r.Context(), vecs[0], contextChunks)
	if err != nil {
		log.Warn().Err(err).Msg("blog passage search failed")
		return ""
	}
	var sb strings.Builder
	for _, ch := range chunks {
		sb.WriteString(ch.Text)
		sb.WriteString("\n---\n")
	}
	return sb.String()
}

func lastUserTurn(history []core.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return strings.TrimSpace(history[i].Content)
		}
	}
	return ""
}
