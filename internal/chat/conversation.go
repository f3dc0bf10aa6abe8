// Package chat drives the skincare assistant conversation and consumes its
// streamed replies.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	Greeting = "Hi! I'm your skincare assistant. Ask me anything about skincare routines, products, or tips! ✨"
	Apology  = "Sorry, I encountered an error. Please try again later."
)

// Path is where the completion endpoint lives relative to the site root.
const Path = "/functions/v1/smart-task"

// ErrBusy is returned while a reply is still streaming.
var ErrBusy = errors.New("chat: a reply is still in progress")

type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Streaming bool   `json:"-"`
}

// Turn is one entry of the request history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body the completion endpoint accepts.
type Request struct {
	Messages []Turn `json:"messages"`
}

type Option func(*Conversation)

// WithTimeout bounds how long a single reply may take, stream included.
func WithTimeout(d time.Duration) Option {
	return func(c *Conversation) { c.timeout = d }
}

// WithObserver is called with a copy of the messages after every change.
func WithObserver(fn func([]Message)) Option {
	return func(c *Conversation) { c.observer = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Conversation) { c.http = hc }
}

type Conversation struct {
	endpoint string
	apiKey   string
	http     *http.Client
	timeout  time.Duration
	observer func([]Message)

	mu       sync.Mutex
	messages []Message
	loading  bool
	seq      int
}

// New starts a conversation with the assistant at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Conversation {
	c := &Conversation{
		endpoint: strings.TrimRight(baseURL, "/") + Path,
		apiKey:   apiKey,
		http:     http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	c.messages = []Message{{ID: c.nextID(), Role: RoleAssistant, Content: Greeting}}
	return c
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Loading reports whether a reply is in flight; input is disabled meanwhile.
func (c *Conversation) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Send posts text and streams the reply into a new assistant message. Blank
// input is ignored. On failure the reply is replaced by Apology and the
// error is returned for logging.
func (c *Conversation) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading = true
	c.messages = append(c.messages, Message{ID: c.nextID(), Role: RoleUser, Content: text})
	history := historyOf(c.messages)
	c.messages = append(c.messages, Message{ID: c.nextID(), Role: RoleAssistant, Streaming: true})
	idx := len(c.messages) - 1
	c.mu.Unlock()
	c.notify()

	err := c.stream(ctx, history, func(chunk string) {
		c.mu.Lock()
		c.messages[idx].Content += chunk
		c.mu.Unlock()
		c.notify()
	})

	c.mu.Lock()
	if err != nil {
		c.messages[idx].Content = Apology
	}
	c.messages[idx].Streaming = false
	c.loading = false
	c.mu.Unlock()
	c.notify()
	return err
}

// historyOf drops assistant messages with nothing in them (the streaming
// placeholder and failed replies that never got text).
func historyOf(msgs []Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleAssistant && strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, Turn{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *Conversation) stream(ctx context.Context, history []Turn, onChunk func(string)) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(Request{Messages: history})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("chat request: status %d", resp.StatusCode)
	}

	// The decoder holds back a rune split across reads until the rest arrives.
	r := transform.NewReader(resp.Body, unicode.UTF8.NewDecoder())
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			onChunk(string(buf[:n]))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chat stream: %w", err)
		}
	}
}

func (c *Conversation) notify() {
	if c.observer != nil {
		c.observer(c.Messages())
	}
}

func (c *Conversation) nextID() string {
	c.seq++
	return strconv.Itoa(c.seq)
}
