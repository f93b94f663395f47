package chatapi

import (
	"context"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Client relays chat requests to an OpenAI-wire-compatible upstream.
type Client struct {
	apiKey      string
	api         *openai.Client
	idleTimeout time.Duration
}

// NewClient builds a relay client. baseURL falls back to OpenRouter.
// idleTimeout bounds the wait between upstream chunks; zero disables it.
func NewClient(apiKey, baseURL string, idleTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		apiKey:      apiKey,
		api:         openai.NewClientWithConfig(cfg),
		idleTimeout: idleTimeout,
	}
}

// Request carries everything one relay call needs.
type Request struct {
	SystemPrompt string
	Model        string
	Turns        []ConversationTurn
}

// Relay normalizes the turns and opens exactly one upstream streaming
// call. It fails with ErrMissingAPIKey before any network activity when
// the credential is absent, and with *UpstreamError when the connection
// cannot be established. The returned stream delivers chunks in arrival
// order; cancelling ctx aborts the upstream call.
func (c *Client) Relay(ctx context.Context, req Request) (*AnswerStream, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	msgs, err := Normalize(req.Turns)
	if err != nil {
		return nil, err
	}
	upstream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: upstreamMessages(req.SystemPrompt, msgs),
		Stream:   true,
	})
	if err != nil {
		return nil, &UpstreamError{Op: "connect", Err: err}
	}
	s := &AnswerStream{
		ch:   make(chan string),
		stop: make(chan struct{}),
	}
	go s.pump(ctx, upstream, c.idleTimeout)
	return s, nil
}

func upstreamMessages(systemPrompt string, msgs []ProviderMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    SystemRole,
			Content: systemPrompt,
		})
	}
	for _, m := range msgs {
		switch content := m.Content.(type) {
		case TextContent:
			out = append(out, openai.ChatCompletionMessage{
				Role:    m.Role,
				Content: string(content),
			})
		case PartsContent:
			parts := make([]openai.ChatMessagePart, 0, len(content))
			for _, p := range content {
				switch p.Type {
				case PartImage:
					parts = append(parts, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: p.Data},
					})
				case PartText:
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: p.Data,
					})
				}
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:         m.Role,
				MultiContent: parts,
			})
		}
	}
	return out
}

// AnswerStream is one in-flight upstream answer. Chunks() is closed when
// the stream ends for any reason; Err() distinguishes how. At most one
// chunk is buffered between upstream and caller.
type AnswerStream struct {
	ch   chan string
	stop chan struct{}
	err  error
}

// Chunks yields response fragments in upstream arrival order.
func (s *AnswerStream) Chunks() <-chan string {
	return s.ch
}

// Err is valid once Chunks() is closed. nil means the answer completed
// naturally; context errors mean the caller cancelled; *UpstreamError
// means the exchange is incomplete and must not be persisted.
func (s *AnswerStream) Err() error {
	return s.err
}

type recvResult struct {
	chunk string
	err   error
}

func (s *AnswerStream) pump(ctx context.Context, upstream *openai.ChatCompletionStream, idle time.Duration) {
	defer close(s.ch)
	defer close(s.stop)
	defer upstream.Close()

	recvCh := make(chan recvResult)
	go func() {
		for {
			resp, err := upstream.Recv()
			if err != nil {
				select {
				case recvCh <- recvResult{err: err}:
				case <-s.stop:
				}
				return
			}
			var chunk string
			if len(resp.Choices) > 0 {
				chunk = resp.Choices[0].Delta.Content
			}
			select {
			case recvCh <- recvResult{chunk: chunk}:
			case <-s.stop:
				return
			}
		}
	}()

	var timer *time.Timer
	var idleCh <-chan time.Time
	if idle > 0 {
		timer = time.NewTimer(idle)
		defer timer.Stop()
		idleCh = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case <-idleCh:
			s.err = &UpstreamError{Op: "recv", Err: ErrIdleTimeout}
			return
		case res := <-recvCh:
			if res.err != nil {
				switch {
				case errors.Is(res.err, io.EOF):
					// natural completion
				case ctx.Err() != nil:
					s.err = ctx.Err()
				default:
					s.err = &UpstreamError{Op: "recv", Err: res.err}
				}
				return
			}
			if res.chunk != "" {
				// A chunk racing a cancellation is delivered whole or
				// dropped, never partially written.
				select {
				case s.ch <- res.chunk:
				case <-ctx.Done():
					s.err = ctx.Err()
					return
				}
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(idle)
			}
		}
	}
}
