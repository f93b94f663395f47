// Package client drives the per-message chat state machine against the
// playground API: submit a turn, stream the answer, then persist the
// completed exchange.
package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	chatapi "github.com/techidsk/prompts/chat-api"
	"github.com/techidsk/prompts/db"
)

// FailureMarker replaces the placeholder content when a request fails.
const FailureMarker = "❌ 请求失败，请检查 API Key 配置"

// ErrBusy means a stream is already outstanding; the submit was a no-op.
var ErrBusy = errors.New("stream already outstanding")

// ErrEmptyMessage means there was nothing to send.
var ErrEmptyMessage = errors.New("empty message")

// ErrNotConfigured means no prompt or model has been selected yet.
var ErrNotConfigured = errors.New("prompt and model not selected")

type State int32

const (
	StateIdle State = iota
	StateComposing
	StateAwaitingFirstChunk
	StateStreaming
	StateFinalized
	StateCancelled
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateAwaitingFirstChunk:
		return "awaiting-first-chunk"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Turn is one rendered conversation turn held by the session.
type Turn struct {
	ID      string
	Role    string
	Content string
	Images  []chatapi.ImageAttachment
}

// Session is one conversation against the playground API. It keeps the
// full turn history client-side and replays it on every submit, the same
// way the web UI does. At most one streaming request is outstanding at a
// time.
type Session struct {
	baseURL    string
	httpClient *http.Client

	// OnUpdate, if set, receives the full accumulated assistant text
	// after every chunk. Updates are whole-text replacements, so applying
	// one twice is harmless.
	OnUpdate func(full string)

	mu         sync.Mutex
	state      State
	turns      []Turn
	cancel     context.CancelFunc
	promptID   string
	promptName string
	promptText string
	modelID    string
	modelName  string
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithHTTPClient replaces the default http.Client used for both the
// streaming chat request and the persistence call.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.httpClient = c
	}
}

func NewSession(baseURL string, opts ...Option) *Session {
	s := &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectPrompt sets the active system prompt (id, display name, content).
func (s *Session) SelectPrompt(id, name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptID, s.promptName, s.promptText = id, name, content
}

// SelectModel sets the active model.
func (s *Session) SelectModel(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelID, s.modelName = id, name
}

// BeginCompose marks the session as assembling a message. Only meaningful
// from a non-streaming state.
func (s *Session) BeginCompose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingFirstChunk && s.state != StateStreaming {
		s.state = StateComposing
	}
}

// State returns the current controller state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns a copy of the conversation so far, placeholder included.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Clear drops the conversation. No-op while a stream is outstanding.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAwaitingFirstChunk || s.state == StateStreaming {
		return
	}
	s.turns = nil
	s.state = StateIdle
}

// Cancel aborts the outstanding streaming request, if any. Safe from any
// goroutine. Cancellation suppresses the persistence call.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type chatPayload struct {
	Messages     []chatapi.ConversationTurn `json:"messages"`
	SystemPrompt string                     `json:"systemPrompt"`
	Model        string                     `json:"model"`
}

// Submit sends one user message (optionally with attachments) and streams
// the assistant answer into a placeholder turn, blocking until the
// exchange reaches a terminal state. On natural completion it issues
// exactly one history append; cancellation and errors suppress it.
// Submitting while a stream is outstanding returns ErrBusy and changes
// nothing.
func (s *Session) Submit(ctx context.Context, text string, images []chatapi.ImageAttachment) (State, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.state == StateAwaitingFirstChunk || s.state == StateStreaming {
		state := s.state
		s.mu.Unlock()
		return state, ErrBusy
	}
	if text == "" && len(images) == 0 {
		state := s.state
		s.mu.Unlock()
		return state, ErrEmptyMessage
	}
	if s.promptText == "" || s.modelID == "" {
		state := s.state
		s.mu.Unlock()
		return state, ErrNotConfigured
	}

	userTurn := Turn{ID: uuid.NewString(), Role: chatapi.UserRole, Content: text, Images: images}
	s.turns = append(s.turns, userTurn)
	sent := make([]chatapi.ConversationTurn, 0, len(s.turns))
	for _, t := range s.turns {
		sent = append(sent, chatapi.ConversationTurn{Role: t.Role, Content: t.Content, Images: t.Images})
	}
	payload := chatPayload{Messages: sent, SystemPrompt: s.promptText, Model: s.modelID}

	// placeholder the chunks accumulate into
	placeholder := Turn{ID: uuid.NewString(), Role: chatapi.AnswerRole}
	s.turns = append(s.turns, placeholder)
	placeholderIdx := len(s.turns) - 1

	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateAwaitingFirstChunk
	modelID, modelName := s.modelID, s.modelName
	promptID, promptName := s.promptID, s.promptName
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return s.fail(placeholderIdx, err), err
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return s.fail(placeholderIdx, err), err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if reqCtx.Err() != nil {
			return s.cancelled(), nil
		}
		return s.fail(placeholderIdx, err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		json.Unmarshal(raw, &errBody)
		log.Warn().Int("status", resp.StatusCode).Str("error", errBody.Error).Msg("chat request rejected")
		return s.fail(placeholderIdx, errors.New(errBody.Error)), nil
	}

	var full strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			full.Write(buf[:n])
			s.applyChunk(placeholderIdx, full.String())
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if reqCtx.Err() != nil {
				return s.cancelled(), nil
			}
			// unclean end of stream: the answer is incomplete
			return s.fail(placeholderIdx, err), nil
		}
	}

	s.mu.Lock()
	s.state = StateFinalized
	s.mu.Unlock()

	if full.Len() > 0 {
		s.persist(db.ChatRecordInput{
			PromptID:         promptID,
			PromptName:       promptName,
			ModelID:          modelID,
			ModelName:        modelName,
			UserMessage:      text,
			AssistantMessage: full.String(),
			HasImages:        len(images) > 0,
		})
	}
	return StateFinalized, nil
}

// applyChunk replaces the placeholder content with the full accumulated
// text and flips to streaming on the first chunk.
func (s *Session) applyChunk(idx int, full string) {
	s.mu.Lock()
	s.state = StateStreaming
	s.turns[idx].Content = full
	onUpdate := s.OnUpdate
	s.mu.Unlock()
	if onUpdate != nil {
		onUpdate(full)
	}
}

func (s *Session) cancelled() State {
	s.mu.Lock()
	s.state = StateCancelled
	s.mu.Unlock()
	return StateCancelled
}

func (s *Session) fail(idx int, cause error) State {
	s.mu.Lock()
	s.state = StateError
	s.turns[idx].Content = FailureMarker
	onUpdate := s.OnUpdate
	s.mu.Unlock()
	if cause != nil {
		log.Error().Err(cause).Msg("chat exchange failed")
	}
	if onUpdate != nil {
		onUpdate(FailureMarker)
	}
	return StateError
}

// persist records the finished exchange. Fire and forget: a store failure
// is logged, never surfaced to the conversation.
func (s *Session) persist(input db.ChatRecordInput) {
	body, err := json.Marshal(input)
	if err != nil {
		log.Error().Err(err).Msg("marshal history record")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/history", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("build history request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("save history")
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("save history")
	}
}
