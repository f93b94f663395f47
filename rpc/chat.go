package rpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/techidsk/prompts/catalog"
	chatapi "github.com/techidsk/prompts/chat-api"
	"github.com/techidsk/prompts/metrics"
)

// ChatRequest is the body of POST /api/chat: the full turn history plus
// the selected system prompt and model.
type ChatRequest struct {
	Messages     []chatapi.ConversationTurn `json:"messages"`
	SystemPrompt string                     `json:"systemPrompt"`
	Model        string                     `json:"model"`
}

// HandleChat relays one chat request upstream and streams the answer back
// as raw text, flushed chunk by chunk. Errors before the first chunk are a
// single JSON response; a failure after chunks have flowed aborts the
// connection so the caller sees the stream as incomplete. Cancellation is
// bound to the request context: when the client goes away, so does the
// upstream call.
func (s *Service) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	model := req.Model
	if model == "" {
		model = catalog.DefaultModelID
	}

	requestID := c.GetString(requestIDContextName)
	stream, err := s.relay.Relay(c.Request.Context(), chatapi.Request{
		SystemPrompt: req.SystemPrompt,
		Model:        model,
		Turns:        req.Messages,
	})
	if err != nil {
		s.metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		var upstreamErr *chatapi.UpstreamError
		switch {
		case errors.Is(err, chatapi.ErrMissingAPIKey):
			writeJSON(c, http.StatusInternalServerError, gin.H{"error": chatapi.ErrMissingAPIKey.Error()})
		case errors.As(err, &upstreamErr):
			log.Error().Err(err).Str("request_id", requestID).Str("model", model).Msg("chat relay connect")
			writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to generate response"})
		default:
			// malformed turns are a caller bug, reported synchronously
			writeJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	s.metrics.ChatActiveStreams.Inc()
	defer s.metrics.ChatActiveStreams.Dec()

	// Hold the error response until the first chunk: an upstream failure
	// before any output must surface as a plain error, not a partial
	// stream.
	first, ok := <-stream.Chunks()
	if !ok {
		if err := stream.Err(); err != nil && !isCancellation(err) {
			s.metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			log.Error().Err(err).Str("request_id", requestID).Str("model", model).Msg("chat relay failed before first chunk")
			writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to generate response"})
			return
		}
		s.finishStream(c, stream, requestID, model)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.WriteString(first)
	c.Writer.Flush()
	s.metrics.ChatChunksForwarded.Inc()

	for chunk := range stream.Chunks() {
		c.Writer.WriteString(chunk)
		c.Writer.Flush()
		s.metrics.ChatChunksForwarded.Inc()
	}
	s.finishStream(c, stream, requestID, model)
}

func (s *Service) finishStream(c *gin.Context, stream *chatapi.AnswerStream, requestID, model string) {
	err := stream.Err()
	switch {
	case err == nil:
		s.metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeCompleted).Inc()
	case isCancellation(err):
		// not a failure: the caller walked away
		s.metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
		log.Debug().Str("request_id", requestID).Str("model", model).Msg("chat stream cancelled")
	default:
		s.metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error().Err(err).Str("request_id", requestID).Str("model", model).Msg("chat stream died mid-answer")
		if c.Writer.Written() {
			// drop the connection so the caller cannot mistake the
			// truncated answer for a complete one
			panic(http.ErrAbortHandler)
		}
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to generate response"})
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
