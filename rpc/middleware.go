package rpc

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/techidsk/prompts/metrics"
)

const RequestIDHeader = "X-Request-ID"
const requestIDContextName = "request_id"

func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		if method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}

// RequestID tags every request with an id for log correlation and records
// the request duration.
func RequestID() gin.HandlerFunc {
	m := metrics.Get()
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextName, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).
			Observe(time.Since(start).Seconds())
	}
}

// Recovery turns panics into 500 responses, except http.ErrAbortHandler
// which must reach net/http so the connection is dropped mid-stream.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}
			log.Error().
				Str("request_id", c.GetString(requestIDContextName)).
				Interface("panic", r).
				Msg("handler panic")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}
