package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/techidsk/prompts/catalog"
	chatapi "github.com/techidsk/prompts/chat-api"
	"github.com/techidsk/prompts/db"
	"github.com/techidsk/prompts/metrics"
)

const HealthCheckUrl = "/healthcheck"

// Relay opens one upstream streaming call per chat request.
type Relay interface {
	Relay(ctx context.Context, req chatapi.Request) (*chatapi.AnswerStream, error)
}

// Service is the HTTP front of the playground: model/prompt catalog, the
// streaming chat relay, and the history store.
type Service struct {
	port       string
	relay      Relay
	store      *db.Store
	models     []catalog.Model
	promptsDir string
	hasAPIKey  bool
	metrics    *metrics.Metrics
}

func NewService(port string, relay Relay, store *db.Store, models []catalog.Model, promptsDir string, hasAPIKey bool) *Service {
	if len(models) == 0 {
		models = catalog.DefaultModels
	}
	return &Service{
		port:       port,
		relay:      relay,
		store:      store,
		models:     models,
		promptsDir: promptsDir,
		hasAPIKey:  hasAPIKey,
		metrics:    metrics.Get(),
	}
}

// LoggerMy routes gin's own output into the structured log, dropping
// healthcheck noise.
type LoggerMy struct {
}

func (*LoggerMy) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if strings.Contains(msg, `"`+HealthCheckUrl+`"`) {
		return
	}
	log.Debug().Msg(msg)
	return
}

// Router assembles the gin engine. Exposed separately from Start so tests
// can mount it on httptest servers.
func (s *Service) Router() *gin.Engine {
	gin.DefaultWriter = &LoggerMy{}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(Cors())
	r.Use(RequestID())
	r.Use(Recovery())
	r.SetTrustedProxies(nil)

	r.GET(HealthCheckUrl, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/models", s.HandleModels)
	api.GET("/prompts", s.HandlePrompts)
	api.GET("/prompts/:name", s.HandlePrompt)
	api.GET("/health", s.HandleHealth)
	api.POST("/chat", s.HandleChat)
	api.POST("/history", s.HandleSaveHistory)
	api.GET("/history", s.HandleListHistory)
	api.GET("/history/:id", s.HandleGetHistory)
	api.DELETE("/history/:id", s.HandleDeleteHistory)
	return r
}

func (s *Service) Start(ctx context.Context) error {
	address := "0.0.0.0:" + s.port
	log.Info().Str("address", address).Msg("start rpc service")
	return s.Router().Run(address)
}

// writeJSON marshals v with goccy and writes it as the response body.
func writeJSON(c *gin.Context, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(code, "application/json; charset=utf-8", data)
}

func (s *Service) HandleModels(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.models)
}

func (s *Service) HandlePrompts(c *gin.Context) {
	prompts, err := catalog.ListPrompts(s.promptsDir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.promptsDir).Msg("read prompts directory")
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to read prompts directory"})
		return
	}
	writeJSON(c, http.StatusOK, prompts)
}

func (s *Service) HandlePrompt(c *gin.Context) {
	name := c.Param("name")
	content, err := catalog.LoadPrompt(s.promptsDir, name)
	if err != nil {
		if !errors.Is(err, catalog.ErrPromptNotFound) {
			log.Error().Err(err).Str("prompt", name).Msg("read prompt")
		}
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Prompt not found"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": name, "content": content})
}

func (s *Service) HandleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"status":    "ok",
		"hasApiKey": s.hasAPIKey,
	})
}
