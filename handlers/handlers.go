package handlers

import (
	"context"
	"net/http"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"lyricsd/agent"
	"lyricsd/cache"
	"lyricsd/models"
	"lyricsd/sentryhelper"
)

type LyricsResolver interface {
	Resolve(ctx context.Context, title, artist string, store *cache.Cache) models.LyricsRecord
}

type ChatAgent interface {
	Chat(ctx context.Context, message string) (agent.Reply, error)
}

// Manager serves the lyrics HTTP API. A nil agent turns the chat endpoint off.
type Manager struct {
	resolver LyricsResolver
	cache    *cache.Cache
	agent    ChatAgent
}

type lyricsQuery struct {
	Title  string `form:"title" binding:"required"`
	Artist string `form:"artist"`
	Cache  *bool  `form:"cache"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func NewManager(resolver LyricsResolver, store *cache.Cache, chat ChatAgent) *Manager {
	return &Manager{
		resolver: resolver,
		cache:    store,
		agent:    chat,
	}
}

func (m *Manager) Register(r gin.IRouter) {
	r.GET("/healthz", Health)
	r.GET("/lyrics", m.GetLyrics)
	r.POST("/agent/chat", m.Chat)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetLyrics always answers 200 with a record once a title is given; failures are carried in the body.
func (m *Manager) GetLyrics(c *gin.Context) {
	var q lyricsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	ctx, transaction := sentryhelper.StartRequestTransaction(c.Request.Context(), "lyrics", map[string]string{
		"lyrics.has_artist": boolTag(strings.TrimSpace(q.Artist) != ""),
	})
	defer transaction.Finish()

	store := m.cache
	if q.Cache != nil && !*q.Cache {
		store = nil
	}

	record := m.resolver.Resolve(ctx, q.Title, q.Artist, store)
	if record.Successful() {
		transaction.Status = sentry.SpanStatusOK
	} else {
		transaction.Status = sentry.SpanStatusNotFound
	}
	c.JSON(http.StatusOK, record)
}

func (m *Manager) Chat(c *gin.Context) {
	if m.agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lyrics agent is not enabled"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx, transaction := sentryhelper.StartRequestTransaction(c.Request.Context(), "agent.chat", nil)
	defer transaction.Finish()

	reply, err := m.agent.Chat(ctx, req.Message)
	if err != nil {
		log.WithFields(log.Fields{"module": "handlers"}).Errorf("agent chat failed: %v", err)
		sentryhelper.CaptureException(ctx, err)
		transaction.Status = sentry.SpanStatusInternalError
		c.JSON(http.StatusBadGateway, gin.H{"error": "the lyrics agent could not answer", "records": reply.Records})
		return
	}

	transaction.Status = sentry.SpanStatusOK
	c.JSON(http.StatusOK, reply)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
