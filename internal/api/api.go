// Package api exposes the storage collaborator over HTTP: user accounts,
// tag preferences, seen-marks, per-user feeds, and the protected /run
// endpoint that executes the ingestion pipeline and upserts its records.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/news"
	"ainews/internal/storage"
)

// Store is the persistence surface the handlers need.
type Store interface {
	UpsertRecords(ctx context.Context, records []news.Record) ([]storage.NewsItem, error)
	CreateUser(ctx context.Context, email *string) (storage.User, error)
	GetUser(ctx context.Context, id int64) (storage.User, error)
	GetTags(ctx context.Context, userID int64) ([]string, error)
	SetTags(ctx context.Context, userID int64, tags []string) error
	MarkSeen(ctx context.Context, userID, newsID int64) error
	UserFeed(ctx context.Context, userID int64, limit int) ([]storage.NewsItem, error)
}

// Runner executes one ingestion pass.
type Runner interface {
	Run(ctx context.Context) []news.Record
}

// Handler carries the dependencies shared by all endpoints.
type Handler struct {
	store    Store
	pipeline Runner
	secret   string
}

func NewHandler(store Store, pipeline Runner, secret string) *Handler {
	return &Handler{store: store, pipeline: pipeline, secret: secret}
}

// SetupRoutes wires all endpoints onto the router. /run requires the API key.
func SetupRoutes(router *gin.Engine, h *Handler) {
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)

	router.POST("/users", h.CreateUser)
	router.GET("/users/:id", h.GetUser)
	router.GET("/users/:id/tags", h.GetTags)
	router.POST("/users/:id/tags", h.SetTags)
	router.POST("/users/:id/seen", h.MarkSeen)
	router.GET("/users/:id/feed", h.UserFeed)

	router.POST("/run", h.requireAPIKey, h.Run)
}

func (h *Handler) requireAPIKey(c *gin.Context) {
	if c.GetHeader("X-API-Key") != h.secret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (h *Handler) Health(c *gin.Context) {
	stats := metrics.Global.GetStats()

	status := http.StatusOK
	state := "ok"
	if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
		status = http.StatusServiceUnavailable
		state = "error"
	}
	c.JSON(status, gin.H{
		"status":     state,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Global.GetStats())
}

type userRequest struct {
	Email *string `json:"email"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "user not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetTags(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "user not found")
		return
	}

	tags, err := h.store.GetTags(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "tags": tags})
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

func (h *Handler) SetTags(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "user not found")
		return
	}

	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// tags are stored lowercased and trimmed; empties dropped
	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	if err := h.store.SetTags(c.Request.Context(), id, tags); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "tags": tags})
}

type seenRequest struct {
	NewsID int64 `json:"news_id"`
}

func (h *Handler) MarkSeen(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "user not found")
		return
	}

	var req seenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.MarkSeen(c.Request.Context(), id, req.NewsID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) UserFeed(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "user not found")
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.store.UserFeed(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Run executes the pipeline and upserts the resulting records by url.
func (h *Handler) Run(c *gin.Context) {
	records := h.pipeline.Run(c.Request.Context())
	logger.Info("run finished", "records", len(records))

	stored, err := h.store.UpsertRecords(c.Request.Context(), records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": stored})
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func notFoundOr500(c *gin.Context, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
