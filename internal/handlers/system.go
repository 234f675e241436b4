package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger is the liveness surface of an optional backing component.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	db          *gorm.DB
	cache       Pinger
	search      Pinger
	llmProvider string
}

// NewSystemHandler takes the optional components as nilable Pingers; a nil
// component reports disabled rather than failing the status call.
func NewSystemHandler(db *gorm.DB, cache Pinger, search Pinger, llmProvider string) *SystemHandler {
	return &SystemHandler{db: db, cache: cache, search: search, llmProvider: llmProvider}
}

// Status reports per-component health. The endpoint itself always answers
// 200; degraded components show up in the body.
func (sh *SystemHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	RespondOK(c, gin.H{"status": gin.H{
		"database":   sh.databaseStatus(ctx),
		"redis":      componentStatus(ctx, sh.cache),
		"opensearch": componentStatus(ctx, sh.search),
		"llm": gin.H{
			"provider": sh.llmProvider,
			"status":   "connected",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}})
}

func (sh *SystemHandler) databaseStatus(ctx context.Context) string {
	sqlDB, err := sh.db.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "connected"
}

func componentStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "connected"
}
