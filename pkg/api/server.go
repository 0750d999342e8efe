// Package api exposes the broker's internal health and debug surface.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaybroker/broker/pkg/config"
	"github.com/relaybroker/broker/pkg/dispatch"
	"github.com/relaybroker/broker/pkg/learning"
	"github.com/relaybroker/broker/pkg/persona"
	"github.com/relaybroker/broker/pkg/policy"
)

// Reloader reloads configuration from disk and swaps it into the policy
// and persona registries, for the hot-reload debug endpoint.
type Reloader interface {
	Reload(ctx context.Context) (config.Stats, error)
}

// Deps are the components the status server reports on.
type Deps struct {
	ConfigStats func() config.Stats
	Store       *learning.Store
	Pipeline    *dispatch.Pipeline
	Policies    *policy.Registry
	Personas    *persona.Registry
	Reloader    Reloader
}

// NewServer builds a gin.Engine exposing /health, /debug/queue,
// /debug/routing, and /debug/reload, mirroring the teacher's single-router
// health endpoint style (cmd entrypoint wires its listen address).
func NewServer(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cfgStats := deps.ConfigStats()
		learningStats := deps.Store.Stats(reqCtx)
		poolHealth := deps.Pipeline.Health()

		// a degraded learning store is not fatal; classification and
		// dispatch continue without lesson enrichment (§4.1, §7).
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"configuration": gin.H{
				"personas": cfgStats.Personas,
				"mappings": cfgStats.Mappings,
				"policies": cfgStats.Policies,
			},
			"learning_store": gin.H{
				"total":     learningStats.Total,
				"successful": learningStats.Successful,
				"failed":    learningStats.Failed,
				"degraded":  deps.Store.Degraded(),
			},
			"dispatch": gin.H{
				"total_pending": poolHealth.TotalPending,
				"total_running": poolHealth.TotalRunning,
				"workers":       len(poolHealth.Workers),
			},
		})
	})

	router.GET("/debug/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Pipeline.Health())
	})

	router.GET("/debug/routing", func(c *gin.Context) {
		chatID := c.Query("chat_id")
		displayName := c.Query("display_name")
		isGroup := c.Query("is_group") == "true"

		resolution := deps.Personas.Resolve(persona.ChatContext{
			ChatID:      chatID,
			DisplayName: displayName,
			IsGroup:     isGroup,
		})

		guardPolicyName := ""
		if per, ok := deps.Personas.Get(resolution.PersonaID); ok {
			guardPolicyName = per.GuardPolicyName
		}
		globalTimeout := deps.Policies.ApprovalTimeout("")

		c.JSON(http.StatusOK, gin.H{
			"persona_id":              resolution.PersonaID,
			"match_kind":              resolution.MatchKind,
			"guard_policy_name":       guardPolicyName,
			"global_approval_timeout": globalTimeout,
		})
	})

	router.POST("/debug/reload", func(c *gin.Context) {
		if deps.Reloader == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "reload not configured"})
			return
		}
		stats, err := deps.Reloader.Reload(c.Request.Context())
		if err != nil {
			slog.Error("reload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "reloaded",
			"personas": stats.Personas,
			"mappings": stats.Mappings,
			"policies": stats.Policies,
		})
	})

	return router
}
