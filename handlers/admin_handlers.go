package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crc-quiz-server/cases"
	"crc-quiz-server/db"
	"crc-quiz-server/middleware"
	"crc-quiz-server/models"
	"crc-quiz-server/results"
	"crc-quiz-server/session"
)

// ReloadCases re-reads the case workbook. On failure the previous table
// stays in service.
// POST /admin/cases/reload
func ReloadCases(catalog *cases.Catalog, audit db.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.UserID(c)
		n, err := catalog.Reload()
		if err != nil {
			log.Printf("Manual case reload failed: %v", err)
			audit.LogError(c.Request.Context(), models.ErrorLog{Source: "cases", ErrorMessage: err.Error()})
			audit.LogAdminEvent(c.Request.Context(), actor, db.ActionCasesReloaded, "", fmt.Sprintf("Error: %v", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Reload failed: %v", err)})
			return
		}
		audit.LogAdminEvent(c.Request.Context(), actor, db.ActionCasesReloaded, "", fmt.Sprintf("%d rows", n))
		c.JSON(http.StatusOK, gin.H{"message": "Case table reloaded", "rows": n})
	}
}

// RebuildResults rewrites summary logs from run files, for one user or all.
// POST /admin/results/rebuild?user=
func RebuildResults(store *results.Store, audit db.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.UserID(c)
		users := []string{c.Query("user")}
		if users[0] == "" {
			var err error
			users, err = store.Users()
			if err != nil {
				log.Printf("Error listing result users: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
				return
			}
		}

		rebuilt := make(map[string]int, len(users))
		failed := make(map[string]string)
		for _, u := range users {
			n, err := store.RewriteSummary(u)
			if err != nil {
				log.Printf("Error rebuilding results for %s: %v", u, err)
				failed[u] = err.Error()
				continue
			}
			rebuilt[u] = n
			audit.LogAdminEvent(c.Request.Context(), actor, db.ActionResultsRebuilt, u, fmt.Sprintf("%d runs", n))
		}
		status := http.StatusOK
		if len(failed) > 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"rebuilt": rebuilt, "failed": failed})
	}
}

// AdminEvents lists recent audit events.
// GET /admin/events?limit=
func AdminEvents(audit db.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit <= 0 || limit > 500 {
			limit = 50
		}
		events, err := audit.RecentEvents(c.Request.Context(), limit)
		if err != nil {
			log.Printf("Error fetching admin events: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve events"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// Health reports the loaded case table and, for stores backed by an external
// service, whether that service answers. An unreachable session store is 503.
func Health(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":     "ok",
			"cases":      env.Catalog.Table().Len(),
			"cases_from": env.Catalog.LoadedAt().Format(time.RFC3339),
		}
		if env.Exams != nil {
			if hc, ok := env.Exams.Sessions.(session.HealthChecker); ok {
				if err := hc.HealthCheck(c.Request.Context()); err != nil {
					log.Printf("Session store health check failed: %v", err)
					body["status"] = "degraded"
					body["sessions"] = err.Error()
					c.JSON(http.StatusServiceUnavailable, body)
					return
				}
				body["sessions"] = "ok"
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
