package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"crc-quiz-server/grading"
	"crc-quiz-server/middleware"
	"crc-quiz-server/models"
	"crc-quiz-server/results"
)

type historyItem struct {
	models.ResultRecord
	Points int `json:"points"`
}

func historyItems(records []models.ResultRecord) []historyItem {
	items := make([]historyItem, 0, len(records))
	for _, r := range records {
		items = append(items, historyItem{ResultRecord: r, Points: r.Points()})
	}
	return items
}

// GetHistory lists the caller's submitted runs, oldest first.
// GET /api/v1/history
func GetHistory(store *results.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		records, err := store.History(userID)
		if err != nil {
			log.Printf("Error reading history for %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": historyItems(records)})
	}
}

// GetRun returns one run's per-question detail together with its advice.
// GET /api/v1/history/:run_id
func GetRun(store *results.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		entries, err := store.LoadRun(userID, c.Param("run_id"))
		if err != nil {
			if errors.Is(err, results.ErrRunNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": results.ErrRunNotFound.Error()})
				return
			}
			log.Printf("Error loading run %s for %s: %v", c.Param("run_id"), userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load run"})
			return
		}
		advice := grading.BuildAdvice(entries)
		c.JSON(http.StatusOK, gin.H{
			"run_id":     c.Param("run_id"),
			"detail":     entries,
			"advice":     advice,
			"paragraphs": advice.Paragraphs(),
		})
	}
}

func pageData(c *gin.Context, title string) gin.H {
	return gin.H{
		"Title":    title,
		"UserID":   middleware.UserID(c),
		"UserName": c.GetString(middleware.CtxUserName),
	}
}

// HistoryPage renders the history table.
// GET /history
func HistoryPage(store *results.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := store.History(middleware.UserID(c))
		if err != nil {
			data := pageData(c, "历史记录")
			data["Message"] = "读取历史记录失败。"
			c.HTML(http.StatusInternalServerError, pageError, data)
			return
		}
		data := pageData(c, "历史记录")
		data["Records"] = records
		c.HTML(http.StatusOK, pageHistory, data)
	}
}

// RunPage renders the per-question review of one run.
// GET /history/:run_id
func RunPage(store *results.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")
		entries, err := store.LoadRun(middleware.UserID(c), runID)
		if err != nil {
			data := pageData(c, "回顾不可用")
			data["Message"] = "该条历史记录不可回顾（history unavailable for this entry）。"
			c.HTML(http.StatusNotFound, pageError, data)
			return
		}
		data := pageData(c, "回顾 "+runID)
		data["Entries"] = entries
		data["Paragraphs"] = grading.BuildAdvice(entries).Paragraphs()
		c.HTML(http.StatusOK, pageRun, data)
	}
}
