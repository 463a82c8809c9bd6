package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"crc-quiz-server/cases"
)

// ListCases pages through the case table.
// GET /api/v1/cases?q=&phase=&page=&per_page=
func ListCases(catalog *cases.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(cases.DefaultPageSize)))
		c.JSON(http.StatusOK, catalog.Table().Browse(cases.BrowseQuery{
			Query:   c.Query("q"),
			Phase:   c.Query("phase"),
			Page:    page,
			PerPage: perPage,
		}))
	}
}

// ListPhases returns the distinct trial phases.
// GET /api/v1/cases/phases
func ListPhases(catalog *cases.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		phases := catalog.Table().Phases()
		if phases == nil {
			phases = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"phases": phases})
	}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask answers a free-text question from the most relevant cases.
// POST /api/v1/ask
func Ask(catalog *cases.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
			return
		}
		hits := catalog.Table().Retrieve(req.Question, cases.DefaultHits)
		c.JSON(http.StatusOK, gin.H{
			"answer":     cases.SynthesizeAnswer(hits),
			"references": cases.References(hits),
		})
	}
}
