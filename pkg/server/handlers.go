package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	tenet "github.com/tenetdb/tenet"
	"github.com/tenetdb/tenet/pkg/recall"
	"github.com/tenetdb/tenet/pkg/types"
)

type rememberRequest struct {
	Text      string `json:"text" binding:"required"`
	Scope     string `json:"scope"`
	SessionID string `json:"session_id"`
}

type recallRequest struct {
	Query string `json:"query" binding:"required"`
	Scope string `json:"scope"`
	Limit int    `json:"limit"`
}

type detailsRequest struct {
	IDs   []string `json:"ids" binding:"required"`
	Scope string   `json:"scope"`
}

type sweepRequest struct {
	Scope    string `json:"scope"`
	BudgetMS int    `json:"budget_ms"`
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "tenet",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c *gin.Context) {
	// A recall against the global store exercises the database path end to
	// end without side effects.
	_, err := s.client.Explain(c.Request.Context(), "readiness-probe", types.ScopeGlobal)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func parseScope(raw string) (types.Scope, bool) {
	if raw == "" {
		return "", true
	}
	sc := types.Scope(raw)
	return sc, sc.Valid()
}

func (s *Server) remember(c *gin.Context) {
	var req rememberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, ok := parseScope(req.Scope)
	if !ok || sc == types.ScopeAll {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be project or global"})
		return
	}

	result, err := s.client.Remember(c.Request.Context(), req.Text, tenet.RememberOptions{
		SessionID: req.SessionID,
		Scope:     sc,
		Source:    "http",
	})
	if err != nil {
		status := http.StatusInternalServerError
		if _, ok := err.(*types.ValidationError); ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) recall(c *gin.Context) {
	var req recallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, ok := parseScope(req.Scope)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	results, err := s.client.Recall(c.Request.Context(), req.Query, recall.Options{Scope: sc, Limit: req.Limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) recallIndex(c *gin.Context) {
	var req recallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, ok := parseScope(req.Scope)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	previews, err := s.client.RecallIndex(c.Request.Context(), req.Query, recall.Options{Scope: sc, Limit: req.Limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": previews})
}

func (s *Server) recallDetails(c *gin.Context) {
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, ok := parseScope(req.Scope)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	results, err := s.client.RecallDetails(c.Request.Context(), req.IDs, sc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) explain(c *gin.Context) {
	sc, ok := parseScope(c.Query("scope"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	exp, err := s.client.Explain(c.Request.Context(), c.Param("id"), sc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !exp.Present {
		c.JSON(http.StatusNotFound, exp)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (s *Server) changes(c *gin.Context) {
	sinceRaw := c.Query("since")
	since, err := time.Parse(time.RFC3339, sinceRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
		return
	}
	sc, ok := parseScope(c.Query("scope"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	facts, err := s.client.Changes(c.Request.Context(), since, 0, sc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts})
}

func (s *Server) sweep(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, ok := parseScope(req.Scope)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}

	report, err := s.client.Sweep(c.Request.Context(), sc, time.Duration(req.BudgetMS)*time.Millisecond)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
