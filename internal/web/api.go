package web

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/aatumaykin/ghbackup/internal/dashboard"
	"github.com/aatumaykin/ghbackup/internal/github"
	"github.com/gin-gonic/gin"
)

// GET /api/cron/validate?expression=...
func (s *Server) handleCronValidate(c *gin.Context) {
	verdict := s.validator.Validate(c.Query("expression"))
	s.metrics.RecordCronValidation(verdict.Valid)
	c.JSON(http.StatusOK, verdict)
}

type tokenRequest struct {
	Token string `json:"token"`
}

// POST /api/token/validate {"token": "..."}
func (s *Server) handleTokenValidate(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, github.ValidateToken(""))
		return
	}
	c.JSON(http.StatusOK, github.ValidateToken(req.Token))
}

// StatusResponse drives the auto-refresh of the dashboard and status pages.
type StatusResponse struct {
	RunningJobs int  `json:"running_jobs"`
	Active      bool `json:"active"`
	dashboard.Decision
}

// GET /api/status?view=dashboard|status&visible=true&idle_ms=N
func (s *Server) handleAPIStatus(c *gin.Context) {
	running, err := s.store.Jobs.CountRunning(c.Request.Context())
	if err != nil {
		s.logger.ErrorCtx(c.Request.Context(), "failed to count running jobs", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	view := dashboard.ParseView(c.DefaultQuery("view", "/"))
	visible, err := strconv.ParseBool(c.DefaultQuery("visible", "true"))
	if err != nil {
		visible = false
	}
	idleFor := parseIdle(c.DefaultQuery("idle_ms", "0"))

	hasRunning := running > 0
	c.JSON(http.StatusOK, StatusResponse{
		RunningJobs: running,
		Active:      s.policy.Active(view, hasRunning),
		Decision:    s.policy.Decide(view, visible, idleFor, hasRunning),
	})
}

// maxIdleMS keeps idle_ms * time.Millisecond inside time.Duration.
const maxIdleMS = math.MaxInt64 / int64(time.Millisecond)

// parseIdle reads idle_ms. Values past the Duration range saturate; garbage counts as active.
func parseIdle(raw string) time.Duration {
	// при ErrRange ParseInt возвращает MaxInt64 / MinInt64
	ms, err := strconv.ParseInt(raw, 10, 64)
	switch {
	case ms > maxIdleMS:
		ms = maxIdleMS
	case err != nil || ms < 0:
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}
