package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skill-bright/cde-huddle-sub001/internal/model"
	"github.com/skill-bright/cde-huddle-sub001/internal/report"
)

// writeError maps service errors onto status codes. Repository failures
// are reported with the generic message only.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidDateRange), errors.Is(err, report.ErrInvalidUpdate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, report.ErrUnknownMember):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, report.ErrRepository):
		c.JSON(http.StatusInternalServerError, gin.H{"error": report.ErrRepository.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return n, true
}

// GET /api/team
func (s *Server) team(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Team())
}

// POST /api/updates  body: UpdateRecord
func (s *Server) submitUpdate(c *gin.Context) {
	var rec model.UpdateRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	saved, err := s.svc.SubmitUpdate(c.Request.Context(), rec)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// GET /api/history?limit=
func (s *Server) history(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	entries, err := s.svc.History(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) window(weekStart, weekEnd string) (string, string) {
	if weekStart == "" && weekEnd == "" {
		return s.svc.CurrentWeek()
	}
	return weekStart, weekEnd
}

// GET /api/reports?week_start=&week_end=&ai=false
func (s *Server) getReport(c *gin.Context) {
	weekStart, weekEnd := s.window(c.Query("week_start"), c.Query("week_end"))

	var opts []report.Option
	if ai := c.Query("ai"); ai != "" {
		include, err := strconv.ParseBool(ai)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ai flag"})
			return
		}
		if !include {
			opts = append(opts, report.WithoutAI())
		}
	}

	rep, err := s.svc.GenerateWeeklyReport(c.Request.Context(), weekStart, weekEnd, opts...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// GET /api/reports/snapshots?limit=
func (s *Server) listSnapshots(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	snaps, err := s.svc.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snaps)
}

// POST /api/reports/snapshots  body: {"weekStart":"...","weekEnd":"...","includeAI":true}
func (s *Server) saveSnapshot(c *gin.Context) {
	var req struct {
		WeekStart string `json:"weekStart"`
		WeekEnd   string `json:"weekEnd"`
		IncludeAI *bool  `json:"includeAI"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	weekStart, weekEnd := s.window(req.WeekStart, req.WeekEnd)

	var opts []report.Option
	if req.IncludeAI != nil && !*req.IncludeAI {
		opts = append(opts, report.WithoutAI())
	}

	ctx := c.Request.Context()
	rep, err := s.svc.GenerateWeeklyReport(ctx, weekStart, weekEnd, opts...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.svc.SaveSnapshot(ctx, rep); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.NewSnapshot(rep))
}

// POST /api/drafts  body: {"name":"...","notes":"..."}
func (s *Server) draft(c *gin.Context) {
	if s.drafts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "drafts require AI to be enabled"})
		return
	}
	var req struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Notes) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and notes are required"})
		return
	}

	person := model.Member{Name: strings.TrimSpace(req.Name)}
	for _, m := range s.svc.Team() {
		if strings.EqualFold(m.Name, person.Name) {
			person = m
			break
		}
	}

	d, err := s.drafts.Generate(c.Request.Context(), person, req.Notes)
	if err != nil {
		s.logger.Warn("draft generation failed", "name", person.Name, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate draft"})
		return
	}
	c.JSON(http.StatusOK, d)
}
