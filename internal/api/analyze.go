package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/themobileprof/symptomcheck/internal/analyzer"
	"github.com/themobileprof/symptomcheck/internal/api/middleware"
	"github.com/themobileprof/symptomcheck/internal/privacy"
	"github.com/themobileprof/symptomcheck/internal/render"
)

// maxTextBytes bounds a single description.
const maxTextBytes = 4096

// Processor runs the analysis pipeline.
type Processor interface {
	Process(ctx context.Context, req analyzer.Request) analyzer.Response
}

// AnalyzeHandler serves one-shot analyses
type AnalyzeHandler struct {
	analyzer Processor
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(a Processor) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Text     string `json:"text"`
	Audience string `json:"audience"`
}

// Analyze handles POST /api/analyze. Every pipeline outcome, including
// guidance for unusable input, is a 200 with a typed kind; only malformed
// requests are rejected.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Text) > maxTextBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Description is too long"})
		return
	}

	audience := render.AudiencePatient
	if req.Audience != "" {
		var ok bool
		if audience, ok = render.ParseAudience(req.Audience); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audience must be patient or clinician"})
			return
		}
	}
	if audience == render.AudienceClinician && middleware.GetRole(c) != middleware.RoleClinician {
		c.JSON(http.StatusForbidden, gin.H{"error": "clinician role required"})
		return
	}

	if privacy.ContainsPII(req.Text) {
		log.Printf("Warning: Potential PII detected in analyze request")
	}

	resp := h.analyzer.Process(c.Request.Context(), analyzer.Request{
		Text:     req.Text,
		Audience: audience,
	})
	c.JSON(http.StatusOK, resp)
}
