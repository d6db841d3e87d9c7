package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/themobileprof/symptomcheck/internal/catalog"
	"github.com/themobileprof/symptomcheck/internal/knowledge"
	"github.com/themobileprof/symptomcheck/internal/lexicon"
)

// ConditionSource looks up catalog entries.
type ConditionSource interface {
	Condition(ctx context.Context, id string) (knowledge.Condition, error)
}

// SymptomHandler serves the symptom vocabulary and condition details
type SymptomHandler struct {
	lexicon *lexicon.Lexicon
	catalog ConditionSource
}

// NewSymptomHandler creates a new symptom handler
func NewSymptomHandler(lex *lexicon.Lexicon, cat ConditionSource) *SymptomHandler {
	return &SymptomHandler{
		lexicon: lex,
		catalog: cat,
	}
}

// SymptomInfo is one recognised symptom.
type SymptomInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Emergency bool   `json:"emergency"`
}

// ListSymptoms returns the recognised symptoms in lexicon order
// GET /api/symptoms?category=respiratory
func (h *SymptomHandler) ListSymptoms(c *gin.Context) {
	category := strings.ToLower(strings.TrimSpace(c.Query("category")))

	symptoms := make([]SymptomInfo, 0, len(h.lexicon.Symptoms()))
	for _, s := range h.lexicon.Symptoms() {
		if category != "" && s.Category != category {
			continue
		}
		symptoms = append(symptoms, SymptomInfo{
			ID:        s.ID,
			Name:      s.Display(),
			Category:  s.Category,
			Emergency: s.Emergency,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"symptoms": symptoms,
		"count":    len(symptoms),
	})
}

// GetCondition returns one catalog entry
// GET /api/conditions/:id
func (h *SymptomHandler) GetCondition(c *gin.Context) {
	id := knowledge.NormalizeID(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Condition ID required"})
		return
	}

	cond, err := h.catalog.Condition(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Condition not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve condition"})
		return
	}

	c.JSON(http.StatusOK, cond)
}
