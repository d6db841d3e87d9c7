package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/themobileprof/symptomcheck/internal/classifier"
)

// HealthHandler reports liveness and model readiness
type HealthHandler struct {
	sufficiency classifier.Sufficiency
	enhancer    bool
	catalog     string
}

// NewHealthHandler captures the startup state reported by /health.
func NewHealthHandler(suff classifier.Sufficiency, enhancerAvailable bool, catalogSource string) *HealthHandler {
	return &HealthHandler{
		sufficiency: suff,
		enhancer:    enhancerAvailable,
		catalog:     catalogSource,
	}
}

// Health handles GET /health. A small training corpus is reported as
// degraded but the service stays up.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	if !h.sufficiency.Sufficient {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"time":       time.Now().Unix(),
		"classifier": h.sufficiency,
		"enhancer":   h.enhancer,
		"catalog":    h.catalog,
	})
}
