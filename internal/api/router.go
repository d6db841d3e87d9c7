package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/themobileprof/symptomcheck/internal/api/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Analyze  *AnalyzeHandler
	Symptoms *SymptomHandler
	Health   *HealthHandler
	Chat     gin.HandlerFunc

	// FlushCatalog drops cached catalog entries after the catalog database
	// has been edited.
	FlushCatalog func()

	JWTSecret      string
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
	SubjectLimiter *middleware.RateLimiter
}

// NewRouter wires routes and middleware.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	if h.Limiter != nil {
		router.Use(middleware.PerIP(h.Limiter))
	}

	router.GET("/health", h.Health.Health)

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.OptionalJWT(h.JWTSecret))
	if h.SubjectLimiter != nil {
		apiGroup.Use(middleware.PerSubject(h.SubjectLimiter))
	}
	{
		apiGroup.POST("/analyze", h.Analyze.Analyze)
		apiGroup.GET("/symptoms", h.Symptoms.ListSymptoms)
		apiGroup.GET("/conditions/:id", h.Symptoms.GetCondition)
	}

	if h.FlushCatalog != nil {
		admin := router.Group("/api/admin")
		admin.Use(middleware.JWTAuth(h.JWTSecret), middleware.RequireRole(middleware.RoleOperator))
		admin.POST("/catalog/flush", func(c *gin.Context) {
			h.FlushCatalog()
			c.JSON(http.StatusOK, gin.H{"message": "Catalog cache flushed"})
		})
	}

	if h.Chat != nil {
		router.GET("/ws/chat", h.Chat)
	}

	return router
}
