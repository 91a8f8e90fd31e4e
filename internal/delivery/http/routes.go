package http

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/prodlens/backend/config"
)

var registerTagNameOnce sync.Once

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerTagNameOnce.Do(useFormTagNames)

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(SecureHeadersMiddleware(cfg.Server.Environment == "production"))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	api := router.Group("/api")
	{
		api.GET("/health", handler.HealthCheck)
		api.GET("/lookup", RateLimitMiddleware(cfg.RateLimit.PerIP), handler.LookupProduct)
	}

	return router
}

// useFormTagNames makes validation errors report query parameter names
func useFormTagNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
}
