package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/devconnect/pkg/auth"
	"github.com/khoahotran/devconnect/pkg/logger"
)

type RouterDeps struct {
	ProfileHandler *ProfileHandler
	JWTService     *auth.JWTService
	RateLimiter    *IPRateLimiter
	Metrics        *Metrics
	Logger         logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), deps.Metrics.Middleware(), ErrorMiddleware(deps.Logger))

	authMiddleware := AuthMiddleware(deps.JWTService, deps.Logger)
	limit := RateLimitMiddleware(deps.RateLimiter)
	profileHandler := deps.ProfileHandler

	router.GET("/metrics", deps.Metrics.Handler())

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		profiles := api.Group("/profile")
		{
			profiles.GET("/test", profileHandler.Test)
			profiles.GET("/all", profileHandler.ListProfiles)
			profiles.GET("/handle/:handle", profileHandler.GetProfileByHandle)
			profiles.GET("/user/:user_id", profileHandler.GetProfileByOwner)

			private := profiles.Group("")
			private.Use(authMiddleware)
			{
				private.GET("", profileHandler.GetMyProfile)

				writes := private.Group("")
				writes.Use(limit)
				writes.POST("", profileHandler.UpsertProfile)
				writes.POST("/experience", profileHandler.AddExperience)
				writes.POST("/education", profileHandler.AddEducation)
				writes.DELETE("/experience/:exp_id", profileHandler.RemoveExperience)
				writes.DELETE("/education/:edu_id", profileHandler.RemoveEducation)
				writes.DELETE("", profileHandler.DeleteProfileAndAccount)
			}
		}
	}

	return router
}
