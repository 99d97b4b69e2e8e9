package controllers

import (
	"villa-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine with the middleware chain and all routes.
// limiter may be nil.
func NewRouter(ctrl *VillaController, logger logrus.FieldLogger, limiter *middleware.LimiterStore) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.CORS(),
		middleware.RateLimit(limiter),
	)

	router.GET("/health", ctrl.HealthCheck)
	ctrl.RegisterRoutes(router)
	return router
}
