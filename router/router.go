// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/albeach/DIVE-V3-sub011/controller"
	"github.com/albeach/DIVE-V3-sub011/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	router.Use(middleware.BearerToken())

	api := router.Group("/api/v1")

	controllers.Authorization.RegisterRoutes(api)
	controllers.Key.RegisterRoutes(api)
	controllers.Federation.RegisterRoutes(api)
	controllers.Revocation.RegisterRoutes(api)

	return router
}
