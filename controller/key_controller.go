// controller/key_controller.go
package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	"github.com/albeach/DIVE-V3-sub011/evaluator"
	"github.com/albeach/DIVE-V3-sub011/kas"
	"github.com/albeach/DIVE-V3-sub011/middleware"
	"github.com/albeach/DIVE-V3-sub011/util"
)

// KeyReleaseResponse pairs the authorization decision with the fallback
// chain outcome so callers see why a particular KAS won.
type KeyReleaseResponse struct {
	Authorization *evaluator.Result     `json:"authorization"`
	Release       *kas.KeyReleaseResult `json:"release"`
}

type KeyController struct {
	evaluator *evaluator.Evaluator
	router    *kas.Router
}

func NewKeyController(eval *evaluator.Evaluator, router *kas.Router) *KeyController {
	return &KeyController{
		evaluator: eval,
		router:    router,
	}
}

// RegisterRoutes registers the API routes
func (kc *KeyController) RegisterRoutes(r *gin.RouterGroup) {
	keys := r.Group("/keys")
	{
		keys.POST("/release", kc.ReleaseKey)
		keys.GET("/breakers/:kasId", kc.BreakerState)
		keys.POST("/breakers/:kasId/reset", kc.ResetBreaker)
	}
}

// ReleaseKey endpoint. Authorization runs first; only an allow decision
// reaches the fallback chain.
func (kc *KeyController) ReleaseKey(c *gin.Context) {
	var request AuthorizationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid key release request", dive_errors.ErrInvalidRequest)
		return
	}

	subject, err := resolveSubject(&request)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid key release request", err)
		return
	}

	action := request.Action
	if action == "" {
		action = "decrypt"
	}

	reqCtx := requestContextFrom(c, request.Context)
	result, err := kc.evaluator.Evaluate(c, *subject, request.Resource, action, reqCtx)
	if err != nil {
		if errors.Is(err, dive_errors.ErrUnknownInstance) {
			util.RespondWithError(c, http.StatusUnprocessableEntity, "Unknown federation instance", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Authorization pipeline failed", dive_errors.ErrInternalServer)
		return
	}

	if !result.Decision.Allow {
		util.RespondWithDenial(c, http.StatusForbidden, result.Decision.Reason)
		return
	}

	release, err := kc.router.ReleaseKey(c, *subject, request.Resource, c.GetString(middleware.BearerTokenKey))
	if err != nil {
		switch {
		case errors.Is(err, dive_errors.ErrInvalidRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Resource carries no key access objects", err)
		case errors.Is(err, context.Canceled):
			// Caller disconnected; nothing useful to write back.
			c.Abort()
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Key release failed", dive_errors.ErrInternalServer)
		}
		return
	}

	response := KeyReleaseResponse{Authorization: result, Release: release}

	if release.Success {
		c.JSON(http.StatusOK, response)
		return
	}
	if release.Reason == dive_errors.ErrNoAccessibleKAO.Error() || allDenials(release) {
		c.JSON(http.StatusForbidden, response)
		return
	}
	c.JSON(http.StatusBadGateway, response)
}

// BreakerState endpoint
func (kc *KeyController) BreakerState(c *gin.Context) {
	kasID := c.Param("kasId")
	c.JSON(http.StatusOK, gin.H{
		"kasId": kasID,
		"state": kc.router.Breakers().State(kasID).String(),
	})
}

// ResetBreaker endpoint
func (kc *KeyController) ResetBreaker(c *gin.Context) {
	kasID := c.Param("kasId")
	kc.router.Breakers().Reset(kasID)
	c.JSON(http.StatusOK, gin.H{
		"kasId": kasID,
		"state": kas.CircuitClosed.String(),
	})
}

func allDenials(release *kas.KeyReleaseResult) bool {
	if len(release.FailedKAOs) == 0 {
		return false
	}
	for _, failure := range release.FailedKAOs {
		if !failure.Denial {
			return false
		}
	}
	return true
}
