// controller/revocation_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	"github.com/albeach/DIVE-V3-sub011/revocation"
	"github.com/albeach/DIVE-V3-sub011/util"
)

// RevocationRequest revokes one token or subject for a bounded window.
type RevocationRequest struct {
	ID         string `json:"id" binding:"required"`
	TTLSeconds int64  `json:"ttlSeconds" binding:"required"`
	Reason     string `json:"reason"`
}

type RevocationController struct {
	store *revocation.Store
}

func NewRevocationController(store *revocation.Store) *RevocationController {
	return &RevocationController{store: store}
}

// RegisterRoutes registers the API routes
func (rc *RevocationController) RegisterRoutes(r *gin.RouterGroup) {
	revocations := r.Group("/revocations")
	{
		revocations.POST("/tokens", rc.RevokeToken)
		revocations.POST("/subjects", rc.RevokeSubject)
		revocations.GET("/tokens/:jti", rc.TokenStatus)
		revocations.GET("/subjects/:id", rc.SubjectStatus)
	}
}

// RevokeToken endpoint
func (rc *RevocationController) RevokeToken(c *gin.Context) {
	var request RevocationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid revocation request", dive_errors.ErrInvalidRequest)
		return
	}

	ttl := time.Duration(request.TTLSeconds) * time.Second
	if err := rc.store.BlacklistToken(c, request.ID, ttl, request.Reason); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke token", dive_errors.ErrDatabaseOperation)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"revoked": request.ID, "ttlSeconds": request.TTLSeconds})
}

// RevokeSubject endpoint
func (rc *RevocationController) RevokeSubject(c *gin.Context) {
	var request RevocationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid revocation request", dive_errors.ErrInvalidRequest)
		return
	}

	ttl := time.Duration(request.TTLSeconds) * time.Second
	if err := rc.store.BlacklistSubject(c, request.ID, ttl, request.Reason); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke subject", dive_errors.ErrDatabaseOperation)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"revoked": request.ID, "ttlSeconds": request.TTLSeconds})
}

// TokenStatus endpoint
func (rc *RevocationController) TokenStatus(c *gin.Context) {
	jti := c.Param("jti")

	revoked, err := rc.store.IsTokenBlacklisted(c, jti)
	if err != nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, "Revocation store unreachable", err)
		return
	}

	response := gin.H{"id": jti, "revoked": revoked}
	if revoked {
		if reason, err := rc.store.TokenRevocationReason(c, jti); err == nil && reason != "" {
			response["reason"] = reason
		}
	}
	c.JSON(http.StatusOK, response)
}

// SubjectStatus endpoint
func (rc *RevocationController) SubjectStatus(c *gin.Context) {
	id := c.Param("id")

	revoked, err := rc.store.IsSubjectBlacklisted(c, id)
	if err != nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, "Revocation store unreachable", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "revoked": revoked})
}
