// controller/authorization_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/albeach/DIVE-V3-sub011/audit"
	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	"github.com/albeach/DIVE-V3-sub011/evaluator"
	"github.com/albeach/DIVE-V3-sub011/middleware"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/normalizer"
	"github.com/albeach/DIVE-V3-sub011/util"
)

// AuthorizationRequest is the body of an authorize call. Subjects arrive
// either pre-normalized or as raw country-tagged claims; exactly one of the
// two fields must be set.
type AuthorizationRequest struct {
	Subject    *model.SubjectAttributes `json:"subject,omitempty"`
	RawSubject *normalizer.RawSubject   `json:"rawSubject,omitempty"`
	Resource   model.ResourceAttributes `json:"resource"`
	Action     string                   `json:"action"`
	Context    model.RequestContext     `json:"context"`
}

type AuthorizationController struct {
	evaluator      *evaluator.Evaluator
	auditService   audit.Service
	validationUtil *util.ValidationUtil
}

func NewAuthorizationController(eval *evaluator.Evaluator, auditService audit.Service, validationUtil *util.ValidationUtil) *AuthorizationController {
	return &AuthorizationController{
		evaluator:      eval,
		auditService:   auditService,
		validationUtil: validationUtil,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuthorizationController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/authorize", ac.Authorize)
	r.GET("/audit/trail", ac.QueryTrail)
}

// Authorize endpoint
func (ac *AuthorizationController) Authorize(c *gin.Context) {
	var request AuthorizationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid authorization request", dive_errors.ErrInvalidRequest)
		return
	}

	subject, err := resolveSubject(&request)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid authorization request", err)
		return
	}
	if err := ac.validationUtil.ValidateSubject(*subject); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid subject attributes", err)
		return
	}
	if err := ac.validationUtil.ValidateResource(request.Resource); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid resource attributes", err)
		return
	}

	reqCtx := requestContextFrom(c, request.Context)
	result, err := ac.evaluator.Evaluate(c, *subject, request.Resource, request.Action, reqCtx)
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

	c.JSON(http.StatusOK, result)
}

// QueryTrail endpoint
func (ac *AuthorizationController) QueryTrail(c *gin.Context) {
	from, err := parseTimeParam(c.Query("from"), time.Now().Add(-24*time.Hour))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp", dive_errors.ErrInvalidRequest)
		return
	}
	to, err := parseTimeParam(c.Query("to"), time.Now())
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp", dive_errors.ErrInvalidRequest)
		return
	}

	entries, err := ac.auditService.QueryTrail(c, from, to, c.Query("subjectId"), c.Query("resourceId"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Audit query failed", dive_errors.ErrDatabaseOperation)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

func resolveSubject(request *AuthorizationRequest) (*model.SubjectAttributes, error) {
	switch {
	case request.Subject != nil && request.RawSubject != nil:
		return nil, dive_errors.ErrInvalidRequest
	case request.Subject != nil:
		return request.Subject, nil
	case request.RawSubject != nil:
		subject := normalizer.NormalizeSubject(*request.RawSubject)
		return &subject, nil
	default:
		return nil, dive_errors.ErrInvalidRequest
	}
}

// requestContextFrom merges the request body's context with the identity
// middleware's token claims. Middleware values win for the revocation
// handles so a caller cannot substitute someone else's token id.
func requestContextFrom(c *gin.Context, reqCtx model.RequestContext) model.RequestContext {
	if token := c.GetString(middleware.BearerTokenKey); token != "" {
		reqCtx.BearerToken = token
	}
	if tokenID := c.GetString(middleware.TokenIDKey); tokenID != "" {
		reqCtx.TokenID = tokenID
	}
	if correlationID := c.GetString(middleware.CorrelationIDKey); correlationID != "" && reqCtx.CorrelationID == "" {
		reqCtx.CorrelationID = correlationID
	}
	if reqCtx.RequestedAt.IsZero() {
		reqCtx.RequestedAt = time.Now().UTC()
	}
	return reqCtx
}

func parseTimeParam(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}
