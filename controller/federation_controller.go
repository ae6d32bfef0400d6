// controller/federation_controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/registry"
	"github.com/albeach/DIVE-V3-sub011/util"
)

type FederationController struct {
	registry       *registry.InstanceRegistry
	validationUtil *util.ValidationUtil
}

func NewFederationController(reg *registry.InstanceRegistry, validationUtil *util.ValidationUtil) *FederationController {
	return &FederationController{
		registry:       reg,
		validationUtil: validationUtil,
	}
}

// RegisterRoutes registers the API routes
func (fc *FederationController) RegisterRoutes(r *gin.RouterGroup) {
	federation := r.Group("/federation")
	{
		federation.GET("/route", fc.ResolveRoute)
		federation.GET("/instances", fc.ListInstances)
		federation.GET("/instances/:id", fc.GetInstance)
		federation.PUT("/instances/:id", fc.UpsertInstance)
		federation.DELETE("/instances/:id", fc.DeleteInstance)
	}
}

// ResolveRoute endpoint: which KAS should serve a requester for content
// from a given origin instance.
func (fc *FederationController) ResolveRoute(c *gin.Context) {
	origin := c.Query("origin")
	requester := c.Query("requester")
	if origin == "" || requester == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Both 'origin' and 'requester' are required", dive_errors.ErrInvalidRequest)
		return
	}

	route, err := fc.registry.ResolveRoute(origin, requester)
	if err != nil {
		switch {
		case errors.Is(err, dive_errors.ErrUnknownInstance):
			util.RespondWithError(c, http.StatusNotFound, "Unknown federation instance", err)
		case errors.Is(err, dive_errors.ErrUntrustedKAS):
			util.RespondWithDenial(c, http.StatusForbidden, err.Error())
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Route resolution failed", dive_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, route)
}

// ListInstances endpoint
func (fc *FederationController) ListInstances(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid limit parameter", dive_errors.ErrInvalidRequest)
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid offset parameter", dive_errors.ErrInvalidRequest)
		return
	}

	entries := fc.registry.ListEntries()

	start := offset
	if start > len(entries) {
		start = len(entries)
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}

	c.JSON(http.StatusOK, gin.H{
		"instances": entries[start:end],
		"total":     len(entries),
		"limit":     limit,
		"offset":    offset,
	})
}

// GetInstance endpoint
func (fc *FederationController) GetInstance(c *gin.Context) {
	entry, err := fc.registry.Entry(c.Param("id"))
	if err != nil {
		util.RespondWithError(c, http.StatusNotFound, "Unknown federation instance", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// UpsertInstance endpoint
func (fc *FederationController) UpsertInstance(c *gin.Context) {
	var entry model.InstanceRegistryEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid instance entry", dive_errors.ErrInvalidRequest)
		return
	}
	entry.InstanceID = c.Param("id")

	if err := fc.validationUtil.ValidateInstanceEntry(entry); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid instance entry", err)
		return
	}

	updated, err := fc.registry.UpsertEntry(c, entry)
	if err != nil {
		switch {
		case errors.Is(err, dive_errors.ErrInstanceConflict):
			util.RespondWithError(c, http.StatusConflict, "Instance entry conflict", err)
		case errors.Is(err, dive_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to store instance entry", dive_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteInstance endpoint
func (fc *FederationController) DeleteInstance(c *gin.Context) {
	if err := fc.registry.DeleteEntry(c, c.Param("id")); err != nil {
		if errors.Is(err, dive_errors.ErrUnknownInstance) {
			util.RespondWithError(c, http.StatusNotFound, "Unknown federation instance", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete instance entry", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}
