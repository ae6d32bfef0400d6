// controller/federation_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/albeach/DIVE-V3-sub011/controller"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/registry"
	dive_mock "github.com/albeach/DIVE-V3-sub011/test/mock"
	"github.com/albeach/DIVE-V3-sub011/util"
)

func newFederationRouter(t *testing.T) (*gin.Engine, *dive_mock.MockRegistryStore) {
	t.Helper()

	store := &dive_mock.MockRegistryStore{}
	store.On("ListInstances", testify_mock.Anything).Return([]model.InstanceRegistryEntry{
		{
			InstanceID:        "usa-instance",
			Country:           "USA",
			MaxClassification: model.TopSecret,
			TrustedKAS:        []string{"kas-usa", "kas-shared"},
			KASEndpoints: map[string]string{
				"kas-usa":    "https://kas.usa.example/release",
				"kas-shared": "https://kas-shared.example/release",
			},
		},
		{
			InstanceID:        "deu-instance",
			Country:           "DEU",
			MaxClassification: model.Secret,
			TrustedKAS:        []string{"kas-shared", "kas-deu"},
		},
	}, nil)

	reg := registry.NewInstanceRegistry(store, "usa-instance")
	require.NoError(t, reg.Refresh(context.Background()))

	router := gin.New()
	api := router.Group("/api/v1")
	controller.NewFederationController(reg, util.NewValidationUtil()).RegisterRoutes(api)
	return router, store
}

func TestFederationController(t *testing.T) {
	logger.InitLogger(".")
	defer logger.Sync()
	gin.SetMode(gin.TestMode)

	t.Run("ResolveRoute_BilateralTrust", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/route?origin=usa-instance&requester=deu-instance", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var route model.FederationRoute
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &route))
		assert.Equal(t, "kas-shared", route.KASID)
		assert.Equal(t, "https://kas-shared.example/release", route.KASURL)
		assert.False(t, route.FallbackUsed)
	})

	t.Run("ResolveRoute_Failure_MissingParams", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/route?origin=usa-instance", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ResolveRoute_Failure_UnknownInstance", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/route?origin=zzz-instance&requester=deu-instance", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListInstances", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/instances", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Instances []model.InstanceRegistryEntry `json:"instances"`
			Total     int                           `json:"total"`
			Limit     int                           `json:"limit"`
			Offset    int                           `json:"offset"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Total)
		require.Len(t, body.Instances, 2)
		assert.Equal(t, "deu-instance", body.Instances[0].InstanceID)
		assert.Equal(t, "usa-instance", body.Instances[1].InstanceID)
		assert.Equal(t, 10, body.Limit)
		assert.Equal(t, 0, body.Offset)
	})

	t.Run("ListInstances_LimitOffsetWindow", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/instances?limit=1&offset=1", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Instances []model.InstanceRegistryEntry `json:"instances"`
			Total     int                           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Total)
		require.Len(t, body.Instances, 1)
		assert.Equal(t, "usa-instance", body.Instances[0].InstanceID)
	})

	t.Run("ListInstances_Failure_BadLimit", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/instances?limit=abc", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GetInstance_Failure_NotFound", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/federation/instances/zzz-instance", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("UpsertInstance_Success", func(t *testing.T) {
		router, store := newFederationRouter(t)

		entry := &model.InstanceRegistryEntry{
			InstanceID:        "fra-instance",
			Country:           "FRA",
			MaxClassification: model.Secret,
			TrustedKAS:        []string{"kas-shared"},
		}
		store.On("UpsertInstance", testify_mock.Anything, testify_mock.Anything).Return(entry, nil)

		body := strings.NewReader(`{"country":"FRA","max_classification":"SECRET","trusted_kas":["kas-shared"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/v1/federation/instances/fra-instance", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpsertInstance_Failure_BadCountry", func(t *testing.T) {
		router, _ := newFederationRouter(t)

		body := strings.NewReader(`{"country":"Germany","max_classification":"SECRET"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/v1/federation/instances/deu-instance", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DeleteInstance_Success", func(t *testing.T) {
		router, store := newFederationRouter(t)
		store.On("DeleteInstance", testify_mock.Anything, "deu-instance").Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/v1/federation/instances/deu-instance", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
