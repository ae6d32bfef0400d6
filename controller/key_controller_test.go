// controller/key_controller_test.go
package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albeach/DIVE-V3-sub011/controller"
	"github.com/albeach/DIVE-V3-sub011/evaluator"
	"github.com/albeach/DIVE-V3-sub011/kas"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/pep"
	dive_mock "github.com/albeach/DIVE-V3-sub011/test/mock"
)

func newKeyRouter(t *testing.T) *gin.Engine {
	t.Helper()

	reg := newTestRegistry(t)
	pepService := pep.NewPEP(allowAllPDP{}, openRevocations{}, time.Minute)
	eval := evaluator.NewEvaluator(pepService, reg, &dive_mock.RecordingAuditService{})
	keyRouter := kas.NewRouter(
		kas.NewHTTPKASClient(time.Second),
		reg,
		kas.DefaultBreakerConfig(),
		time.Second,
		5*time.Second,
	)

	router := gin.New()
	api := router.Group("/api/v1")
	controller.NewKeyController(eval, keyRouter).RegisterRoutes(api)
	return router
}

func postRelease(t *testing.T, router *gin.Engine, request controller.AuthorizationRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(request)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/keys/release", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestKeyController(t *testing.T) {
	logger.InitLogger(".")
	defer logger.Sync()
	gin.SetMode(gin.TestMode)

	subject := model.SubjectAttributes{
		UniqueID:             "jsmith@army.mil",
		Clearance:            model.Secret,
		CountryOfAffiliation: "USA",
		ACPCOI:               []string{"NATO"},
		OriginInstance:       "usa-instance",
	}

	t.Run("ReleaseKey_Success", func(t *testing.T) {
		kasServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(kas.ReleaseResponse{Success: true, Key: "wrapped-key", KASID: "kas-usa"})
		}))
		defer kasServer.Close()

		router := newKeyRouter(t)
		resource := model.ResourceAttributes{
			ResourceID:      "doc-enc-1",
			Classification:  model.Secret,
			ReleasabilityTo: []string{"USA"},
			InstanceID:      "usa-instance",
			Encrypted:       true,
			KeyAccessObjects: []model.KeyAccessObject{
				{
					KAOID:  "kao-1",
					KASID:  "kas-usa",
					KASURL: kasServer.URL,
					PolicyBinding: model.PolicyBinding{
						COIRequired: []string{"NATO"},
					},
				},
			},
		}

		w := postRelease(t, router, controller.AuthorizationRequest{Subject: &subject, Resource: resource})

		require.Equal(t, http.StatusOK, w.Code)

		var response controller.KeyReleaseResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Release.Success)
		assert.Equal(t, "wrapped-key", response.Release.Key)
		assert.Equal(t, "kao-1", response.Release.WinningKAO)
		assert.True(t, response.Authorization.Decision.Allow)
	})

	t.Run("ReleaseKey_Failure_AuthorizationDenied", func(t *testing.T) {
		router := newKeyRouter(t)
		resource := model.ResourceAttributes{
			ResourceID:      "doc-enc-2",
			Classification:  model.TopSecret,
			ReleasabilityTo: []string{"USA"},
			InstanceID:      "usa-instance",
			Encrypted:       true,
			KeyAccessObjects: []model.KeyAccessObject{
				{KAOID: "kao-1", KASID: "kas-usa", KASURL: "http://unused.example"},
			},
		}

		w := postRelease(t, router, controller.AuthorizationRequest{Subject: &subject, Resource: resource})

		assert.Equal(t, http.StatusForbidden, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body["denialReason"], "clearance")
	})

	t.Run("ReleaseKey_Failure_NoKAOs", func(t *testing.T) {
		router := newKeyRouter(t)
		resource := model.ResourceAttributes{
			ResourceID:      "doc-plain",
			Classification:  model.Unclassified,
			ReleasabilityTo: []string{"USA"},
			InstanceID:      "usa-instance",
		}

		w := postRelease(t, router, controller.AuthorizationRequest{Subject: &subject, Resource: resource})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("BreakerState_And_Reset", func(t *testing.T) {
		router := newKeyRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/keys/breakers/kas-usa", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var state map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
		assert.Equal(t, "closed", state["state"])

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("POST", "/api/v1/keys/breakers/kas-usa/reset", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
