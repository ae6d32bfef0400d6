// evaluator/evaluator_test.go
package evaluator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/albeach/DIVE-V3-sub011/audit"
	"github.com/albeach/DIVE-V3-sub011/evaluator"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/pdp"
	"github.com/albeach/DIVE-V3-sub011/pep"
	"github.com/albeach/DIVE-V3-sub011/registry"
	"github.com/albeach/DIVE-V3-sub011/test/mock"
)

type allowAllPDP struct{ calls int }

func (a *allowAllPDP) Decide(ctx context.Context, request pdp.DecisionRequest) (*pdp.DecisionResponse, error) {
	a.calls++
	return &pdp.DecisionResponse{Allow: true, Reason: "policy allows"}, nil
}

type openRevocations struct{}

func (openRevocations) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

func (openRevocations) IsSubjectBlacklisted(ctx context.Context, uniqueID string) (bool, error) {
	return false, nil
}

func TestMain(m *testing.M) {
	logger.InitLogger(".")
	m.Run()
}

func testRegistry(t *testing.T) *registry.InstanceRegistry {
	t.Helper()
	store := new(mock.MockRegistryStore)
	store.On("ListInstances", testify_mock.Anything).Return([]model.InstanceRegistryEntry{
		{
			InstanceID: "usa-instance",
			Country:    "USA",
			ClearanceMapping: map[string]model.ClearanceLevel{
				"SECRET":     model.Secret,
				"TOP SECRET": model.TopSecret,
			},
			TrustedKAS:        []string{"kas-usa", "kas-deu"},
			MaxClassification: model.TopSecret,
			AllowedCOIs:       []string{"FVEY", "NATO"},
		},
		{
			InstanceID: "deu-instance",
			Country:    "DEU",
			ClearanceMapping: map[string]model.ClearanceLevel{
				"GEHEIM": model.Secret,
			},
			TrustedKAS:        []string{"kas-deu", "kas-usa"},
			MaxClassification: model.Secret,
			AllowedCOIs:       []string{"NATO"},
		},
	}, nil)

	reg := registry.NewInstanceRegistry(store, "usa-instance")
	require.NoError(t, reg.Refresh(context.Background()))
	return reg
}

func newEvaluator(t *testing.T, client pdp.Client, auditSvc audit.Service) *evaluator.Evaluator {
	t.Helper()
	p := pep.NewPEP(client, openRevocations{}, time.Minute)
	return evaluator.NewEvaluator(p, testRegistry(t), auditSvc)
}

func usAnalyst() model.SubjectAttributes {
	return model.SubjectAttributes{
		UniqueID:             "asmith@army.mil",
		Clearance:            model.TopSecret,
		ClearanceOriginal:    "TOP SECRET",
		ClearanceCountry:     "USA",
		CountryOfAffiliation: "USA",
		ACPCOI:               []string{"NATO", "FVEY"},
		OriginInstance:       "usa-instance",
	}
}

func germanResource(classification model.ClearanceLevel) model.ResourceAttributes {
	return model.ResourceAttributes{
		ResourceID:      "doc-deu-077",
		Classification:  classification,
		ReleasabilityTo: []string{"DEU", "USA"},
		COI:             []string{"NATO"},
		InstanceID:      "deu-instance",
	}
}

func TestSameInstanceSingleStageTrail(t *testing.T) {
	recorder := &mock.RecordingAuditService{}
	e := newEvaluator(t, &allowAllPDP{}, recorder)

	subject := usAnalyst()
	resource := germanResource(model.Secret)
	resource.InstanceID = "usa-instance"

	result, err := e.Evaluate(context.Background(), subject, resource, "read", model.RequestContext{})
	require.NoError(t, err)
	assert.True(t, result.Decision.Allow)
	require.Len(t, result.Trail, 1)
	assert.Equal(t, audit.StageLocalPolicyEvaluation, result.Trail[0].Stage)
	require.Len(t, recorder.Trails, 1)
}

func TestCrossInstanceThreeStageTrail(t *testing.T) {
	recorder := &mock.RecordingAuditService{}
	e := newEvaluator(t, &allowAllPDP{}, recorder)

	result, err := e.Evaluate(context.Background(), usAnalyst(), germanResource(model.Secret), "read", model.RequestContext{})
	require.NoError(t, err)
	assert.True(t, result.Decision.Allow)

	require.Len(t, result.Trail, 3)
	assert.Equal(t, audit.StageLocalPolicyEvaluation, result.Trail[0].Stage)
	assert.Equal(t, audit.StageAttributeTranslation, result.Trail[1].Stage)
	assert.Equal(t, audit.StageRemotePolicyEvaluation, result.Trail[2].Stage)

	// All stages share one correlation id
	for _, entry := range result.Trail {
		assert.Equal(t, result.CorrelationID, entry.CorrelationID)
	}
}

func TestCrossInstanceTranslationUsesOriginTerms(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	result, err := e.Evaluate(context.Background(), usAnalyst(), germanResource(model.Secret), "read", model.RequestContext{})
	require.NoError(t, err)
	// TOP_SECRET subject is capped at the DEU ceiling (SECRET) and translated
	// into the origin's term space
	assert.Contains(t, result.Trail[1].Details, "GEHEIM")
}

func TestFederationCeilingDeniesAboveAgreement(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	result, err := e.Evaluate(context.Background(), usAnalyst(), germanResource(model.TopSecret), "read", model.RequestContext{})
	require.NoError(t, err)
	assert.False(t, result.Decision.Allow)
	assert.Contains(t, result.Decision.Reason, "ceiling")

	require.Len(t, result.Trail, 2)
	assert.Equal(t, audit.StageAttributeTranslation, result.Trail[1].Stage)
	assert.Equal(t, audit.OutcomeDeny, result.Trail[1].Outcome)
}

func TestUnknownOriginInstanceIsInfrastructureFault(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	resource := germanResource(model.Secret)
	resource.InstanceID = "xyz-instance"

	_, err := e.Evaluate(context.Background(), usAnalyst(), resource, "read", model.RequestContext{})
	assert.Error(t, err)
}

func TestObligationsCrossInstanceEncrypted(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	resource := germanResource(model.Secret)
	resource.Encrypted = true
	resource.KeyAccessObjects = []model.KeyAccessObject{{KAOID: "kao-1", KASID: "kas-deu", KASURL: "https://kas.deu.example"}}

	result, err := e.Evaluate(context.Background(), usAnalyst(), resource, "read", model.RequestContext{})
	require.NoError(t, err)

	assert.Contains(t, result.Decision.Obligations, model.ObligationAuditFederatedAccess)
	assert.Contains(t, result.Decision.Obligations, model.ObligationKASKeyRequest)
	assert.Contains(t, result.Decision.Obligations, model.ObligationEnhancedAuditLogging)
}

func TestObligationsLocalUnclassified(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	subject := usAnalyst()
	resource := model.ResourceAttributes{
		ResourceID:      "doc-local-001",
		Classification:  model.Unclassified,
		ReleasabilityTo: []string{"USA"},
		InstanceID:      "usa-instance",
	}

	result, err := e.Evaluate(context.Background(), subject, resource, "read", model.RequestContext{})
	require.NoError(t, err)
	assert.NotContains(t, result.Decision.Obligations, model.ObligationAuditFederatedAccess)
	assert.NotContains(t, result.Decision.Obligations, model.ObligationEnhancedAuditLogging)
	assert.NotContains(t, result.Decision.Obligations, model.ObligationKASKeyRequest)
}

func TestMarkCoalitionAccessForForeignRequester(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	// A German requester evaluated at the USA instance accessing German content
	subject := model.SubjectAttributes{
		UniqueID:             "hmueller@bundeswehr.org",
		Clearance:            model.Secret,
		CountryOfAffiliation: "DEU",
		ACPCOI:               []string{"NATO"},
		OriginInstance:       "deu-instance",
	}
	resource := germanResource(model.Secret)
	resource.InstanceID = "usa-instance"

	result, err := e.Evaluate(context.Background(), subject, resource, "read", model.RequestContext{})
	require.NoError(t, err)
	assert.Contains(t, result.Decision.Obligations, model.ObligationMarkCoalitionAccess)
}

// Scenario B: CONFIDENTIAL subject against a SECRET resource releasable to
// the subject's country is denied on clearance.
func TestScenarioInsufficientClearanceDenied(t *testing.T) {
	e := newEvaluator(t, &allowAllPDP{}, &mock.RecordingAuditService{})

	subject := model.SubjectAttributes{
		UniqueID:             "jdoe@state.gov",
		Clearance:            model.Confidential,
		CountryOfAffiliation: "USA",
		OriginInstance:       "usa-instance",
	}
	resource := model.ResourceAttributes{
		ResourceID:      "doc-scenario-b",
		Classification:  model.Secret,
		ReleasabilityTo: []string{"USA"},
		InstanceID:      "usa-instance",
	}

	result, err := e.Evaluate(context.Background(), subject, resource, "read", model.RequestContext{})
	require.NoError(t, err)
	assert.False(t, result.Decision.Allow)
	assert.Contains(t, result.Decision.Reason, "clearance")
}
