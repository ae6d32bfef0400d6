// evaluator/evaluator.go

// Package evaluator orchestrates cross-instance authorization: local PEP
// evaluation, attribute translation against the federation registry, the
// bilateral classification ceiling, remote re-evaluation, obligation
// derivation and the per-request audit trail.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/albeach/DIVE-V3-sub011/audit"
	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/pep"
	"github.com/albeach/DIVE-V3-sub011/registry"
)

// Result couples the final decision with the audit trail that produced it.
type Result struct {
	Decision      model.AuthorizationDecision `json:"decision"`
	CorrelationID string                      `json:"correlation_id"`
	Trail         []audit.AuditEntry          `json:"trail,omitempty"`
}

// Evaluator runs the authorization pipeline for one instance.
type Evaluator struct {
	pep          *pep.PEP
	registry     *registry.InstanceRegistry
	auditService audit.Service
}

func NewEvaluator(pepService *pep.PEP, reg *registry.InstanceRegistry, auditService audit.Service) *Evaluator {
	return &Evaluator{
		pep:          pepService,
		registry:     reg,
		auditService: auditService,
	}
}

// Evaluate authorizes one access request. The returned error is non-nil only
// for infrastructure faults (unknown instance, malformed registry data);
// policy denials come back as Allow=false decisions with a categorized
// reason.
func (e *Evaluator) Evaluate(ctx context.Context, subject model.SubjectAttributes, resource model.ResourceAttributes, action string, reqCtx model.RequestContext) (*Result, error) {
	correlationID := reqCtx.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
		reqCtx.CorrelationID = correlationID
	}

	crossInstance := resource.InstanceID != subject.OriginInstance
	trail := newTrailBuilder(correlationID, e.registry.LocalInstanceID(), subject.UniqueID, resource.ResourceID)

	localDecision, err := e.pep.Evaluate(ctx, subject, resource, action, reqCtx)
	if err != nil {
		trail.add(audit.StageLocalPolicyEvaluation, audit.OutcomeError, err.Error())
		e.flush(ctx, trail)
		return nil, err
	}
	trail.addDecision(audit.StageLocalPolicyEvaluation, *localDecision)

	if !crossInstance {
		decision := *localDecision
		decision.Obligations = e.obligations(subject, resource, crossInstance)
		e.flush(ctx, trail)
		return &Result{Decision: decision, CorrelationID: correlationID, Trail: trail.entries}, nil
	}

	translated, denialReason, err := e.translateForOrigin(subject, resource)
	if err != nil {
		trail.add(audit.StageAttributeTranslation, audit.OutcomeError, err.Error())
		e.flush(ctx, trail)
		return nil, err
	}
	if denialReason != "" {
		trail.add(audit.StageAttributeTranslation, audit.OutcomeDeny, denialReason)
		e.flush(ctx, trail)
		return &Result{
			Decision: model.AuthorizationDecision{
				Allow:       false,
				Reason:      denialReason,
				Obligations: e.obligations(subject, resource, crossInstance),
				EvaluatedAt: time.Now().UTC(),
			},
			CorrelationID: correlationID,
			Trail:         trail.entries,
		}, nil
	}
	trail.add(audit.StageAttributeTranslation, audit.OutcomeAllow,
		fmt.Sprintf("clearance translated to %q for instance %s", translated.ClearanceOriginal, resource.InstanceID))

	remoteDecision, err := e.pep.Evaluate(ctx, *translated, resource, action, reqCtx)
	if err != nil {
		trail.add(audit.StageRemotePolicyEvaluation, audit.OutcomeError, err.Error())
		e.flush(ctx, trail)
		return nil, err
	}
	trail.addDecision(audit.StageRemotePolicyEvaluation, *remoteDecision)

	decision := combine(*localDecision, *remoteDecision)
	decision.Obligations = e.obligations(subject, resource, crossInstance)
	e.flush(ctx, trail)

	logger.Info("Cross-instance authorization evaluated",
		zap.String("correlationID", correlationID),
		zap.String("subject", subject.UniqueID),
		zap.String("resource", resource.ResourceID),
		zap.Bool("allow", decision.Allow))

	return &Result{Decision: decision, CorrelationID: correlationID, Trail: trail.entries}, nil
}

// translateForOrigin maps the subject into the origin instance's term space
// and applies the federation agreement: the bilateral classification ceiling
// and the agreement's allowed communities. A non-empty denialReason is a
// policy outcome; an error is an infrastructure fault.
func (e *Evaluator) translateForOrigin(subject model.SubjectAttributes, resource model.ResourceAttributes) (*model.SubjectAttributes, string, error) {
	entry, err := e.registry.Entry(resource.InstanceID)
	if err != nil {
		return nil, "", fmt.Errorf("origin instance %s: %w", resource.InstanceID, err)
	}

	// The ceiling binds regardless of the subject's own clearance.
	if resource.Classification > entry.MaxClassification {
		return nil, fmt.Sprintf("%s: %s exceeds ceiling %s for instance %s",
			dive_errors.ErrFederationCeilingExceeded.Error(),
			resource.Classification, entry.MaxClassification, entry.InstanceID), nil
	}
	return e.applyAgreement(subject, entry)
}

func (e *Evaluator) applyAgreement(subject model.SubjectAttributes, entry model.InstanceRegistryEntry) (*model.SubjectAttributes, string, error) {
	translated := subject

	// Cap the effective clearance at the bilateral ceiling.
	if translated.Clearance > entry.MaxClassification {
		translated.Clearance = entry.MaxClassification
	}

	term, err := e.registry.TranslateToLocalTerm(entry.InstanceID, translated.Clearance)
	if err != nil {
		return nil, "", err
	}
	translated.ClearanceOriginal = term
	translated.ClearanceCountry = entry.Country

	// Only communities the agreement names survive translation.
	if len(entry.AllowedCOIs) > 0 {
		allowed := make(map[string]bool, len(entry.AllowedCOIs))
		for _, coi := range entry.AllowedCOIs {
			allowed[coi] = true
		}
		var filtered []string
		for _, coi := range translated.ACPCOI {
			if allowed[coi] {
				filtered = append(filtered, coi)
			}
		}
		translated.ACPCOI = filtered
	}

	return &translated, "", nil
}

func (e *Evaluator) obligations(subject model.SubjectAttributes, resource model.ResourceAttributes, crossInstance bool) []string {
	var obligations []string
	if crossInstance {
		obligations = append(obligations, model.ObligationAuditFederatedAccess)
	}
	if subject.OriginInstance != e.registry.LocalInstanceID() {
		obligations = append(obligations, model.ObligationMarkCoalitionAccess)
	}
	if resource.Encrypted {
		obligations = append(obligations, model.ObligationKASKeyRequest)
	}
	if resource.Classification >= model.Secret || crossInstance {
		obligations = append(obligations, model.ObligationEnhancedAuditLogging)
	}
	return obligations
}

func (e *Evaluator) flush(ctx context.Context, trail *trailBuilder) {
	if e.auditService == nil {
		return
	}
	if err := e.auditService.LogAuthorization(ctx, trail.entries); err != nil {
		logger.Error("Failed to persist audit trail",
			zap.Error(err),
			zap.String("correlationID", trail.correlationID))
	}
}

func combine(local, remote model.AuthorizationDecision) model.AuthorizationDecision {
	if !local.Allow {
		return local
	}
	if !remote.Allow {
		return remote
	}
	return model.AuthorizationDecision{
		Allow:       true,
		Reason:      remote.Reason,
		EvaluatedAt: time.Now().UTC(),
	}
}

type trailBuilder struct {
	correlationID string
	instanceID    string
	subjectID     string
	resourceID    string
	entries       []audit.AuditEntry
}

func newTrailBuilder(correlationID, instanceID, subjectID, resourceID string) *trailBuilder {
	return &trailBuilder{
		correlationID: correlationID,
		instanceID:    instanceID,
		subjectID:     subjectID,
		resourceID:    resourceID,
	}
}

func (t *trailBuilder) add(stage, outcome, details string) {
	t.entries = append(t.entries, audit.AuditEntry{
		Timestamp:     time.Now().UTC(),
		CorrelationID: t.correlationID,
		InstanceID:    t.instanceID,
		SubjectID:     t.subjectID,
		ResourceID:    t.resourceID,
		Stage:         stage,
		Outcome:       outcome,
		Details:       details,
	})
}

func (t *trailBuilder) addDecision(stage string, decision model.AuthorizationDecision) {
	outcome := audit.OutcomeDeny
	if decision.Allow {
		outcome = audit.OutcomeAllow
	}
	t.add(stage, outcome, decision.Reason)
}
