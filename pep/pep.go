// pep/pep.go

// Package pep is the policy enforcement point: it gathers normalized subject
// and resource attributes, applies the local attribute checks every instance
// enforces, delegates rule evaluation to the external PDP, and caches
// decisions. The PEP fails closed: an unreachable PDP is a denial.
package pep

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/pdp"
)

// RevocationChecker is the slice of the revocation store the PEP consults
// before honoring any ALLOW.
type RevocationChecker interface {
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
	IsSubjectBlacklisted(ctx context.Context, uniqueID string) (bool, error)
}

// PEP wraps local attribute evaluation and the external PDP behind a single
// Evaluate call with decision caching.
type PEP struct {
	pdpClient   pdp.Client
	revocations RevocationChecker
	cache       *DecisionCache
}

func NewPEP(pdpClient pdp.Client, revocations RevocationChecker, cacheTTL time.Duration) *PEP {
	return &PEP{
		pdpClient:   pdpClient,
		revocations: revocations,
		cache:       NewDecisionCache(cacheTTL),
	}
}

// PurgeCache drops all cached decisions.
func (p *PEP) PurgeCache() {
	p.cache.Purge()
}

// Evaluate runs the full local enforcement sequence. The returned error is
// non-nil only for infrastructure faults; every policy outcome, including
// denial, is expressed in the decision itself.
func (p *PEP) Evaluate(ctx context.Context, subject model.SubjectAttributes, resource model.ResourceAttributes, action string, reqCtx model.RequestContext) (*model.AuthorizationDecision, error) {
	if decision := p.checkRevocations(ctx, subject, reqCtx); decision != nil {
		return decision, nil
	}

	key := CacheKey(subject, resource.ResourceID, action)
	if cached, ok := p.cache.Get(key); ok {
		logger.Debug("Decision cache hit",
			zap.String("subject", subject.UniqueID),
			zap.String("resource", resource.ResourceID))
		return cached, nil
	}

	if failures := localCheckFailures(subject, resource); len(failures) > 0 {
		decision := deny(strings.Join(failures, "; "))
		p.cache.Set(key, *decision)
		return decision, nil
	}

	response, err := p.pdpClient.Decide(ctx, pdp.DecisionRequest{
		Subject:  subject,
		Resource: resource,
		Action:   action,
		Context:  reqCtx,
	})
	if err != nil {
		// Fail closed. Unavailability is transient, so the denial is not cached.
		logger.Warn("PDP evaluation failed, denying",
			zap.Error(err),
			zap.String("subject", subject.UniqueID),
			zap.String("resource", resource.ResourceID))
		return deny(dive_errors.ErrPolicyServiceUnavailable.Error()), nil
	}

	decision := &model.AuthorizationDecision{
		Allow:       response.Allow,
		Reason:      response.Reason,
		Obligations: response.Obligations,
		EvaluatedAt: time.Now().UTC(),
	}
	p.cache.Set(key, *decision)
	return decision, nil
}

// checkRevocations consults the shared revocation store. Token lookups fail
// open, subject lookups fail closed; both behaviors live in the store, so a
// true result here is always a denial.
func (p *PEP) checkRevocations(ctx context.Context, subject model.SubjectAttributes, reqCtx model.RequestContext) *model.AuthorizationDecision {
	if p.revocations == nil {
		return nil
	}

	if reqCtx.TokenID != "" {
		if revoked, _ := p.revocations.IsTokenBlacklisted(ctx, reqCtx.TokenID); revoked {
			return deny(dive_errors.ErrRevokedToken.Error())
		}
	}

	if revoked, _ := p.revocations.IsSubjectBlacklisted(ctx, subject.UniqueID); revoked {
		return deny(dive_errors.ErrRevokedSubject.Error())
	}
	return nil
}

// localCheckFailures applies the attribute checks every instance enforces
// regardless of PDP rules. All failed checks are reported so callers and
// auditors see the complete picture, not just the first failure.
func localCheckFailures(subject model.SubjectAttributes, resource model.ResourceAttributes) []string {
	var failures []string

	if !subject.Clearance.Dominates(resource.Classification) {
		failures = append(failures, fmt.Sprintf("%s: subject %s < resource %s",
			dive_errors.ErrInsufficientClearance.Error(),
			subject.Clearance, resource.Classification))
	}

	// Empty releasability means nobody may access the resource.
	if !resource.ReleasableTo(subject.CountryOfAffiliation) {
		failures = append(failures, fmt.Sprintf("%s: %s not releasable to %s",
			dive_errors.ErrReleasabilityDenied.Error(),
			resource.ResourceID, subject.CountryOfAffiliation))
	}

	if len(resource.COI) > 0 && !subject.SharesCOI(resource.COI) {
		failures = append(failures, dive_errors.ErrCOIDenied.Error())
	}

	if resource.EmbargoUntil != nil && time.Now().Before(*resource.EmbargoUntil) {
		failures = append(failures, fmt.Sprintf("%s: embargoed until %s",
			dive_errors.ErrEmbargoNotReached.Error(),
			resource.EmbargoUntil.Format(time.RFC3339)))
	}

	return failures
}

func deny(reason string) *model.AuthorizationDecision {
	return &model.AuthorizationDecision{
		Allow:       false,
		Reason:      reason,
		EvaluatedAt: time.Now().UTC(),
	}
}
