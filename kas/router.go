// kas/router.go

// Package kas routes key-release requests across the coalition's key access
// services: it selects and orders the KAOs a subject may use, then walks
// them in a sequential fallback chain guarded by per-KAS circuit breakers.
package kas

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
)

// TrustResolver supplies the KAS ids the requester may use for content from
// the resource's instance. Satisfied by registry.InstanceRegistry.
type TrustResolver interface {
	TrustedKASSet(requesterInstance, resourceInstance string) map[string]bool
}

// KAOFailure records one failed attempt within a fallback chain. Error holds
// "timeout" or a transport error for infrastructure failures and the KAS's
// denial reason for explicit policy denials.
type KAOFailure struct {
	KAOID  string `json:"kao_id"`
	KASID  string `json:"kas_id"`
	Error  string `json:"error"`
	Denial bool   `json:"denial"`
}

// KeyReleaseResult is the full outcome of one fallback chain, including the
// attempt trace kept for audit.
type KeyReleaseResult struct {
	Success          bool                     `json:"success"`
	Key              string                   `json:"key,omitempty"`
	DecryptedContent string                   `json:"decrypted_content,omitempty"`
	WinningKAO       string                   `json:"winning_kao,omitempty"`
	WinningKAS       string                   `json:"winning_kas,omitempty"`
	Strategy         string                   `json:"strategy"`
	AttemptedKAOs    []string                 `json:"attempted_kaos"`
	SkippedKAOs      []string                 `json:"skipped_kaos,omitempty"`
	FailedKAOs       []KAOFailure             `json:"failed_kaos,omitempty"`
	Latencies        map[string]time.Duration `json:"latencies,omitempty"`
	Reason           string                   `json:"reason,omitempty"`
}

// Router executes key-release fallback chains. It owns the circuit-breaker
// state for every KAS; breakers and the router are instance-local,
// best-effort structures.
type Router struct {
	client      Client
	trust       TrustResolver
	breakers    *BreakerSet
	callTimeout time.Duration
	chainBudget time.Duration
}

func NewRouter(client Client, trust TrustResolver, breakerCfg BreakerConfig, callTimeout, chainBudget time.Duration) *Router {
	return &Router{
		client:      client,
		trust:       trust,
		breakers:    NewBreakerSet(breakerCfg),
		callTimeout: callTimeout,
		chainBudget: chainBudget,
	}
}

// Breakers exposes the router's breaker set for administrative reset and
// state inspection.
func (r *Router) Breakers() *BreakerSet {
	return r.breakers
}

// ReleaseKey walks the subject's KAO selection in priority order until one
// KAS releases the key. Attempts are sequential: each outcome decides
// whether the next KAO is tried. The whole chain is bounded by the
// cumulative budget; each attempt by the per-call timeout.
func (r *Router) ReleaseKey(ctx context.Context, subject model.SubjectAttributes, resource model.ResourceAttributes, bearerToken string) (*KeyReleaseResult, error) {
	if !resource.Encrypted || len(resource.KeyAccessObjects) == 0 {
		return nil, fmt.Errorf("%w: resource %s carries no key access objects", dive_errors.ErrInvalidRequest, resource.ResourceID)
	}

	trusted := r.trust.TrustedKASSet(subject.OriginInstance, resource.InstanceID)
	selection := SelectKAOs(subject, resource.KeyAccessObjects, trusted)

	result := &KeyReleaseResult{
		Strategy:  selection.Strategy,
		Latencies: make(map[string]time.Duration),
	}

	if len(selection.SelectedKAOs) == 0 {
		result.Reason = dive_errors.ErrNoAccessibleKAO.Error()
		return result, nil
	}

	deadline := time.Now().Add(r.chainBudget)

	for _, kao := range selection.SelectedKAOs {
		if time.Now().After(deadline) {
			result.Reason = fmt.Sprintf("fallback chain budget of %s exhausted", r.chainBudget)
			break
		}

		if !r.breakers.Allow(kao.KASID) {
			// Open circuit within cooldown: skip without network I/O.
			result.SkippedKAOs = append(result.SkippedKAOs, kao.KAOID)
			logger.Debug("Skipping KAO, circuit open",
				zap.String("kaoID", kao.KAOID),
				zap.String("kasID", kao.KASID))
			continue
		}

		result.AttemptedKAOs = append(result.AttemptedKAOs, kao.KAOID)
		response, latency, err := r.attempt(ctx, kao, resource.ResourceID, bearerToken)
		result.Latencies[kao.KAOID] = latency

		if err != nil {
			// Breaker bookkeeping happens even when the caller has gone away.
			r.breakers.RecordFailure(kao.KASID)
			if ctx.Err() != nil {
				// Caller cancelled: abandon the response, stop the chain.
				return nil, ctx.Err()
			}
			result.FailedKAOs = append(result.FailedKAOs, KAOFailure{
				KAOID: kao.KAOID,
				KASID: kao.KASID,
				Error: classifyTransportError(err),
			})
			logger.Warn("KAS attempt failed",
				zap.String("kaoID", kao.KAOID),
				zap.String("kasID", kao.KASID),
				zap.Error(err))
			continue
		}

		if !response.Success {
			r.breakers.RecordFailure(kao.KASID)
			reason := response.DenialReason
			if reason == "" {
				reason = response.Error
			}
			result.FailedKAOs = append(result.FailedKAOs, KAOFailure{
				KAOID:  kao.KAOID,
				KASID:  kao.KASID,
				Error:  reason,
				Denial: response.DenialReason != "",
			})
			logger.Warn("KAS denied key release",
				zap.String("kaoID", kao.KAOID),
				zap.String("kasID", kao.KASID),
				zap.String("denialReason", reason))
			continue
		}

		r.breakers.RecordSuccess(kao.KASID)
		result.Success = true
		result.Key = response.Key
		result.DecryptedContent = response.DecryptedContent
		result.WinningKAO = kao.KAOID
		result.WinningKAS = kao.KASID

		logger.Info("Key released",
			zap.String("kaoID", kao.KAOID),
			zap.String("kasID", kao.KASID),
			zap.Duration("latency", latency),
			zap.Int("attempts", len(result.AttemptedKAOs)))
		return result, nil
	}

	if result.Reason == "" {
		result.Reason = aggregateFailureReason(result)
	}
	return result, nil
}

// attempt issues one key-release call. The call runs on a context detached
// from the caller's cancellation so a client disconnect cannot corrupt the
// breaker bookkeeping; only the per-call timeout bounds it.
func (r *Router) attempt(ctx context.Context, kao model.KeyAccessObject, resourceID, bearerToken string) (*ReleaseResponse, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
	defer cancel()

	start := time.Now()
	response, err := r.client.Release(callCtx, kao.KASURL, ReleaseRequest{
		ResourceID:  resourceID,
		KAOID:       kao.KAOID,
		BearerToken: bearerToken,
	})
	return response, time.Since(start), err
}

// classifyTransportError collapses the transport error zoo into the audit
// vocabulary: timeouts become "timeout", everything else keeps its message.
func classifyTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if strings.Contains(err.Error(), "Client.Timeout") {
		return "timeout"
	}
	return err.Error()
}

// aggregateFailureReason joins the per-KAO outcomes of an exhausted chain.
// When every attempted KAS answered with an explicit denial the headline is
// a denial, not unreachability.
func aggregateFailureReason(result *KeyReleaseResult) string {
	parts := make([]string, 0, len(result.FailedKAOs)+1)
	allDenied := len(result.FailedKAOs) > 0
	for _, failure := range result.FailedKAOs {
		if !failure.Denial {
			allDenied = false
		}
		parts = append(parts, fmt.Sprintf("%s: %s", failure.KAOID, failure.Error))
	}
	if len(result.SkippedKAOs) > 0 {
		allDenied = false
		parts = append(parts, fmt.Sprintf("%s: %s", dive_errors.ErrCircuitOpen.Error(), strings.Join(result.SkippedKAOs, ", ")))
	}

	head := dive_errors.ErrAllKASUnreachable
	if allDenied {
		head = dive_errors.ErrKeyAccessDenied
	}
	if len(parts) == 0 {
		return head.Error()
	}
	return fmt.Sprintf("%s: %s", head.Error(), strings.Join(parts, "; "))
}
