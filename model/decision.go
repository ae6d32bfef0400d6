// model/decision.go
package model

import "time"

// Obligation tags attached to an AuthorizationDecision. The enforcement of
// an obligation is the caller's responsibility.
const (
	ObligationAuditFederatedAccess = "AUDIT_FEDERATED_ACCESS"
	ObligationMarkCoalitionAccess  = "MARK_COALITION_ACCESS"
	ObligationKASKeyRequest        = "KAS_KEY_REQUEST"
	ObligationEnhancedAuditLogging = "ENHANCED_AUDIT_LOGGING"
)

// AuthorizationDecision is the outcome of one authorization request.
// Ephemeral, derived per request, cacheable.
type AuthorizationDecision struct {
	Allow       bool      `json:"allow"`
	Reason      string    `json:"reason"`
	Obligations []string  `json:"obligations,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// RequestContext carries the environmental attributes of one request.
// CorrelationID and BearerToken are volatile and deliberately excluded from
// decision-cache keys.
type RequestContext struct {
	CorrelationID string    `json:"correlation_id,omitempty"`
	BearerToken   string    `json:"-"`
	TokenID       string    `json:"token_id,omitempty"`
	SourceNetwork string    `json:"source_network,omitempty"`
	DevicePosture string    `json:"device_posture,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}
