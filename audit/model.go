// audit/model.go
package audit

import "time"

// Stages of one cross-instance authorization sequence.
const (
	StageLocalPolicyEvaluation  = "local_policy_evaluation"
	StageAttributeTranslation   = "attribute_translation"
	StageRemotePolicyEvaluation = "remote_policy_evaluation"
)

// Outcomes recorded per stage.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// AuditEntry is one step of an authorization request's trail. Entries
// sharing a CorrelationID form one append-only sequence.
type AuditEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	InstanceID    string    `json:"instance_id"`
	SubjectID     string    `json:"subject_id"`
	ResourceID    string    `json:"resource_id"`
	Stage         string    `json:"stage"`
	Outcome       string    `json:"outcome"`
	Details       string    `json:"details,omitempty"`
}
