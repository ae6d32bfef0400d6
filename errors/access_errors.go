// errors/access_errors.go
package errors

import "errors"

// Policy denial outcomes. These are expected, recoverable-by-design results
// surfaced to callers as structured denials, never as internal faults.
var (
	ErrInsufficientClearance     = errors.New("insufficient clearance for resource classification")
	ErrReleasabilityDenied       = errors.New("country of affiliation not in resource releasability")
	ErrCOIDenied                 = errors.New("no community of interest in common with resource")
	ErrEmbargoNotReached         = errors.New("resource embargo window not yet reached")
	ErrPolicyServiceUnavailable  = errors.New("policy service unavailable")
	ErrFederationCeilingExceeded = errors.New("resource classification exceeds federation agreement ceiling")
	ErrRevokedToken              = errors.New("token has been revoked")
	ErrRevokedSubject            = errors.New("subject has been revoked")
)

// Key-access outcomes
var (
	ErrKeyAccessDenied   = errors.New("key access denied by KAS")
	ErrAllKASUnreachable = errors.New("all key access services unreachable or denied")
	ErrUntrustedKAS      = errors.New("KAS is not in the requester's trusted set")
	ErrNoAccessibleKAO   = errors.New("no key access object accessible to subject")
	ErrCircuitOpen       = errors.New("circuit breaker open for KAS")
)

// Infrastructure faults
var (
	ErrUnknownInstance   = errors.New("instance not present in federation registry")
	ErrInstanceConflict  = errors.New("instance already registered")
	ErrInvalidRequest    = errors.New("invalid authorization request")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")
)
