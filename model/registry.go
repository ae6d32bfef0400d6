// model/registry.go
package model

import "time"

// InstanceRegistryEntry holds the federation trust configuration for one
// coalition instance. Created at onboarding, updated by admin action,
// read-mostly afterwards.
type InstanceRegistryEntry struct {
	InstanceID        string                    `json:"instance_id"`
	Country           string                    `json:"country"`
	ClearanceMapping  map[string]ClearanceLevel `json:"clearance_mapping"`
	TrustedKAS        []string                  `json:"trusted_kas"`
	MaxClassification ClearanceLevel            `json:"max_classification"`
	AllowedCOIs       []string                  `json:"allowed_cois,omitempty"`
	KASEndpoints      map[string]string         `json:"kas_endpoints,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// TrustsKAS reports whether this instance has declared trust in the given
// KAS. Trust is directional; bilateral trust requires both instances to
// declare it.
func (e InstanceRegistryEntry) TrustsKAS(kasID string) bool {
	for _, id := range e.TrustedKAS {
		if id == kasID {
			return true
		}
	}
	return false
}

// FederationRoute is the answer to a routing query: the KAS a requester
// instance should use for content originating at another instance.
type FederationRoute struct {
	KASID        string `json:"kas_id"`
	KASURL       string `json:"kas_url"`
	Reason       string `json:"reason"`
	FallbackUsed bool   `json:"fallback_used"`
}
