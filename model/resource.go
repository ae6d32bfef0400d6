// model/resource.go
package model

import "time"

// ResourceAttributes describes a classified digital object. An empty
// ReleasabilityTo set means nobody may access the resource (fail-secure);
// an empty COI set means no COI restriction applies.
type ResourceAttributes struct {
	ResourceID       string            `json:"resource_id"`
	Classification   ClearanceLevel    `json:"classification"`
	ReleasabilityTo  []string          `json:"releasability_to"`
	COI              []string          `json:"coi,omitempty"`
	InstanceID       string            `json:"instance_id"`
	InstanceURL      string            `json:"instance_url,omitempty"`
	Encrypted        bool              `json:"encrypted"`
	KeyAccessObjects []KeyAccessObject `json:"key_access_objects,omitempty"`
	EmbargoUntil     *time.Time        `json:"embargo_until,omitempty"`
}

// ReleasableTo reports whether the given ISO-3166 alpha-3 country code is in
// the resource's releasability set. Matching is exact; an unrecognized code
// on either side can only narrow access, never widen it.
func (r ResourceAttributes) ReleasableTo(country string) bool {
	for _, c := range r.ReleasabilityTo {
		if c == country {
			return true
		}
	}
	return false
}

// KeyAccessObject binds a resource's wrapped key to the KAS able to release
// it and the policy that KAS will enforce. Immutable once issued; a resource
// may carry one KAO per partner KAS.
type KeyAccessObject struct {
	KAOID         string        `json:"kao_id"`
	KASID         string        `json:"kas_id"`
	KASURL        string        `json:"kas_url"`
	WrappedKey    string        `json:"wrapped_key"`
	PolicyBinding PolicyBinding `json:"policy_binding"`
}

// PolicyBinding is the access policy a KAS enforces before releasing a key.
type PolicyBinding struct {
	ClearanceRequired ClearanceLevel `json:"clearance_required"`
	CountriesAllowed  []string       `json:"countries_allowed,omitempty"`
	COIRequired       []string       `json:"coi_required,omitempty"`
}
