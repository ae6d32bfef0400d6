// model/subject.go
package model

// SubjectAttributes is the normalized view of a requesting subject. Clearance
// always holds one of the four canonical levels; ClearanceOriginal preserves
// the verbatim source-country term for display and audit only and is never
// used in comparisons.
type SubjectAttributes struct {
	UniqueID             string         `json:"unique_id"`
	Clearance            ClearanceLevel `json:"clearance"`
	ClearanceOriginal    string         `json:"clearance_original,omitempty"`
	ClearanceCountry     string         `json:"clearance_country,omitempty"`
	CountryOfAffiliation string         `json:"country_of_affiliation"`
	ACPCOI               []string       `json:"acp_coi,omitempty"`
	OriginInstance       string         `json:"origin_instance"`
}

// HasCOI reports whether the subject carries the given community tag.
func (s SubjectAttributes) HasCOI(tag string) bool {
	for _, c := range s.ACPCOI {
		if c == tag {
			return true
		}
	}
	return false
}

// SharesCOI reports whether the subject holds at least one of the given tags.
func (s SubjectAttributes) SharesCOI(tags []string) bool {
	for _, t := range tags {
		if s.HasCOI(t) {
			return true
		}
	}
	return false
}
