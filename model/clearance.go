// model/clearance.go
package model

import "strings"

// ClearanceLevel is the canonical four-level classification hierarchy shared
// by every coalition instance. Country-specific terms are normalized onto
// this scale before any comparison.
type ClearanceLevel int

const (
	Unclassified ClearanceLevel = iota
	Confidential
	Secret
	TopSecret
)

func (c ClearanceLevel) String() string {
	switch c {
	case Unclassified:
		return "UNCLASSIFIED"
	case Confidential:
		return "CONFIDENTIAL"
	case Secret:
		return "SECRET"
	case TopSecret:
		return "TOP_SECRET"
	default:
		return "UNCLASSIFIED"
	}
}

// ParseClearance maps a canonical level name back to a ClearanceLevel.
// Unknown names resolve to Unclassified (least privilege).
func ParseClearance(s string) ClearanceLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONFIDENTIAL":
		return Confidential
	case "SECRET":
		return Secret
	case "TOP_SECRET", "TOP SECRET":
		return TopSecret
	default:
		return Unclassified
	}
}

// Dominates reports whether a subject holding level c may read material at
// level other (hierarchical read-down).
func (c ClearanceLevel) Dominates(other ClearanceLevel) bool {
	return c >= other
}

func (c ClearanceLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *ClearanceLevel) UnmarshalJSON(data []byte) error {
	*c = ParseClearance(strings.Trim(string(data), `"`))
	return nil
}
