// normalizer/normalizer.go

// Package normalizer translates country-specific clearance terms and
// community-of-interest tags into the canonical coalition vocabulary. All
// functions are pure and deterministic: same (term, country) in, same level
// out, no I/O.
package normalizer

import (
	"strings"

	"github.com/albeach/DIVE-V3-sub011/model"
)

// canonicalTerm prepares a national term for table lookup: upper-case, trim,
// collapse hyphens and underscores to spaces.
func canonicalTerm(term string) string {
	t := strings.ToUpper(strings.TrimSpace(term))
	t = strings.ReplaceAll(t, "-", " ")
	t = strings.ReplaceAll(t, "_", " ")
	return strings.Join(strings.Fields(t), " ")
}

// NormalizeClearance maps a country-specific clearance term to the canonical
// level. Unknown terms and unknown countries map to Unclassified (least
// privilege) rather than raising an error; callers keep the verbatim term in
// ClearanceOriginal for audit and display.
func NormalizeClearance(term, country string) model.ClearanceLevel {
	table, ok := clearanceTables[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return model.Unclassified
	}
	level, ok := table[canonicalTerm(term)]
	if !ok {
		return model.Unclassified
	}
	return level
}

// LocalTerm performs the reverse translation: the national term a given
// country uses for a canonical level. Used when re-evaluating a subject
// against a partner instance's local policy. Falls back to the canonical
// name when the country has no table.
func LocalTerm(level model.ClearanceLevel, country string) string {
	table, ok := clearanceTables[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return level.String()
	}
	// Several national terms can map to one level; prefer the shortest so
	// the reverse translation is deterministic.
	best := ""
	for term, l := range table {
		if l != level {
			continue
		}
		if best == "" || len(term) < len(best) {
			best = term
		}
	}
	if best == "" {
		return level.String()
	}
	return best
}

// NormalizeCOI maps a single community tag to its canonical form. Tags with
// no known alias pass through unchanged. Hyphens are significant in COI tags,
// so the raw upper-cased form is tried before the separator-collapsed one.
func NormalizeCOI(tag string) string {
	if alias, ok := coiAliases[strings.ToUpper(strings.TrimSpace(tag))]; ok {
		return alias
	}
	if alias, ok := coiAliases[canonicalTerm(tag)]; ok {
		return alias
	}
	return strings.TrimSpace(tag)
}

// NormalizeCOISet normalizes every tag in a set, dropping duplicates while
// preserving first-seen order.
func NormalizeCOISet(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeCOI(tag)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// RawSubject is the country-tagged claim set extracted from a partner
// instance's identity assertion, before normalization.
type RawSubject struct {
	UniqueID       string   `json:"unique_id"`
	Country        string   `json:"country"`
	ClearanceTerm  string   `json:"clearance_term"`
	COITags        []string `json:"coi_tags,omitempty"`
	OriginInstance string   `json:"origin_instance"`
}

// NormalizeSubject produces the canonical SubjectAttributes for a raw,
// country-tagged claim set. The original clearance term is preserved
// verbatim; the normalized level is always one of the four canonical values.
func NormalizeSubject(raw RawSubject) model.SubjectAttributes {
	return model.SubjectAttributes{
		UniqueID:             raw.UniqueID,
		Clearance:            NormalizeClearance(raw.ClearanceTerm, raw.Country),
		ClearanceOriginal:    raw.ClearanceTerm,
		ClearanceCountry:     strings.ToUpper(strings.TrimSpace(raw.Country)),
		CountryOfAffiliation: strings.ToUpper(strings.TrimSpace(raw.Country)),
		ACPCOI:               NormalizeCOISet(raw.COITags),
		OriginInstance:       raw.OriginInstance,
	}
}
