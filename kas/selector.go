// kas/selector.go
package kas

import "github.com/albeach/DIVE-V3-sub011/model"

// Selection strategies, in priority order.
const (
	StrategyCOIMatch     = "coi-match"
	StrategyCountryMatch = "country-match"
	StrategyFallback     = "fallback"
)

// KAOSelection is the ordered set of key access objects a subject may
// attempt, with the strategy that produced the ordering.
type KAOSelection struct {
	SelectedKAOs   []model.KeyAccessObject `json:"selected_kaos"`
	Strategy       string                  `json:"strategy"`
	FullEvaluation bool                    `json:"full_evaluation"`
}

// SelectKAOs filters and orders a resource's key access objects for one
// subject. KAOs bound to untrusted KAS are never considered; KAOs whose
// required clearance exceeds the subject's are discarded; COI matches
// outrank country matches. The result is deterministic: within one rank the
// original KAO order is preserved.
func SelectKAOs(subject model.SubjectAttributes, kaos []model.KeyAccessObject, trustedKAS map[string]bool) KAOSelection {
	var coiMatches, countryMatches []model.KeyAccessObject

	for _, kao := range kaos {
		if trustedKAS != nil && !trustedKAS[kao.KASID] {
			continue
		}
		if kao.PolicyBinding.ClearanceRequired > subject.Clearance {
			continue
		}

		if subject.SharesCOI(kao.PolicyBinding.COIRequired) {
			coiMatches = append(coiMatches, kao)
			continue
		}
		if countryAllowed(kao.PolicyBinding.CountriesAllowed, subject.CountryOfAffiliation) {
			countryMatches = append(countryMatches, kao)
		}
	}

	if len(coiMatches) > 0 {
		selected := append(coiMatches, countryMatches...)
		return KAOSelection{
			SelectedKAOs:   selected,
			Strategy:       StrategyCOIMatch,
			FullEvaluation: len(selected) > 1,
		}
	}
	if len(countryMatches) > 0 {
		return KAOSelection{
			SelectedKAOs:   countryMatches,
			Strategy:       StrategyCountryMatch,
			FullEvaluation: len(countryMatches) > 1,
		}
	}
	return KAOSelection{Strategy: StrategyFallback}
}

func countryAllowed(allowed []string, country string) bool {
	for _, c := range allowed {
		if c == country {
			return true
		}
	}
	return false
}
