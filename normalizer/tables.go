// normalizer/tables.go
package normalizer

import "github.com/albeach/DIVE-V3-sub011/model"

// clearanceTables maps each country's national classification terms onto the
// canonical four-level scale. Keys are upper-cased, whitespace-trimmed terms;
// lookups go through canonicalTerm so hyphen/space variants resolve too.
var clearanceTables = map[string]map[string]model.ClearanceLevel{
	"USA": {
		"UNCLASSIFIED": model.Unclassified,
		"CONFIDENTIAL": model.Confidential,
		"SECRET":       model.Secret,
		"TOP SECRET":   model.TopSecret,
	},
	"GBR": {
		"OFFICIAL":           model.Unclassified,
		"OFFICIAL SENSITIVE": model.Confidential,
		"SECRET":             model.Secret,
		"TOP SECRET":         model.TopSecret,
	},
	"DEU": {
		"OFFEN":                          model.Unclassified,
		"VS NUR FUER DEN DIENSTGEBRAUCH": model.Confidential,
		"VS VERTRAULICH":                 model.Confidential,
		"GEHEIM":                         model.Secret,
		"STRENG GEHEIM":                  model.TopSecret,
	},
	"FRA": {
		"NON PROTEGE":          model.Unclassified,
		"DIFFUSION RESTREINTE": model.Confidential,
		"CONFIDENTIEL DEFENSE": model.Confidential,
		"SECRET DEFENSE":       model.Secret,
		"TRES SECRET DEFENSE":  model.TopSecret,
	},
	"ESP": {
		"SIN CLASIFICAR":    model.Unclassified,
		"DIFUSION LIMITADA": model.Confidential,
		"CONFIDENCIAL":      model.Confidential,
		"RESERVADO":         model.Secret,
		"SECRETO":           model.Secret,
		"ALTO SECRETO":      model.TopSecret,
	},
	"CAN": {
		"UNCLASSIFIED": model.Unclassified,
		"PROTECTED B":  model.Confidential,
		"CONFIDENTIAL": model.Confidential,
		"SECRET":       model.Secret,
		"TOP SECRET":   model.TopSecret,
	},
}

// coiAliases maps national or legacy community-of-interest spellings onto
// the coalition-wide canonical tags. Tags with no alias pass through
// unchanged.
var coiAliases = map[string]string{
	"OTAN":          "NATO",
	"OTAN-COSMIC":   "NATO-COSMIC",
	"COSMIC":        "NATO-COSMIC",
	"ESP-EXCLUSIVO": "ESP-ONLY",
	"FIVE-EYES":     "FVEY",
	"FIVE EYES":     "FVEY",
}
