// normalizer/normalizer_test.go
package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/normalizer"
)

func TestNormalizeClearance(t *testing.T) {
	tests := []struct {
		name    string
		term    string
		country string
		want    model.ClearanceLevel
	}{
		{"german secret", "GEHEIM", "DEU", model.Secret},
		{"german top secret", "STRENG GEHEIM", "DEU", model.TopSecret},
		{"spanish secret", "SECRETO", "ESP", model.Secret},
		{"uk official sensitive", "OFFICIAL_SENSITIVE", "GBR", model.Confidential},
		{"uk official sensitive hyphen", "OFFICIAL-SENSITIVE", "GBR", model.Confidential},
		{"french secret", "SECRET DEFENSE", "FRA", model.Secret},
		{"us top secret", "TOP SECRET", "USA", model.TopSecret},
		{"case insensitive", "geheim", "deu", model.Secret},
		{"whitespace tolerated", "  GEHEIM  ", "DEU", model.Secret},
		{"unknown term maps to unclassified", "SUPER SECRET", "DEU", model.Unclassified},
		{"unknown country maps to unclassified", "GEHEIM", "XXX", model.Unclassified},
		{"empty term", "", "USA", model.Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizer.NormalizeClearance(tt.term, tt.country))
		})
	}
}

func TestNormalizeClearanceIsDeterministic(t *testing.T) {
	first := normalizer.NormalizeClearance("VS-VERTRAULICH", "DEU")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, normalizer.NormalizeClearance("VS-VERTRAULICH", "DEU"))
	}
}

func TestNormalizeCOI(t *testing.T) {
	assert.Equal(t, "NATO-COSMIC", normalizer.NormalizeCOI("OTAN-COSMIC"))
	assert.Equal(t, "ESP-ONLY", normalizer.NormalizeCOI("ESP-EXCLUSIVO"))
	assert.Equal(t, "FVEY", normalizer.NormalizeCOI("FIVE-EYES"))
	assert.Equal(t, "FVEY", normalizer.NormalizeCOI("five_eyes"))
	assert.Equal(t, "NATO-COSMIC", normalizer.NormalizeCOI("  otan-cosmic "))
	// Unknown tags pass through unchanged
	assert.Equal(t, "CUSTOM-COI", normalizer.NormalizeCOI("CUSTOM-COI"))
}

func TestNormalizeCOISetDeduplicates(t *testing.T) {
	got := normalizer.NormalizeCOISet([]string{"OTAN-COSMIC", "NATO-COSMIC", "FVEY"})
	assert.Equal(t, []string{"NATO-COSMIC", "FVEY"}, got)
}

func TestNormalizeSubject(t *testing.T) {
	raw := normalizer.RawSubject{
		UniqueID:       "jdoe@bundeswehr.org",
		Country:        "DEU",
		ClearanceTerm:  "GEHEIM",
		COITags:        []string{"OTAN-COSMIC"},
		OriginInstance: "deu-instance",
	}

	subject := normalizer.NormalizeSubject(raw)

	assert.Equal(t, model.Secret, subject.Clearance)
	// Original term is preserved verbatim for audit and display
	assert.Equal(t, "GEHEIM", subject.ClearanceOriginal)
	assert.Equal(t, "DEU", subject.CountryOfAffiliation)
	assert.Equal(t, []string{"NATO-COSMIC"}, subject.ACPCOI)
	assert.Equal(t, "deu-instance", subject.OriginInstance)
}

func TestLocalTermRoundTrip(t *testing.T) {
	term := normalizer.LocalTerm(model.Secret, "DEU")
	assert.Equal(t, "GEHEIM", term)
	assert.Equal(t, model.Secret, normalizer.NormalizeClearance(term, "DEU"))

	// Countries without a table fall back to the canonical name
	assert.Equal(t, "TOP_SECRET", normalizer.LocalTerm(model.TopSecret, "XXX"))
}
