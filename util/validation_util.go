// util/validation_util.go

package util

import (
	"fmt"
	"regexp"

	"github.com/albeach/DIVE-V3-sub011/model"
)

var iso3166Alpha3 = regexp.MustCompile(`^[A-Z]{3}$`)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateSubject(subject model.SubjectAttributes) error {
	if subject.UniqueID == "" {
		return fmt.Errorf("subject unique id cannot be empty")
	}
	if subject.CountryOfAffiliation == "" {
		return fmt.Errorf("subject country of affiliation cannot be empty")
	}
	if !iso3166Alpha3.MatchString(subject.CountryOfAffiliation) {
		return fmt.Errorf("country of affiliation must be an ISO-3166 alpha-3 code")
	}
	if subject.OriginInstance == "" {
		return fmt.Errorf("subject origin instance cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateResource(resource model.ResourceAttributes) error {
	if resource.ResourceID == "" {
		return fmt.Errorf("resource id cannot be empty")
	}
	if resource.InstanceID == "" {
		return fmt.Errorf("resource instance id cannot be empty")
	}
	if resource.Encrypted && len(resource.KeyAccessObjects) == 0 {
		return fmt.Errorf("encrypted resource must carry at least one key access object")
	}
	for _, kao := range resource.KeyAccessObjects {
		if kao.KAOID == "" || kao.KASID == "" || kao.KASURL == "" {
			return fmt.Errorf("key access object must carry kao id, kas id and kas url")
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateInstanceEntry(entry model.InstanceRegistryEntry) error {
	if entry.InstanceID == "" {
		return fmt.Errorf("instance id cannot be empty")
	}
	if entry.Country == "" {
		return fmt.Errorf("instance country cannot be empty")
	}
	if !iso3166Alpha3.MatchString(entry.Country) {
		return fmt.Errorf("instance country must be an ISO-3166 alpha-3 code")
	}
	return nil
}
