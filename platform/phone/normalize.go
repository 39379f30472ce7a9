// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const fallbackRegion = "NL"

// Normalizer parses numbers written without a country prefix using a default region.
type Normalizer struct {
	region string
}

// NewNormalizer creates a Normalizer for region (ISO 3166 alpha-2).
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = fallbackRegion
	}
	return &Normalizer{region: region}
}

// NormalizeE164 formats input as E.164. ok is false when the number cannot be
// parsed or is not a valid number; the trimmed input is returned in that case.
func (n *Normalizer) NormalizeE164(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed, false
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return trimmed, false
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}

	return phonenumbers.Format(number, phonenumbers.E164), true
}
