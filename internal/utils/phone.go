package utils

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used when a number has no country prefix and the
// owner has no country set
const DefaultPhoneRegion = "US"

// NormalizePhone parses a free-form phone number and returns it in E.164.
// region is an ISO 3166-1 alpha-2 code used for numbers without a "+" prefix.
func NormalizePhone(raw, region string) (string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", fmt.Errorf("empty phone number")
	}

	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(clean, region)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number: %s", raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
