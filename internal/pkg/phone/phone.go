// Package phone canonicalises user-entered phone numbers to E.164.
package phone

import (
	"fmt"
	"strings"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/nyaruka/phonenumbers"
)

// Normalize parses raw using defaultRegion for numbers without a country code
// and returns the E.164 form ("+14165551234"). Only number length and country
// structure are checked; carrier-level validity is not.
func Normalize(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("phone number required: %w", domain.ErrBadRequest)
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
