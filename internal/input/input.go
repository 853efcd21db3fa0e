// Package input turns loosely typed request fields into validated values.
// Every failure is an apperr.FieldError naming the offending field.
package input

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"ngo-portal-backend/internal/apperr"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Amount parses a monetary amount sent as a JSON number or numeric string
// and rounds it half-up to whole smallest currency units. It must be
// positive after rounding.
func Amount(field string, raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, apperr.Invalid(field, "is required")
	}
	d, err := parseDecimal(field, raw)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, apperr.Invalid(field, "must be a positive number")
	}
	v, err := roundUnits(field, d)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, apperr.Invalid(field, "must be at least one currency unit")
	}
	return v, nil
}

// Budget is Amount for ceiling figures: omitted means zero and zero is
// allowed, negatives are not.
func Budget(field string, raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	d, err := parseDecimal(field, raw)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, apperr.Invalid(field, "must not be negative")
	}
	return roundUnits(field, d)
}

// roundUnits rounds a non-negative d half-up to an int64. Rounding rescales
// by a power of ten as large as the exponent, so values far outside the
// int64 range are settled from their digit count first.
func roundUnits(field string, d decimal.Decimal) (int64, error) {
	// d < 10^mag.
	mag := int64(d.NumDigits()) + int64(d.Exponent())
	switch {
	case d.IsZero() || mag < 0:
		return 0, nil
	case mag > 19:
		return 0, apperr.Invalid(field, "is too large")
	}
	d = d.Round(0)
	if d.GreaterThan(maxAmount) {
		return 0, apperr.Invalid(field, "is too large")
	}
	return d.IntPart(), nil
}

func parseDecimal(field string, raw json.RawMessage) (decimal.Decimal, error) {
	text := string(raw)
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
		}
		text = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
	}
	return d, nil
}

// OptionalAmount is Amount for fields that may be omitted.
func OptionalAmount(field string, raw json.RawMessage) (*int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	v, err := Amount(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Date accepts "2006-01-02" or RFC 3339.
func Date(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Invalid(field, "is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Invalid(field, "must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

// OptionalDate is Date for fields that may be omitted.
func OptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := Date(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Required trims s and rejects it when empty.
func Required(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Invalid(field, "is required")
	}
	return s, nil
}

// OptionalID trims an optional reference and maps "" to nil.
func OptionalID(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
