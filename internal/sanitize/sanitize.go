// Package sanitize coerces loosely-typed input into non-empty, length-bounded
// strings suitable for NOT NULL varchar columns.
package sanitize

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
)

const (
	// NotSet placeholder for absent text fields.
	NotSet = "未設定"
	// PhoneSentinel placeholder for absent or unusable phone numbers.
	PhoneSentinel = "00000000000"
	// DefaultRegion used when a phone number carries no country code.
	DefaultRegion = "JP"

	maxPhoneDigits = 15 // E.164
)

// ErrMissingField matched by errors.Is on a *MissingFieldError.
var ErrMissingField = errors.New("required field missing")

// MissingFieldError names the field Required rejected.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// raw extracts the text of v. ok is false when v carries no value at all.
func raw(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case sql.NullString:
		return t.String, t.Valid
	case *sql.NullString:
		if t == nil {
			return "", false
		}
		return t.String, t.Valid
	case []byte:
		return string(t), t != nil
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// value returns the trimmed text of v, or "" for absent, blank, "null" and "undefined".
func value(v any) string {
	s, ok := raw(v)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	switch s {
	case "null", "undefined", "NULL":
		return ""
	}
	return s
}

// String returns the trimmed text of v, or def when v is absent or blank.
func String(v any, def string) string {
	if s := value(v); s != "" {
		return s
	}
	return def
}

// StringMax is String truncated to max characters. max <= 0 disables truncation.
func StringMax(v any, def string, max int) string {
	return Truncate(String(v, def), max)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// FirstNonEmpty returns the first present value, or def.
func FirstNonEmpty(def string, values ...any) string {
	for _, v := range values {
		if s := value(v); s != "" {
			return s
		}
	}
	return def
}

// Optional returns a NullString that is invalid for absent or blank input.
func Optional(v any) sql.NullString {
	s := value(v)
	return sql.NullString{String: s, Valid: s != ""}
}

// OptionalMax is Optional truncated to max characters.
func OptionalMax(v any, max int) sql.NullString {
	ns := Optional(v)
	ns.String = Truncate(ns.String, max)
	return ns
}

// Required is the one failing path: it rejects absent or blank input.
func Required(field string, v any) (string, error) {
	s := value(v)
	if s == "" {
		return "", &MissingFieldError{Field: field}
	}
	return s, nil
}

// Phone canonicalizes a phone number. Numbers libphonenumber accepts as valid
// are rendered in national format (international for non-JP country codes);
// other input keeps only its digits and a leading '+'. Absent input, input
// without digits and input longer than E.164 allows become PhoneSentinel.
func Phone(v any) string {
	s := value(v)
	if s == "" {
		return PhoneSentinel
	}

	var b strings.Builder
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r >= '０' && r <= '９':
			b.WriteRune('0' + (r - '０'))
			digits++
		case (r == '+' || r == '＋') && i == 0:
			b.WriteRune('+')
		}
	}
	if digits == 0 || digits > maxPhoneDigits {
		return PhoneSentinel
	}
	stripped := b.String()

	num, err := libphonenumber.Parse(stripped, DefaultRegion)
	if err == nil && libphonenumber.IsValidNumber(num) {
		if libphonenumber.GetRegionCodeForNumber(num) == DefaultRegion {
			return libphonenumber.Format(num, libphonenumber.NATIONAL)
		}
		return libphonenumber.Format(num, libphonenumber.INTERNATIONAL)
	}
	return stripped
}

// PhoneMax is Phone truncated to max characters.
func PhoneMax(v any, max int) string {
	return Truncate(Phone(v), max)
}

// Digits returns only the ASCII digits of s, for phone comparisons.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
