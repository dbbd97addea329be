package types

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ssnPattern = regexp.MustCompile(`^\d(-?\d){8}$`)

	// Position classes for MBIs: the alphabetic positions never use
	// S, L, O, I, B or Z. See
	// https://www.cms.gov/medicare/new-medicare-card/understanding-the-mbi-with-format.pdf
	mbiPattern = regexp.MustCompile(`^[1-9][AC-HJKMNP-RT-Y][0-9AC-HJKMNP-RT-Y][0-9]` +
		`[AC-HJKMNP-RT-Y][0-9AC-HJKMNP-RT-Y][0-9][AC-HJKMNP-RT-Y][AC-HJKMNP-RT-Y][0-9][0-9]$`)
)

// NonEmptyString is a string that contains at least one character once the
// surrounding whitespace has been stripped.
type NonEmptyString string

// ParseNonEmptyString strips surrounding whitespace and rejects values that
// are empty afterwards.
func ParseNonEmptyString(value string) (NonEmptyString, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", eris.New("value must not be empty")
	}

	return NonEmptyString(value), nil
}

func (s NonEmptyString) String() string {
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *NonEmptyString) UnmarshalText(data []byte) error {
	parsed, err := ParseNonEmptyString(string(data))
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s NonEmptyString) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// SSN is a US Social Security Number: nine digits with optional single dashes
// between them. Dashes are removed during parsing, the stored value is always
// the bare nine digits.
type SSN string

// ParseSSN validates the given value against the SSN format and strips any
// dashes.
func ParseSSN(value string) (SSN, error) {
	if !ssnPattern.MatchString(value) {
		return "", eris.Errorf("'%s' is not a valid SSN", value)
	}

	return SSN(strings.ReplaceAll(value, "-", "")), nil
}

func (s SSN) String() string {
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SSN) UnmarshalText(data []byte) error {
	parsed, err := ParseSSN(string(data))
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler and always emits the
// normalized (dash-free) form.
func (s SSN) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// MBI is a Medicare Beneficiary Identifier. Parsing is case-insensitive and
// the stored value is always upper case.
//
// Structure credits to https://stackoverflow.com/a/47683670/3455614
type MBI string

// ParseMBI validates the structure of the given identifier and converts it to
// upper case.
func ParseMBI(value string) (MBI, error) {
	upper := strings.ToUpper(value)
	if !mbiPattern.MatchString(upper) {
		return "", eris.Errorf("'%s' is not a valid MBI", value)
	}

	return MBI(upper), nil
}

func (m MBI) String() string {
	return string(m)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MBI) UnmarshalText(data []byte) error {
	parsed, err := ParseMBI(string(data))
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler and always emits the upper
// case form.
func (m MBI) MarshalText() ([]byte, error) {
	return []byte(m), nil
}
