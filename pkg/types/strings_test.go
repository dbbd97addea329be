package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNonEmptyString(t *testing.T) {
	value, err := ParseNonEmptyString("  hello  ")
	require.NoError(t, err)
	assert.Equal(t, NonEmptyString("hello"), value)

	_, err = ParseNonEmptyString("   ")
	assert.Error(t, err)

	_, err = ParseNonEmptyString("")
	assert.Error(t, err)
}

func TestParseSSNStripsDashes(t *testing.T) {
	value, err := ParseSSN("123456789")
	require.NoError(t, err)
	assert.Equal(t, SSN("123456789"), value)

	value, err = ParseSSN("1234-5-6789")
	require.NoError(t, err)
	assert.Equal(t, SSN("123456789"), value)

	value, err = ParseSSN("123-45-6789")
	require.NoError(t, err)
	assert.Equal(t, SSN("123456789"), value)
}

func TestParseSSNRejectsMalformedValues(t *testing.T) {
	for _, input := range []string{
		"12345678",    // too short
		"1234567890",  // too long
		"12345678a",   // non-digit
		"-123456789",  // leading dash
		"123456789-",  // trailing dash
		"12--3456789", // double dash
		"",
	} {
		_, err := ParseSSN(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseMBIAcceptsKnownGoodValues(t *testing.T) {
	for _, input := range []string{
		"1AX0Y67DW34",
		"4C56DE7FG00",
		"9EN1EQ3TT59",
		"2H52CD7GQ83",
		"3U90VV3UV09",
	} {
		value, err := ParseMBI(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, MBI(input), value)
	}
}

func TestParseMBIUppercases(t *testing.T) {
	value, err := ParseMBI("1ax0Y67Dw34")
	require.NoError(t, err)
	assert.Equal(t, MBI("1AX0Y67DW34"), value)
}

func TestParseMBIRejectsMalformedValues(t *testing.T) {
	for _, input := range []string{
		"0AX0Y67DW34", // first position can't be zero
		"4256DE7FG00", // second position must be a letter
		"1SX0Y67DW34", // S is never used in letter positions
		"1AX0Y67DW3",  // too short
		"",
	} {
		_, err := ParseMBI(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestStringTypesJSONRoundTrip(t *testing.T) {
	record := struct {
		Name NonEmptyString `json:"name"`
		SSN  SSN            `json:"ssn"`
		MBI  MBI            `json:"mbi"`
	}{}

	err := json.Unmarshal([]byte(`{"name": " Jo ", "ssn": "123-45-6789", "mbi": "1ax0Y67Dw34"}`), &record)
	require.NoError(t, err)
	assert.Equal(t, NonEmptyString("Jo"), record.Name)
	assert.Equal(t, SSN("123456789"), record.SSN)
	assert.Equal(t, MBI("1AX0Y67DW34"), record.MBI)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Jo", "ssn": "123456789", "mbi": "1AX0Y67DW34"}`, string(encoded))
}
