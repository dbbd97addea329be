package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUTCTime(t *testing.T) {
	expected := time.Date(2022, 1, 1, 10, 20, 30, 0, time.UTC)

	value, err := ParseUTCTime("2022-01-01T10:20:30Z")
	require.NoError(t, err)
	assert.True(t, value.Equal(expected))

	value, err = ParseUTCTime("2022-01-01T10:20:30+00:00")
	require.NoError(t, err)
	assert.True(t, value.Equal(expected))
	assert.Equal(t, time.UTC, value.Location())
}

func TestParseUTCTimeRejectsNaiveTimestamps(t *testing.T) {
	for _, input := range []string{
		"2022-01-01T10:20:30",
		"2022-01-01 10:20:30",
		"2022-01-01T10:20:30.000001",
	} {
		_, err := ParseUTCTime(input)
		require.Error(t, err, "input %q", input)
		assert.EqualError(t, err, "Naive timestamps are not allowed", "input %q", input)
	}
}

func TestParseUTCTimeRejectsOtherTimezones(t *testing.T) {
	_, err := ParseUTCTime("2022-01-01T10:20:30+03:00")
	require.Error(t, err)
	assert.EqualError(t, err, "Timestamp must be in UTC timezone")

	_, err = ParseUTCTime("2022-01-01T10:20:30-05:30")
	assert.Error(t, err)
}

func TestParseUTCTimeRejectsGarbage(t *testing.T) {
	_, err := ParseUTCTime("yesterday-ish")
	assert.Error(t, err)
}

func TestNewUTCTime(t *testing.T) {
	value, err := NewUTCTime(time.Date(2022, 1, 1, 10, 20, 30, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2022, value.Year())

	_, err = NewUTCTime(time.Date(2022, 1, 1, 10, 20, 30, 0, time.Local))
	require.Error(t, err)
	assert.EqualError(t, err, "Timestamp must be in UTC timezone")
}

func TestUTCTimeJSONRoundTrip(t *testing.T) {
	record := struct {
		At UTCTime `json:"at"`
	}{}

	err := json.Unmarshal([]byte(`{"at": "2022-01-01T10:20:30Z"}`), &record)
	require.NoError(t, err)
	assert.True(t, record.At.Equal(time.Date(2022, 1, 1, 10, 20, 30, 0, time.UTC)))

	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at": "2022-01-01T10:20:30Z"}`, string(encoded))

	err = json.Unmarshal([]byte(`{"at": "2022-01-01T10:20:30"}`), &record)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"at": 12345}`), &record)
	assert.Error(t, err)
}
