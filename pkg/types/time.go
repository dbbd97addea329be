package types

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// layouts that look like timestamps but carry no timezone information; they're
// only parsed to produce a precise error message.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// UTCTime is a timestamp that is guaranteed to be in UTC. Parsing rejects
// naive timestamps as well as timestamps in any other timezone instead of
// silently converting them; whoever produced the value has to be explicit
// about it.
type UTCTime struct {
	time.Time
}

// NewUTCTime wraps the given time. The time must already be in UTC
// (use t.UTC() at the call site if a conversion is actually intended).
func NewUTCTime(t time.Time) (UTCTime, error) {
	if t.Location() != time.UTC {
		return UTCTime{}, eris.New("Timestamp must be in UTC timezone")
	}

	return UTCTime{Time: t}, nil
}

// ParseUTCTime parses an RFC 3339 timestamp and verifies that its offset is
// UTC.
func ParseUTCTime(value string) (UTCTime, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		for _, layout := range naiveLayouts {
			if _, naiveErr := time.Parse(layout, value); naiveErr == nil {
				return UTCTime{}, eris.New("Naive timestamps are not allowed")
			}
		}

		return UTCTime{}, eris.Wrapf(err, "failed to parse timestamp %s", value)
	}

	if _, offset := parsed.Zone(); offset != 0 {
		return UTCTime{}, eris.New("Timestamp must be in UTC timezone")
	}

	return UTCTime{Time: parsed.UTC()}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *UTCTime) UnmarshalText(data []byte) error {
	parsed, err := ParseUTCTime(string(data))
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t UTCTime) MarshalText() ([]byte, error) {
	return []byte(t.Format(time.RFC3339Nano)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *UTCTime) UnmarshalJSON(data []byte) error {
	value, err := strconv.Unquote(string(data))
	if err != nil {
		return eris.Wrap(err, "expected a quoted timestamp")
	}

	return t.UnmarshalText([]byte(value))
}

// MarshalJSON implements json.Marshaler.
func (t UTCTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Format(time.RFC3339Nano))), nil
}
