// Package clock contains time helpers shared across the yagni packages.
package clock

import "time"

// NowUTC returns the current time in UTC. Prefer this over time.Now()
// whenever the value is stored, compared to stored values or serialized;
// it avoids mixing local wall clock readings into persisted data.
func NowUTC() time.Time {
	return time.Now().UTC()
}
