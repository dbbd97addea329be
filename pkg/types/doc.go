// Package types provides small validating value types that are shared across
// the yagni tooling: constrained strings, healthcare identifiers and a UTC-only
// timestamp. Values are checked and normalized when they are parsed, never
// after, so a constructed value is always valid.
package types
