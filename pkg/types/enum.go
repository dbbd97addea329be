package types

import (
	"strings"

	"github.com/rotisserie/eris"
)

// EnumSet is a named set of string members. It replaces the usual scattered
// "switch over magic strings" validation: declare the set once, parse
// untrusted input through it and work with the canonical member afterwards.
type EnumSet struct {
	name    string
	members []string
}

// NewEnumSet returns an EnumSet with the given display name (used in error
// messages) and members. The member order is preserved.
func NewEnumSet(name string, members ...string) EnumSet {
	return EnumSet{
		name:    name,
		members: members,
	}
}

// Name returns the display name of the set.
func (e EnumSet) Name() string {
	return e.name
}

// Members returns a copy of the member list in declaration order.
func (e EnumSet) Members() []string {
	result := make([]string, len(e.members))
	copy(result, e.members)
	return result
}

// Contains reports whether value is an exact member of the set.
func (e EnumSet) Contains(value string) bool {
	for _, member := range e.members {
		if member == value {
			return true
		}
	}
	return false
}

// Parse returns the value unchanged if it is an exact member of the set.
func (e EnumSet) Parse(value string) (string, error) {
	if !e.Contains(value) {
		return "", eris.Errorf("'%s' is not a valid %s", value, e.name)
	}
	return value, nil
}

// ParseFold performs a case-insensitive member lookup and returns the
// canonical (declared) spelling of the matched member.
func (e EnumSet) ParseFold(value string) (string, error) {
	for _, member := range e.members {
		if strings.EqualFold(member, value) {
			return member, nil
		}
	}
	return "", eris.Errorf("'%s' is not a valid %s", value, e.name)
}
