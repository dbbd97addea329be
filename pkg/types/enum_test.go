package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumSetParse(t *testing.T) {
	formats := NewEnumSet("format", "json", "yaml", "toml")

	value, err := formats.Parse("json")
	require.NoError(t, err)
	assert.Equal(t, "json", value)

	_, err = formats.Parse("JSON")
	assert.Error(t, err)

	_, err = formats.Parse("ini")
	require.Error(t, err)
	assert.EqualError(t, err, "'ini' is not a valid format")
}

func TestEnumSetParseFold(t *testing.T) {
	formats := NewEnumSet("format", "json", "yaml", "toml")

	for _, input := range []string{"json", "JSON", "Json", "jSON"} {
		value, err := formats.ParseFold(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "json", value, "input %q", input)
	}

	_, err := formats.ParseFold("ini")
	assert.Error(t, err)
}

func TestEnumSetMembersIsACopy(t *testing.T) {
	colors := NewEnumSet("Color", "red", "green")

	members := colors.Members()
	members[0] = "mauve"

	assert.True(t, colors.Contains("red"))
	assert.False(t, colors.Contains("mauve"))
	assert.Equal(t, []string{"red", "green"}, colors.Members())
}
