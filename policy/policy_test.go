package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Variants(t *testing.T) {
	s := Default()
	vs := s.Variants()
	require.Len(t, vs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, s.IDs())

	assert.Equal(t, "Simple", vs[0].Name)
	assert.False(t, vs[0].RequiresBehavioralRules)
	assert.Equal(t, "You must select the correct tool to answer the user's request. After using a tool, present the information clearly.", vs[0].Instruction)

	assert.Equal(t, "Detailed", vs[1].Name)
	assert.True(t, vs[1].RequiresBehavioralRules)
	assert.Contains(t, vs[1].Instruction, "outfit recommendation")

	assert.Equal(t, "Chain-of-Thought", vs[2].Name)
	assert.True(t, vs[2].RequiresBehavioralRules)
	assert.Contains(t, vs[2].Instruction, "fashion advice")
}

func TestSelector_Lookup(t *testing.T) {
	s := Default()
	for _, id := range []string{"B", "b", "  b \n"} {
		v, err := s.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, "B", v.ID)
	}
	_, err := s.Lookup("D")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Contains(t, err.Error(), "A, B, C")
}

func TestSelector_VariantsIsACopy(t *testing.T) {
	s := Default()
	vs := s.Variants()
	vs[0].Instruction = "changed"
	v, err := s.Lookup("A")
	require.NoError(t, err)
	assert.NotEqual(t, "changed", v.Instruction)
}

func TestNewSelector_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		variants []Variant
	}{
		{"empty", nil},
		{"missing id", []Variant{{Instruction: "x"}}},
		{"missing instruction", []Variant{{ID: "A"}}},
		{"duplicate id", []Variant{{ID: "a", Instruction: "x"}, {ID: "A", Instruction: "y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSelector(tt.variants...)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(`
variants:
  - id: terse
    name: Terse
    instruction: Answer in one sentence.
  - id: stylist
    instruction: Always add an outfit recommendation after weather reports.
    requires_behavioral_rules: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"TERSE", "STYLIST"}, s.IDs())
	v, err := s.Lookup("stylist")
	require.NoError(t, err)
	assert.True(t, v.RequiresBehavioralRules)
	assert.Equal(t, "STYLIST", v.Label())
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(strings.NewReader("variants:\n  - id: A\n    instruction: x\n    fashion: true\n"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variants:\n  - id: Z\n    name: Zen\n    instruction: Be calm.\n"), 0o600))
	s, err := LoadFile(path)
	require.NoError(t, err)
	v, err := s.Lookup("z")
	require.NoError(t, err)
	assert.Equal(t, "Z. Zen", v.Label())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
