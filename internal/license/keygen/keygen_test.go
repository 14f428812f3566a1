package keygen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	g := New()
	key, err := g.Generate()
	require.NoError(t, err)

	assert.True(t, ValidFormat(key), "generated key %q should match the key format", key)
	assert.True(t, strings.HasPrefix(key, "PZDT-"))
	assert.Len(t, key, len("PZDT")+5*4)

	parts := strings.Split(key, "-")
	require.Len(t, parts, 5)
	for _, seg := range parts[1:] {
		assert.Len(t, seg, 4)
		assert.Equal(t, strings.ToUpper(seg), seg, "segments are uppercase hex")
	}
}

func TestGenerateUnique(t *testing.T) {
	g := New()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		key, err := g.Generate()
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "key %q generated twice", key)
		seen[key] = struct{}{}
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"PZDT-4F2A-9C01-BB37-0D6E", true},
		{"PZDT-0000-0000-0000-0000", true},
		{"pzdt-4f2a-9c01-bb37-0d6e", false},
		{"PZDT-4F2A-9C01-BB37", false},
		{"PZDT-4F2A-9C01-BB37-0D6E-AAAA", false},
		{"XXXX-4F2A-9C01-BB37-0D6E", false},
		{"PZDT-4F2A-9C01-BB37-0D6G", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidFormat(tt.key), "key %q", tt.key)
	}
}
