package objectid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()
	assert.True(t, Valid(a))
	assert.True(t, Valid(b))
	assert.NotEqual(t, a, b)
}

func TestNewAt_TimestampPrefix(t *testing.T) {
	ts := time.Unix(0x65000000, 0)
	id := newAt(ts)
	require.Len(t, id, 24)
	assert.Equal(t, "65000000", id[:8])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"plain", "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439011", true},
		{"brackets", "[507f1f77bcf86cd799439011]", "507f1f77bcf86cd799439011", true},
		{"encoded brackets", "%5B507f1f77bcf86cd799439011%5D", "507f1f77bcf86cd799439011", true},
		{"whitespace", "  507f1f77bcf86cd799439011 ", "507f1f77bcf86cd799439011", true},
		{"uppercase", "507F1F77BCF86CD799439011", "507f1f77bcf86cd799439011", true},
		{"too short", "507f1f77bcf86cd79943901", "", false},
		{"non hex", "507f1f77bcf86cd79943901z", "", false},
		{"empty", "", "", false},
		{"uuid", "9b2f0c1e-8f43-4a7e-9d54-0c9f4f5b1e2a", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseList(t *testing.T) {
	got := ParseList("507f1f77bcf86cd799439011, bad,,507f1f77bcf86cd799439012")
	assert.Equal(t, []string{"507f1f77bcf86cd799439011", "507f1f77bcf86cd799439012"}, got)
	assert.Empty(t, ParseList(""))
}
