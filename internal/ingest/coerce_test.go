package ingest

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceNumbers(t *testing.T) {
	v, ok := Coerce(32.2)
	assert.True(t, ok)
	assert.Equal(t, 32.2, v)

	v, ok = Coerce(int(42))
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = Coerce(json.Number("303.51"))
	assert.True(t, ok)
	assert.Equal(t, 303.51, v)
}

func TestCoerceNonFinite(t *testing.T) {
	_, ok := Coerce(math.NaN())
	assert.False(t, ok)
	_, ok = Coerce(math.Inf(1))
	assert.False(t, ok)
	_, ok = Coerce(math.Inf(-1))
	assert.False(t, ok)
}

func TestCoerceStrings(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"64.0%", 64.0, true},
		{"990 hPa", 990, true},
		{"-12.5C", -12.5, true},
		{" 21.7 ", 21.7, true},
		{"1,700.25", 1700.25, true},
		{"abc", 0, false},
		{"", 0, false},
		{"%", 0, false},
	}
	for _, tt := range tests {
		v, ok := Coerce(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, v, "input %q", tt.in)
		}
	}
}

func TestCoerceTotality(t *testing.T) {
	// None of these may panic; all must report no value.
	for _, in := range []interface{}{
		nil, true, false,
		[]interface{}{1, 2},
		map[string]interface{}{"value": 3},
		struct{}{},
	} {
		_, ok := Coerce(in)
		assert.False(t, ok, "input %#v", in)
	}
}
