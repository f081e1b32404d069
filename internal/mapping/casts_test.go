package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncline/syncline/internal/domain"
)

func executeCasts(t *testing.T, input map[string]any, casts ...domain.FieldCast) map[string]any {
	t.Helper()
	engine := NewEngine()
	m := &domain.Mapping{PassThrough: true, Casts: casts}
	out, err := engine.Execute(context.Background(), m, input)
	require.NoError(t, err)
	return out
}

func TestParseCastSpec(t *testing.T) {
	tests := []struct {
		spec string
		name string
		arg  string
	}{
		{"int", "int", ""},
		{"unsetIfValue==N/A", "unsetIfValue", "N/A"},
		{"countValue:items", "countValue", "items"},
		{"setNullIfValue==", "setNullIfValue", ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, arg := parseCastSpec(tt.spec)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.arg, arg)
		})
	}
}

func TestPrimitiveCasts(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"count": "42", "flag": "true", "ratio": "3.5", "single": "x"},
		domain.FieldCast{Path: "count", Casts: []string{"int"}},
		domain.FieldCast{Path: "flag", Casts: []string{"bool"}},
		domain.FieldCast{Path: "ratio", Casts: []string{"float"}},
		domain.FieldCast{Path: "single", Casts: []string{"array"}},
	)

	assert.Equal(t, 42, out["count"])
	assert.Equal(t, true, out["flag"])
	assert.Equal(t, 3.5, out["ratio"])
	assert.Equal(t, []any{"x"}, out["single"])
}

func TestCastIntStringRoundTrip(t *testing.T) {
	// int then string over "42" gives "42" back
	out := executeCasts(t,
		map[string]any{"v": "42"},
		domain.FieldCast{Path: "v", Casts: []string{"int", "string"}},
	)
	assert.Equal(t, "42", out["v"])
}

func TestCastNullStringToNull(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"a": "null", "b": "value"},
		domain.FieldCast{Path: "a", Casts: []string{"nullStringToNull"}},
		domain.FieldCast{Path: "b", Casts: []string{"nullStringToNull"}},
	)
	assert.Nil(t, out["a"])
	assert.Equal(t, "value", out["b"])
}

func TestCastCountValue(t *testing.T) {
	out := executeCasts(t,
		map[string]any{
			"memberCount": []any{"a", "b"},
			"members":     []any{"a", "b"},
		},
		domain.FieldCast{Path: "memberCount", Casts: []string{"countValue:members"}},
	)
	assert.Equal(t, 2, out["memberCount"])
}

func TestCastUnsetIfValue(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"a": "N/A", "b": "keep"},
		domain.FieldCast{Path: "a", Casts: []string{"unsetIfValue==N/A"}},
		domain.FieldCast{Path: "b", Casts: []string{"unsetIfValue==N/A"}},
	)
	_, exists := out["a"]
	assert.False(t, exists)
	assert.Equal(t, "keep", out["b"])
}

func TestCastUnsetIfEmpty(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"empty": "", "emptyList": []any{}, "nilValue": nil, "keep": 0},
		domain.FieldCast{Path: "empty", Casts: []string{"unsetIfEmpty"}},
		domain.FieldCast{Path: "emptyList", Casts: []string{"unsetIfEmpty"}},
		domain.FieldCast{Path: "nilValue", Casts: []string{"unsetIfEmpty"}},
		domain.FieldCast{Path: "keep", Casts: []string{"unsetIfEmpty"}},
	)
	assert.NotContains(t, out, "empty")
	assert.NotContains(t, out, "emptyList")
	assert.NotContains(t, out, "nilValue")
	assert.Contains(t, out, "keep")
}

func TestCastUnsetStopsCastChain(t *testing.T) {
	// once a cast deletes the key, later casts must not re-write it
	out := executeCasts(t,
		map[string]any{"v": "gone"},
		domain.FieldCast{Path: "v", Casts: []string{"unsetIfValue==gone", "string"}},
	)
	assert.NotContains(t, out, "v")
}

func TestCastSetNullIfValue(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"v": "unknown"},
		domain.FieldCast{Path: "v", Casts: []string{"setNullIfValue==unknown"}},
	)
	assert.Contains(t, out, "v")
	assert.Nil(t, out["v"])
}

func TestEncodingCasts(t *testing.T) {
	out := executeCasts(t,
		map[string]any{
			"url":    "a b&c",
			"b64":    "hello",
			"html":   "<b>bold</b>",
			"toJSON": map[string]any{"k": "v"},
			"toObj":  `{"k":"v"}`,
		},
		domain.FieldCast{Path: "url", Casts: []string{"urlEncode"}},
		domain.FieldCast{Path: "b64", Casts: []string{"base64Encode"}},
		domain.FieldCast{Path: "html", Casts: []string{"htmlEncode"}},
		domain.FieldCast{Path: "toJSON", Casts: []string{"jsonEncode"}},
		domain.FieldCast{Path: "toObj", Casts: []string{"jsonDecode"}},
	)

	assert.Equal(t, "a+b%26c", out["url"])
	assert.Equal(t, "aGVsbG8=", out["b64"])
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", out["html"])
	assert.Equal(t, `{"k":"v"}`, out["toJSON"])
	assert.Equal(t, map[string]any{"k": "v"}, out["toObj"])
}

func TestEncodingCastsRoundTrip(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"u": "a b&c", "b": "hello"},
		domain.FieldCast{Path: "u", Casts: []string{"urlEncode", "urlDecode"}},
		domain.FieldCast{Path: "b", Casts: []string{"base64Encode", "base64Decode"}},
	)
	assert.Equal(t, "a b&c", out["u"])
	assert.Equal(t, "hello", out["b"])
}

func TestCastTransliterate(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"name": "Pérez Müller Ångström"},
		domain.FieldCast{Path: "name", Casts: []string{"transliterate"}},
	)
	assert.Equal(t, "Perez Muller Angstrom", out["name"])
}

func TestCastCoordinates(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"position": "52.37, 4.89"},
		domain.FieldCast{Path: "position", Casts: []string{"coordinateStringToArray"}},
	)
	assert.Equal(t, []any{52.37, 4.89}, out["position"])
}

func TestCastMoney(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"euro comma decimal", "€ 1.234,56", 123456},
		{"dollar dot decimal", "$12.34", 1234},
		{"plain integer", "99", 9900},
		{"negative", "-5,50", -550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := executeCasts(t,
				map[string]any{"amount": tt.input},
				domain.FieldCast{Path: "amount", Casts: []string{"moneyStringToInt"}},
			)
			assert.Equal(t, tt.expected, out["amount"])
		})
	}
}

func TestCastMoneyRoundTrip(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"amount": 123456},
		domain.FieldCast{Path: "amount", Casts: []string{"intToMoneyString"}},
	)
	assert.Equal(t, "1234.56", out["amount"])
}

func TestUnknownCastIsNoOp(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"v": "untouched"},
		domain.FieldCast{Path: "v", Casts: []string{"definitelyNotACast"}},
	)
	assert.Equal(t, "untouched", out["v"])
}

func TestCastAbsentPathIsNoOp(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"v": 1},
		domain.FieldCast{Path: "missing", Casts: []string{"string"}},
	)
	assert.Equal(t, map[string]any{"v": 1}, out)
}

func TestFailedCastKeepsValue(t *testing.T) {
	out := executeCasts(t,
		map[string]any{"v": "not-a-number"},
		domain.FieldCast{Path: "v", Casts: []string{"int"}},
	)
	assert.Equal(t, "not-a-number", out["v"])
}
