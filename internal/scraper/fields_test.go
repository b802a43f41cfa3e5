package scraper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestResolvePath(t *testing.T) {
	data := decodeJSON(t, `{
		"jobs": [
			{"title": "first", "location": {"name": "Remote"}},
			{"title": "second"},
			{"title": "third"}
		]
	}`)

	tests := []struct {
		name string
		path string
		want interface{}
	}{
		{"empty path returns input", "", data},
		{"map key", "jobs", data.(map[string]interface{})["jobs"]},
		{"index step", "jobs.[0].title", "first"},
		{"nested key", "jobs.[0].location.name", "Remote"},
		{"slice step drops head", "jobs.[1:].[0].title", "second"},
		{"missing key", "jobs.[0].salary", nil},
		{"index out of range", "jobs.[9]", nil},
		{"key into non-map", "jobs.title", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvePath(data, tt.path))
		})
	}
}

func TestApplySliceStepRange(t *testing.T) {
	arr := decodeJSON(t, `[1, 2, 3, 4]`)

	got := applySliceStep(arr, "1:3")
	assert.Equal(t, []interface{}{2.0, 3.0}, got)

	assert.Equal(t, []interface{}{}, applySliceStep(arr, "3:1"))
	assert.Nil(t, applySliceStep("not an array", "0"))
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "", stringValue(nil))
	assert.Equal(t, "text", stringValue("  text  "))
	assert.Equal(t, "42", stringValue(42.0))
	assert.Equal(t, "4.5", stringValue(4.5))
	assert.Equal(t, "true", stringValue(true))
}

func TestIntValue(t *testing.T) {
	assert.Equal(t, 120000, intValue(120000.0))
	assert.Equal(t, 120000, intValue("$120,000"))
	assert.Equal(t, 0, intValue("negotiable"))
	assert.Equal(t, 0, intValue(nil))
}

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"rfc3339 passes through", "2026-08-20T10:00:00Z", "2026-08-20T10:00:00Z"},
		{"date only", "2026-08-20", "2026-08-20T00:00:00Z"},
		{"rfc1123z", "Thu, 20 Aug 2026 10:00:00 +0000", "2026-08-20T10:00:00Z"},
		{"unix seconds string", "1787184000", "2026-08-20T00:00:00Z"},
		{"unix seconds number", 1787184000.0, "2026-08-20T00:00:00Z"},
		{"unix milliseconds", 1787184000000.0, "2026-08-20T00:00:00Z"},
		{"unparseable stays as-is", "sometime soon", "sometime soon"},
		{"empty", "", ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceDate(tt.in))
		})
	}
}
