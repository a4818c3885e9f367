package jsonutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		var result map[string]any
		require.NoError(t, Unmarshal([]byte(`{"name":"test","value":42}`), &result))
		assert.Equal(t, "test", result["name"])
	})

	t.Run("case insensitive fields", func(t *testing.T) {
		var v struct {
			TotalScore int `json:"total_score"`
		}
		require.NoError(t, Unmarshal([]byte(`{"TOTAL_SCORE":75}`), &v))
		assert.Equal(t, 75, v.TotalScore)
	})

	t.Run("invalid json", func(t *testing.T) {
		var result map[string]any
		assert.Error(t, Unmarshal([]byte(`{invalid`), &result))
	})
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(map[string]int{"a": 1}, "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"a\": 1")
}

func TestEncoderWritesNewline(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(map[string]string{"k": "v"}))
	require.NoError(t, enc.Encode(map[string]string{"k": "w"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

