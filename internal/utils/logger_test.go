package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/jsonbundler/internal/domain"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewLogger(LoggerOptions{Level: level, Format: FormatJSON, Output: buf})
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		jsonLogger(&buf, "info").Info().Msg("bundle created")
		assert.Contains(t, buf.String(), `"message":"bundle created"`)
	})

	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(LoggerOptions{Format: "Pretty", Output: &buf}).Info().Msg("bundle created")
		assert.Contains(t, buf.String(), "bundle created")
		assert.NotContains(t, buf.String(), `"message"`)
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(LoggerOptions{Level: "error", Format: FormatJSON, Output: &buf, Verbose: true}).
			Debug().Msg("resolving")
		assert.Contains(t, buf.String(), "resolving")
	})

	t.Run("stderr by default", func(t *testing.T) {
		require.NotNil(t, NewLogger(LoggerOptions{}))
	})
}

func TestLevelOf(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"fatal", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, levelOf(tt.in))
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, "warn")

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").
		WithComponent("resolver").
		WithEnvironment("prod").
		WithFile("specs/manifest/product-a.json").
		Info().Msg("fetched")

	out := buf.String()
	assert.Contains(t, out, `"component":"resolver"`)
	assert.Contains(t, out, `"env":"prod"`)
	assert.Contains(t, out, `"file":"specs/manifest/product-a.json"`)
}

func TestLogger_LogIssues(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").LogIssues("/product", domain.Issues{
		{Path: "/bom", Keyword: "/properties/bom/type", Message: "expected integer, but got string"},
		{Path: "/name", Keyword: "/properties/name/type", Message: "expected string, but got number"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"error"`)
	assert.Contains(t, lines[0], `"schema":"/product"`)
	assert.Contains(t, lines[0], `"path":"/bom"`)
	assert.Contains(t, lines[1], `"path":"/name"`)
}

func TestNewNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopLogger().WithComponent("x").Error().Msg("discarded")
	})
}
