package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelWarn, &buf, "")

	logger.Info("hidden")
	logger.Warn("shown %d", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN shown 1")
}

func TestWithPrefixSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(LevelInfo, &buf, "softpos")
	child := root.WithPrefix("tap")

	child.Debug("before")
	assert.Empty(t, buf.String())

	root.sink.level = LevelDebug
	child.Debug("after")
	assert.Contains(t, buf.String(), "DEBUG softpos tap: after")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(LevelError))
}
