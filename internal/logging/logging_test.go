package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"trace", log.TraceLevel},
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warning", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"", log.InfoLevel},
		{"bogus", log.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNew_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Writer: &buf})

	logger.Info().Str("source", "guide.pdf").Int("chunks", 12).Msg("document ingested")
	logger.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "guide.pdf", entry["source"])
	assert.EqualValues(t, 12, entry["chunks"])
	assert.Equal(t, "document ingested", entry["message"])
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "error", Verbose: true, Writer: &buf})
	assert.Equal(t, log.DebugLevel, logger.Level)

	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_VerboseKeepsTrace(t *testing.T) {
	logger := New(Options{Level: "trace", Verbose: true, Writer: &bytes.Buffer{}})
	assert.Equal(t, log.TraceLevel, logger.Level)
}
