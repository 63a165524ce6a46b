package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", "json")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log.Info().Str("stack", "app").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "app", line["stack"])
	assert.Contains(t, line, "time")
}

func TestNew_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", "")
	require.NoError(t, err)
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "WARN", "console")
	require.NoError(t, err)
	log.Warn().Msg("careful")
	assert.Contains(t, buf.String(), "careful")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
