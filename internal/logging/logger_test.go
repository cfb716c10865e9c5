package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.NoError(t, ParseLevel(" DEBUG ").Validate())
	assert.Error(t, Level("trace").Validate())
	assert.Equal(t, slog.LevelWarn, LevelWarn.ToSlogLevel())
	assert.Equal(t, slog.LevelInfo, Level("bogus").ToSlogLevel())
}

func TestFormat(t *testing.T) {
	assert.NoError(t, ParseFormat("Json").Validate())
	assert.Error(t, Format("xml").Validate())
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo, FormatJSON)

	logger.Debug("hidden")
	logger.Info("listed", "count", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "listed", record["msg"])
	assert.Equal(t, "assetproxy", record["service"])
	assert.EqualValues(t, 3, record["count"])
}
