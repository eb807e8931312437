package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	return record
}

func TestLogger_WritesFlatJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo})

	log.Info("practice recorded", LearnerID("lrn-1"), Int("points", 80))

	record := parseLine(t, &buf)
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "practice recorded", record["msg"])
	assert.Equal(t, "lrn-1", record["learner_id"])
	assert.Equal(t, float64(80), record["points"])
	assert.NotEmpty(t, record["ts"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelWarn})

	log.Debug("hidden")
	log.Info("hidden too")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_WithCarriesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo}).With(Component("http"))

	log.Info("request handled", String("path", "/health"))

	record := parseLine(t, &buf)
	assert.Equal(t, "http", record["component"])
	assert.Equal(t, "/health", record["path"])
}

func TestErr(t *testing.T) {
	assert.Equal(t, "boom", Err(errors.New("boom")).Value)
	assert.Nil(t, Err(nil).Value)
}

func TestLogger_ReservedKeysWin(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo})

	log.Info("real message", String("msg", "spoofed"))

	record := parseLine(t, &buf)
	assert.Equal(t, "real message", record["msg"])
}
