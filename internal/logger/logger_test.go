package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withBuffer redirects the logger into a buffer for the duration of a test.
func withBuffer(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	InitWithWriter(&buf, level, format, false)
	t.Cleanup(func() {
		InitWithWriter(&buf, "INFO", "text", false)
	})
	return &buf
}

func TestTextFormatContainsLevelAndMessage(t *testing.T) {
	buf := withBuffer(t, "DEBUG", "text")

	Info("server started", "addr", ":8080")

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "server started")
	assert.Contains(t, line, "addr=:8080")
}

func TestLevelFiltering(t *testing.T) {
	buf := withBuffer(t, "WARN", "text")

	Debug("too quiet")
	Info("still too quiet")
	Warn("heard")
	Error("also heard")

	out := buf.String()
	assert.NotContains(t, out, "too quiet")
	assert.Contains(t, out, "heard")
	assert.Contains(t, out, "also heard")
}

func TestSetLevelLoosensFilter(t *testing.T) {
	buf := withBuffer(t, "ERROR", "text")

	Info("dropped")
	SetLevel("DEBUG")
	Info("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestJSONFormat(t *testing.T) {
	buf := withBuffer(t, "INFO", "json")

	Info("user logged in", KeyUsername, "alice", KeyUserID, 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "user logged in", record["msg"])
	assert.Equal(t, "alice", record[KeyUsername])
	assert.Equal(t, float64(7), record[KeyUserID])
}

func TestErrAttr(t *testing.T) {
	buf := withBuffer(t, "INFO", "text")

	Warn("write failed", Err(assert.AnError))

	assert.Contains(t, buf.String(), "error="+assert.AnError.Error())
}

func TestErrNilProducesNoAttr(t *testing.T) {
	buf := withBuffer(t, "INFO", "text")

	Info("all good", Err(nil))

	line := strings.TrimSpace(buf.String())
	assert.False(t, strings.Contains(line, "error="), "nil error must not emit an attr: %s", line)
}

func TestWithBindsAttrs(t *testing.T) {
	buf := withBuffer(t, "INFO", "text")

	l := With(KeyRequestID, "req-1")
	l.Info("request completed", KeyStatus, 200)

	line := buf.String()
	assert.Contains(t, line, "request_id=req-1")
	assert.Contains(t, line, "status=200")
}

func TestInvalidLevelIgnored(t *testing.T) {
	buf := withBuffer(t, "INFO", "text")

	SetLevel("LOUD")
	Info("still info", "k", "v")

	assert.Contains(t, buf.String(), "still info")
}
