package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
	})
	return &buf
}

func TestInfo_WritesStructuredEntry(t *testing.T) {
	buf := capture(t)

	Info("load complete", "component", "loader", "customers", 12)

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "load complete", entry["msg"])
	assert.Equal(t, "loader", entry["component"])
	assert.Equal(t, "12", entry["customers"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Info("dropped")
	Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://rfm:secret@db:5432/rfm?sslmode=disable", "postgres://rfm:***@db:5432/rfm?sslmode=disable"},
		{"user=rfm password=secret host=db", "user=rfm password=*** host=db"},
		{"postgres://db:5432/rfm", "postgres://db:5432/rfm"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactDSN(tt.in))
	}
}

func TestRedaction_InFields(t *testing.T) {
	buf := capture(t)

	Error("connect failed",
		"database_url", "postgres://rfm:hunter2@db/rfm",
		"error", "dial postgres://rfm:hunter2@db/rfm: refused",
		"password", "hunter2")

	assert.NotContains(t, buf.String(), "hunter2")
}
