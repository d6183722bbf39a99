package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/model"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, model.LogConfig{Level: "warn", Format: "json"})

	logger.Info("notify.dispatch.sent")
	assert.Zero(t, buf.Len(), "info is below warn")

	logger.Warn("notify.dispatch.dropped", "kind", "summary")
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "notify.dispatch.dropped", rec["msg"])
	assert.Equal(t, "summary", rec["kind"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, model.LogConfig{}).Info("planner.summary.failed", "user_id", "u1")
	assert.Contains(t, buf.String(), "msg=planner.summary.failed")
	assert.Contains(t, buf.String(), "user_id=u1")
}
