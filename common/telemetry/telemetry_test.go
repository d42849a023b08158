package telemetry

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nettrail/ipstory/common/logger"
)

func TestRecordDuration(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))}

	tel := New(0, log)
	tel.RecordDuration("GET /api/ip/:ip/entry/search", time.Now().Add(-5*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "GET /api/ip/:ip/entry/search")
	assert.Contains(t, out, "duration_ms")
}
