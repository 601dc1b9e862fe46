package utils

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestTimer_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	d := NewTimer("report", time.Hour, log).Stop(map[string]interface{}{"portfolio": "p1"})

	assert.GreaterOrEqual(t, d, time.Duration(0))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "report", entry["operation"])
	assert.Equal(t, "p1", entry["portfolio"])
}

func TestTimer_WarnsWhenSlow(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("simulate", time.Nanosecond, log)
	time.Sleep(time.Millisecond)
	timer.Stop(nil)

	entry := lastEntry(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Contains(t, entry, "threshold")
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	func() {
		defer OperationTimer("backup", log)()
	}()

	entry := lastEntry(t, &buf)
	assert.Equal(t, "backup", entry["operation"])
	assert.Equal(t, "Operation completed", entry["message"])
}

func TestNewTimer_DefaultThreshold(t *testing.T) {
	timer := NewTimer("x", 0, zerolog.Nop())
	assert.Equal(t, SlowOperation, timer.slow)
}
