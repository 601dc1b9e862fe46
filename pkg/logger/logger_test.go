package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_AllLogLevels(t *testing.T) {
	testCases := []struct {
		level         string
		expectedLevel zerolog.Level
		name          string
	}{
		{"trace", zerolog.TraceLevel, "trace"},
		{"debug", zerolog.DebugLevel, "debug"},
		{"info", zerolog.InfoLevel, "info"},
		{"WARN", zerolog.WarnLevel, "upper case warn"},
		{"error", zerolog.ErrorLevel, "error"},
		{"off", zerolog.Disabled, "off disables"},
		{"unknown", zerolog.InfoLevel, "unknown defaults to info"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			New(Config{Level: tc.level, Output: &bytes.Buffer{}})
			assert.Equal(t, tc.expectedLevel, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestNew_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	log.Info().Str("portfolio", "p1").Msg("report built")

	output := buf.String()
	assert.Contains(t, output, "report built")
	assert.Contains(t, output, `"portfolio":"p1"`)
	assert.Contains(t, output, `"caller"`)
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Pretty: true, Output: &buf})

	log.Info().Str("key", "value").Msg("pretty message")

	output := buf.String()
	assert.Contains(t, strings.ToLower(output), "pretty message")
	assert.NotContains(t, output, `"message"`)
}

func TestNew_TimestampFormat(t *testing.T) {
	New(Config{Level: "info", Output: &bytes.Buffer{}})
	assert.Equal(t, "2006-01-02T15:04:05Z07:00", zerolog.TimeFieldFormat)
}

func TestNew_ErrorLevelFiltersLower(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "error", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Msg("should not appear")
	assert.NotContains(t, buf.String(), "should not appear")

	log.Error().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: "info", Output: &buf}), "simulator")

	log.Info().Msg("started")
	assert.Contains(t, buf.String(), `"component":"simulator"`)
}

func TestSetGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalLogger(New(Config{Level: "info", Output: &buf}))
	defer SetGlobalLogger(zerolog.Logger{})

	assert.NotPanics(t, func() {
		SetGlobalLogger(zerolog.Nop())
	})
}
