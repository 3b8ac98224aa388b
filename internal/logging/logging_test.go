package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")

	log.WithField("employee_id", 42).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, float64(42), line["employee_id"])
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestPhase(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "text")

	done := Phase(logrus.NewEntry(log), "detection")
	done()

	out := buf.String()
	assert.True(t, strings.Contains(out, "phase=detection"), out)
	assert.True(t, strings.Contains(out, "elapsed="), out)
	assert.NotContains(t, out, "phase started", "start is logged at debug level")
}
