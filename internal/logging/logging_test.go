package logging

import (
	"bytes"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
)

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)

	l.Infof("hidden %d", 1)
	l.Warnf("sync failed for %s", "m1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "sync failed for m1")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, Prefix)
}

func TestNew_Off(t *testing.T) {
	var buf bytes.Buffer
	l := New("off", &buf)
	l.Errorf("boom")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Lvl{
		"debug":   log.DEBUG,
		"INFO":    log.INFO,
		" warn ":  log.WARN,
		"warning": log.WARN,
		"error":   log.ERROR,
		"off":     log.OFF,
		"bogus":   log.INFO,
		"":        log.INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}
