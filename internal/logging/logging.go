// Package logging builds the leveled logger shared by the CLI, the engine
// and the dev server.
package logging

import (
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

// Prefix names coursetrack log lines.
const Prefix = "coursetrack"

const header = "${time_rfc3339} ${level} ${prefix}"

// New creates a text logger writing to w at the named level. Unknown
// levels fall back to info.
func New(level string, w io.Writer) *log.Logger {
	l := log.New(Prefix)
	l.SetHeader(header)
	l.SetOutput(w)
	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel maps debug, info, warn, error and off onto gommon levels.
func ParseLevel(level string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
