package testutil

import (
	"bytes"
	"log/slog"
	"strings"
)

// NewBufferLogger returns a debug-level text logger and the buffer it writes to.
func NewBufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), buf
}

// LogCount reports how many records in buf were logged with msg.
func LogCount(buf *bytes.Buffer, msg string) int {
	quoted := `msg="` + msg + `"`
	bare := "msg=" + msg + " "
	n := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, quoted) || strings.Contains(line+" ", bare) {
			n++
		}
	}
	return n
}
