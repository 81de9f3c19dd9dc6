// Package identity resolves the device serial used to tag published readings.
package identity

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
)

// Fallback is returned whenever the serial cannot be read.
const Fallback = "0"

const serialLabel = "Serial"

// Serial reads the hardware serial from a cpuinfo style file at path. The
// line starting with "Serial" carries the value after its colon. Any failure
// yields Fallback; startup never blocks on identity.
func Serial(path string) string {
	f, err := os.Open(path)
	if err != nil {
		slog.Debug("serial lookup failed, using fallback", "path", path, "error", err)
		return Fallback
	}
	defer f.Close()

	serial := ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, serialLabel) {
			continue
		}
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		serial = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		slog.Debug("serial lookup failed, using fallback", "path", path, "error", err)
		return Fallback
	}
	if serial == "" {
		slog.Debug("no serial line found, using fallback", "path", path)
		return Fallback
	}

	slog.Debug("serial resolved", "path", path, "serial", serial)
	return serial
}
