package engine

import (
	"io"
	"log/slog"
)

// testLogger is a discarding logger shared by tests that need to satisfy a
// *slog.Logger parameter without cluttering test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
