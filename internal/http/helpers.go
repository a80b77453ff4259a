package http

import (
	stdlog "log"
	"log/slog"
	"path"
	"strings"

	"spendlens/internal/log"
)

const maxFilenameLength = 255

// sanitizeFilename keeps the base name of an uploaded file, without control
// characters and bounded in length. It is only used for logs and run records.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	return name
}

// slogErrorLog routes net/http's internal errors through logger.
func slogErrorLog(logger *log.Logger) *stdlog.Logger {
	return slog.NewLogLogger(logger.Handler(), slog.LevelError)
}
