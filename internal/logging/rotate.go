package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the bridge's log file sink, chosen to keep a
// modest on-disk footprint for a long-running stdio process.
const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 5
	defaultMaxAgeDays = 28
)

// RotatingFileWriter returns an io.Writer that appends to path, rotating
// it once it exceeds the default size, age, and backup-count limits.
// Used when Config.Output isn't set and LoggingConfig.File names a path.
func RotatingFileWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}
}
