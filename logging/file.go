package logging

import "gopkg.in/natefinch/lumberjack.v2"

const defaultMaxSizeMB = 2

// NewFileWriter returns a size-capped log file keeping a single backup.
// The file is opened on first write, so open and rotate failures come back
// from Write.
func NewFileWriter(path string, maxSizeMB int) *lumberjack.Logger {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 1,
	}
}
