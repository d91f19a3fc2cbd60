// Package log provides loggers of clip packages. Level is configured with
// environment: CLIP_DEBUG=true enables debug output, CLIP_LOG_LEVEL sets
// any logrus level and takes precedence.
package log

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var level = logrus.InfoLevel

// Logger is a global interface for clip loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	WithField(key string, value interface{}) *logrus.Entry
}

func init() {
	level = levelOf(os.Getenv("CLIP_DEBUG"), os.Getenv("CLIP_LOG_LEVEL"))
}

func levelOf(debug, name string) logrus.Level {
	if l, err := logrus.ParseLevel(name); err == nil {
		return l
	}
	if d, err := strconv.ParseBool(debug); err == nil && d {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	return l
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
