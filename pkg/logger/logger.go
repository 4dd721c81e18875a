// Package logger holds the process-wide logrus logger.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	log     *logrus.Logger
	discard = newDiscard()
)

func newDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Init builds the logger from the configured level and format ("json" or text).
func Init(level, format string) error {
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("unknown log level %q", level)
		}
		lvl = parsed
	}

	l := logrus.New()
	l.SetLevel(lvl)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetOutput(os.Stdout)
	log = l
	return nil
}

// SetOutput redirects the logger, initialising it with defaults if needed.
func SetOutput(w io.Writer) {
	if log == nil {
		_ = Init("info", "text")
	}
	log.SetOutput(w)
}

// current falls back to a discarded logger until Init runs.
func current() *logrus.Logger {
	if log == nil {
		return discard
	}
	return log
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return current().WithFields(fields)
}

func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }

func Info(args ...interface{}) { current().Info(args...) }

func Infof(format string, args ...interface{}) { current().Infof(format, args...) }

func Warnf(format string, args ...interface{}) { current().Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }
