package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger configured for facegate. Output goes to stderr because
// stdout carries the command result.
func New(level, format string) *logrus.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

func NewWithWriter(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.Out = w

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			PadLevelText:    true,
		})
	}

	return logger
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

// Phase logs the start of a named phase and returns a function that logs its
// end together with the elapsed time.
//
//	done := logging.Phase(log, "detection")
//	defer done()
func Phase(entry *logrus.Entry, name string) func() {
	start := time.Now()
	entry.WithField("phase", name).Debug("phase started")
	return func() {
		entry.WithFields(logrus.Fields{
			"phase":   name,
			"elapsed": time.Since(start).String(),
		}).Info("phase finished")
	}
}
