// Package logging holds the package-level logger every go-bsl package
// traces through. It is separate from the Progress callback a Session
// reports to callers: logging is for diagnosing the run, Progress is
// for driving a UI.
package logging

import (
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetLevel(logrus.WarnLevel)
}

// SetLogger replaces the package-level logger, letting a host
// application route go-bsl's trace output into its own logging setup.
func SetLogger(l *logrus.Logger) {
	logger = l
}

// Log returns the current package-level logger.
func Log() *logrus.Logger {
	return logger
}
