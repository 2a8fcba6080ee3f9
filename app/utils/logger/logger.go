package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	instance *logrus.Logger
	once     sync.Once
)

// GetLogger returns the shared logger, creating it on first use.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		instance = logrus.New()
		instance.SetOutput(os.Stderr)
		instance.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		if level, err := logrus.ParseLevel(os.Getenv("CAREERTRACK_LOG_LEVEL")); err == nil {
			instance.SetLevel(level)
		} else {
			instance.SetLevel(logrus.InfoLevel)
		}
	})
	return instance
}
