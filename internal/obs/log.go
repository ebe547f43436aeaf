package obs

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// Logger returns the shared JSON logger used across the service.
func Logger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "ts",
			},
		})
	})
	return logger
}

// SetLevel adjusts verbosity; unknown names keep the current level.
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		Logger().WithField("level_name", name).Warn("unknown log level")
		return
	}
	Logger().SetLevel(lvl)
}

// LogRequest emits one structured entry with the given HTTP fields.
func LogRequest(msg string, fields map[string]any) {
	Logger().WithFields(logrus.Fields(fields)).Info(msg)
}
