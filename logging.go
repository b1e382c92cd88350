/*
file: redis-emulator/logging.go

Replaces the teacher's bare log.Printf calls with logrus, the logging
library the pack shows for a Redis-adjacent Go service
(canonical-redis_exporter's exporter.go imports
"github.com/sirupsen/logrus" as its log package).
*/
package redisemu

import (
	"os"

	"github.com/sirupsen/logrus"
)

func newDefaultLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

// componentLog returns a logger field-tagged with component=name, the
// convention every file in this package uses when it needs to log.
func (s *Server) componentLog(name string) *logrus.Entry {
	return s.Log.WithField("component", name)
}
