package utils

import (
	"log"
	"os"
)

// InitLogger returns the process-wide logger. The engine shares it with
// the HTTP layer so cascade failures land in the same stream as request
// logs.
func InitLogger() *log.Logger {
	return log.New(os.Stdout, "[Kyzer LMS] ", log.LstdFlags|log.LUTC)
}
