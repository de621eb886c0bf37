package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures logging for the process. By default logs are
// discarded so they never interleave with the session display; setting
// STILLNESS_LOGFILE sends them to a file and STILLNESS_DEBUG raises the
// level to debug.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
	log.SetTimeFormat(time.Kitchen)

	if os.Getenv("STILLNESS_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}

	path := os.Getenv("STILLNESS_LOGFILE")
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	log.SetOutput(f)
	return f.Close, nil
}
