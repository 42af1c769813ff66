package logging

import (
	"fmt"
	"os"
)

// EarlyLog writes to stderr before the structured logger exists.
type EarlyLog struct {
	service string
}

func NewEarlyLog(service string) *EarlyLog {
	return &EarlyLog{service: service}
}

func (l *EarlyLog) write(level, msg string, args ...interface{}) {
	out := os.Stderr
	if level == "INFO" {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%s [%s] %s\n", level, l.service, fmt.Sprintf(msg, args...))
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.write("FATAL", msg, args...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write("WARN", msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.write("INFO", msg, args...)
}
