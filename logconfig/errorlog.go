package logconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ErrorStart = "ERROR START"
	ErrorEnd   = "ERROR END"

	defaultErrorLogMaxSizeMB  = 16
	defaultErrorLogMaxBackups = 4
)

// ErrorLog is the append-only record of failed requests that operators
// fetch through the log endpoint. The current file is rotated by size.
type ErrorLog struct {
	mu   sync.Mutex
	path string
	w    *lumberjack.Logger
	now  func() time.Time
}

func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{
		path: path,
		w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    defaultErrorLogMaxSizeMB,
			MaxBackups: defaultErrorLogMaxBackups,
		},
		now: time.Now,
	}
}

func (l *ErrorLog) Path() string {
	return l.path
}

// Record appends one framed entry. Every argument is optional.
func (l *ErrorLog) Record(route string, body []byte, cause any, stack []byte) error {
	var b strings.Builder
	b.WriteString(ErrorStart + "\n")
	b.WriteString(l.now().UTC().Format(time.RFC3339Nano) + "\n")
	if route != "" {
		b.WriteString("Path: " + route + "\n")
	}
	if len(body) > 0 {
		b.WriteString("Body: " + string(body) + "\n")
	}
	if cause != nil {
		fmt.Fprintf(&b, "Error: %v\n", cause)
	}
	if len(stack) > 0 {
		b.WriteString(strings.TrimRight(string(stack), "\n") + "\n")
	}
	b.WriteString(ErrorEnd + "\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write([]byte(b.String()))
	return err
}

// Write lets the log double as a logrus output.
func (l *ErrorLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Read returns the content of the current file. A log that was never
// written reads as empty.
func (l *ErrorLog) Read() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ReadErrorLog(l.path)
}

func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Close()
}

func ReadErrorLog(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}
