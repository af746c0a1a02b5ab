// Package sink duplicates run output to the console and an append-mode log
// file. The file is never truncated or rotated; each run appends one full
// start/output/end cycle.
package sink

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// Sink writes run events and raw child output to two destinations at once.
type Sink struct {
	console io.Writer
	file    *os.File
	now     func() time.Time
}

// Open creates the dual sink over the console writer and the log file at path,
// opened in append mode.
func Open(console io.Writer, path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Sink{console: console, file: f, now: time.Now}, nil
}

// Event writes one timestamped line to both destinations.
func (s *Sink) Event(format string, args ...any) {
	line := fmt.Sprintf("[%s] %s\n", s.now().Format(timeFormat), fmt.Sprintf(format, args...))
	io.WriteString(s.console, line)
	s.file.WriteString(line)
}

// Raw returns a writer teeing verbatim bytes to both destinations. Child
// output is wired through here so it is visible as it is produced.
func (s *Sink) Raw() io.Writer {
	return io.MultiWriter(s.console, s.file)
}

func (s *Sink) Close() error {
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// Tail returns the last n lines of the log file at path.
func Tail(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}
