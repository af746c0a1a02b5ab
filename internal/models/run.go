package models

import (
	"strings"
	"time"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the fetch command.
type Run struct {
	ID          int64
	StartedAt   time.Time
	CompletedAt *time.Time
	Command     string
	Args        []string
	LogPath     string
	Status      RunStatus
	ExitCode    *int
}

// CommandLine renders the command and its arguments as a single display string.
func (r *Run) CommandLine() string {
	return strings.Join(append([]string{r.Command}, r.Args...), " ")
}
