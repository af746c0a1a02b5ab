// Package runner executes the configured fetch command once and tees its
// combined output to the console and the append-mode run log.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BillLee1st/FundDance/internal/config"
	"github.com/BillLee1st/FundDance/internal/hook"
	"github.com/BillLee1st/FundDance/internal/models"
	"github.com/BillLee1st/FundDance/internal/sink"
	"github.com/BillLee1st/FundDance/internal/storage"
)

// LaunchExitCode is recorded when the child never started: activation hook
// failure or missing binary.
const LaunchExitCode = 127

type Runner struct {
	cfg   *config.Config
	store *storage.Storage // may be nil; history is best effort
	hooks []hook.Hook

	// Console receives the same bytes as the log file. Defaults to stdout.
	Console io.Writer
}

func New(cfg *config.Config, store *storage.Storage, hooks []hook.Hook) *Runner {
	return &Runner{cfg: cfg, store: store, hooks: hooks, Console: os.Stdout}
}

// Run invokes the fetch command with extraArgs appended to the configured
// arguments. The child's combined stdout/stderr is teed line-for-line to the
// console and the run log, bracketed by timestamped start and end markers.
//
// A missing base directory aborts before anything is written or launched.
// Every other failure, including a child that cannot be started, is reported
// through the Failed end marker rather than as an error.
func (r *Runner) Run(ctx context.Context, extraArgs []string) (*models.Run, error) {
	info, err := os.Stat(r.cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("base directory %s is not accessible: %w", r.cfg.BaseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", r.cfg.BaseDir)
	}

	if err := os.MkdirAll(r.cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	args := append(append([]string{}, r.cfg.Args...), extraArgs...)
	run := &models.Run{
		StartedAt: time.Now(),
		Command:   r.cfg.Command,
		Args:      args,
		LogPath:   r.cfg.LogPath(),
		Status:    models.RunStatusRunning,
	}
	r.createRecord(run)

	s, err := sink.Open(r.Console, run.LogPath)
	if err != nil {
		r.finishRecord(run, LaunchExitCode)
		return nil, err
	}
	defer s.Close()

	s.Event("Running %s ...", run.CommandLine())

	exitCode := r.execute(ctx, s, args)

	if exitCode == 0 {
		s.Event("Done. (exit=%d)", exitCode)
	} else {
		s.Event("Failed. (exit=%d)", exitCode)
	}
	r.finishRecord(run, exitCode)

	return run, nil
}

// execute activates the environment, launches the child in the base
// directory, and drains its output into the sink.
func (r *Runner) execute(ctx context.Context, s *sink.Sink, args []string) int {
	env := hook.NewEnv(os.Environ())
	for _, h := range r.hooks {
		if err := h.Apply(ctx, env); err != nil {
			log.Error().Err(err).Str("hook", h.Name()).Msg("Activation hook failed")
			fmt.Fprintln(s.Raw(), err)
			return LaunchExitCode
		}
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Dir = r.cfg.BaseDir
	cmd.Env = env.Vars()

	out := s.Raw()
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		// Binary not found or other exec error.
		fmt.Fprintln(out, err)
		return LaunchExitCode
	}
	return 0
}

func (r *Runner) createRecord(run *models.Run) {
	if r.store == nil {
		return
	}
	id, err := r.store.CreateRun(run)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record run start")
		return
	}
	run.ID = id
}

func (r *Runner) finishRecord(run *models.Run, exitCode int) {
	now := time.Now()
	run.CompletedAt = &now
	run.ExitCode = &exitCode
	if exitCode == 0 {
		run.Status = models.RunStatusComplete
	} else {
		run.Status = models.RunStatusFailed
	}

	if r.store == nil || run.ID == 0 {
		return
	}
	if err := r.store.UpdateRun(run); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("Failed to record run result")
	}
}
