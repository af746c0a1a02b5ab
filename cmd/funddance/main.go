package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BillLee1st/FundDance/internal/config"
	"github.com/BillLee1st/FundDance/internal/hook"
	"github.com/BillLee1st/FundDance/internal/runner"
	"github.com/BillLee1st/FundDance/internal/sink"
	"github.com/BillLee1st/FundDance/internal/storage"
	"github.com/BillLee1st/FundDance/internal/tui"
)

var (
	configPath string
	verbose    bool
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	rootCmd := &cobra.Command{
		Use:   "funddance",
		Short: "FundDance daily data fetch runner",
		Long:  "FundDance runs the daily market data fetch and tees its output to an append-only run log.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: runTUI,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: funddance.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newLogCommand())
	rootCmd.AddCommand(newDeleteCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStorage() (*config.Config, *storage.Storage, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	return cfg, store, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	_, store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	app := tui.NewApp(store)
	p := tea.NewProgram(app, tea.WithAltScreen())

	_, err = p.Run()
	return err
}

func newFetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [-- args...]",
		Short: "Run the data fetch once, teeing its output to the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			hooks, err := hook.FromConfig(cfg.BaseDir, cfg.Hooks)
			if err != nil {
				return err
			}

			run, err := runner.New(cfg, store, hooks).Run(cmd.Context(), args)
			if err != nil {
				return err
			}

			if cfg.IgnoreChildExit || run.ExitCode == nil || *run.ExitCode == 0 {
				return nil
			}

			// Propagate the child's exit code
			code := *run.ExitCode
			store.Close()
			os.Exit(code)
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent fetch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(20)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}

			for _, run := range runs {
				exit := "-"
				if run.ExitCode != nil {
					exit = strconv.Itoa(*run.ExitCode)
				}
				fmt.Printf("#%d %s [%s] exit=%s %s\n",
					run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Status, exit, run.CommandLine())
			}

			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}

			_, store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(runID)
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}

			fmt.Printf("Run #%d\n", run.ID)
			fmt.Printf("Command: %s\n", run.CommandLine())
			fmt.Printf("Status: %s\n", run.Status)
			fmt.Printf("Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			if run.CompletedAt != nil {
				fmt.Printf("Finished: %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			if run.ExitCode != nil {
				fmt.Printf("Exit code: %d\n", *run.ExitCode)
			}
			fmt.Printf("Log: %s\n", run.LogPath)

			return nil
		},
	}
}

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <run-id>",
		Short: "Print the tail of a run's log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}
			lines, _ := cmd.Flags().GetInt("lines")

			_, store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(runID)
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}

			content, err := sink.Tail(run.LogPath, lines)
			if err != nil {
				return err
			}
			fmt.Println(content)

			return nil
		},
	}

	cmd.Flags().IntP("lines", "n", 40, "Number of lines to show")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}

			_, store, err := openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRun(runID); err != nil {
				return fmt.Errorf("failed to delete run: %w", err)
			}

			fmt.Printf("Deleted run #%d\n", runID)
			return nil
		},
	}
}
