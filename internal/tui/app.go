package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BillLee1st/FundDance/internal/models"
	"github.com/BillLee1st/FundDance/internal/sink"
	"github.com/BillLee1st/FundDance/internal/storage"
)

type View int

const (
	ViewRunList View = iota
	ViewRunDetail
	ViewLog
)

const logTailLines = 400

type App struct {
	store *storage.Storage

	view        View
	runs        []*models.Run
	selectedIdx int
	selectedRun *models.Run

	logView  viewport.Model
	logReady bool

	width  int
	height int
	err    error
}

func NewApp(store *storage.Storage) *App {
	return &App{
		store: store,
		view:  ViewRunList,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadRuns, a.tickCmd())
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) hasRunningRuns() bool {
	for _, run := range a.runs {
		if run.Status == models.RunStatusRunning {
			return true
		}
	}
	return false
}

type tickMsg time.Time

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if !a.logReady {
			a.logView = viewport.New(msg.Width, msg.Height-4)
			a.logReady = true
		} else {
			a.logView.Width = msg.Width
			a.logView.Height = msg.Height - 4
		}
		return a, nil

	case runsLoadedMsg:
		a.runs = msg.runs
		a.err = msg.err
		if a.selectedIdx >= len(a.runs) && a.selectedIdx > 0 {
			a.selectedIdx = len(a.runs) - 1
		}
		return a, nil

	case tickMsg:
		// Refresh the list while something is running
		if a.view == ViewRunList && a.hasRunningRuns() {
			return a, tea.Batch(a.loadRuns, a.tickCmd())
		}
		return a, a.tickCmd()

	case runDeletedMsg:
		a.err = msg.err
		return a, a.loadRuns

	case logLoadedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		if a.logReady {
			a.logView.SetContent(msg.content)
			a.logView.GotoBottom()
		}
		a.view = ViewLog
		return a, nil
	}

	if a.view == ViewLog && a.logReady {
		var cmd tea.Cmd
		a.logView, cmd = a.logView.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.view {
	case ViewRunList:
		return a.handleRunListKey(msg)
	case ViewRunDetail:
		return a.handleRunDetailKey(msg)
	case ViewLog:
		return a.handleLogKey(msg)
	}
	return a, nil
}

func (a *App) handleRunListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "up", "k":
		if a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "down", "j":
		if a.selectedIdx < len(a.runs)-1 {
			a.selectedIdx++
		}

	case "enter":
		if len(a.runs) > 0 && a.selectedIdx < len(a.runs) {
			a.selectedRun = a.runs[a.selectedIdx]
			a.view = ViewRunDetail
		}

	case "l":
		if len(a.runs) > 0 && a.selectedIdx < len(a.runs) {
			a.selectedRun = a.runs[a.selectedIdx]
			return a, a.loadLog(a.selectedRun)
		}

	case "r":
		return a, a.loadRuns

	case "d":
		if len(a.runs) > 0 && a.selectedIdx < len(a.runs) {
			return a, a.deleteRun(a.runs[a.selectedIdx].ID)
		}
	}

	return a, nil
}

func (a *App) handleRunDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		a.view = ViewRunList
		a.selectedRun = nil

	case "ctrl+c":
		return a, tea.Quit

	case "l", "enter":
		if a.selectedRun != nil {
			return a, a.loadLog(a.selectedRun)
		}
	}

	return a, nil
}

func (a *App) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		if a.selectedRun != nil {
			a.view = ViewRunDetail
		} else {
			a.view = ViewRunList
		}
		return a, nil

	case "ctrl+c":
		return a, tea.Quit
	}

	if a.logReady {
		var cmd tea.Cmd
		a.logView, cmd = a.logView.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) View() string {
	switch a.view {
	case ViewRunList:
		return a.viewRunList()
	case ViewRunDetail:
		return a.viewRunDetail()
	case ViewLog:
		return a.viewLog()
	}
	return ""
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	statusRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusComplete = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func (a *App) viewRunList() string {
	s := titleStyle.Render("FundDance") + "\n\n"

	if a.err != nil {
		s += fmt.Sprintf("Error: %v\n", a.err)
	}

	if len(a.runs) == 0 {
		s += "No runs yet. Use 'funddance fetch' to start one.\n"
	} else {
		s += "Recent Fetches\n"
		s += "──────────────\n"

		for i, run := range a.runs {
			line := a.formatRunLine(run)
			isSelected := i == a.selectedIdx
			isRunning := run.Status == models.RunStatusRunning

			if isSelected {
				line = selectedStyle.Render("▶ " + line)
			} else if !isRunning {
				line = "  " + dimStyle.Render(line)
			} else {
				line = "  " + line
			}
			s += line + "\n"
		}
	}

	s += "\n" + helpStyle.Render("[enter] detail  [l] log  [d] delete  [r] refresh  [q] quit")

	return s
}

func (a *App) formatRunLine(run *models.Run) string {
	status := a.formatStatus(run.Status)
	age := a.formatAge(run.StartedAt)
	exit := ""
	if run.ExitCode != nil {
		exit = fmt.Sprintf("exit:%d", *run.ExitCode)
	}
	return fmt.Sprintf("#%-3d %s  %-6s  %-7s %s", run.ID, status, age, exit, truncate(run.CommandLine(), 40))
}

func (a *App) formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%dd", days)
	}
}

func (a *App) formatStatus(status models.RunStatus) string {
	switch status {
	case models.RunStatusRunning:
		return statusRunning.Render("● running")
	case models.RunStatusComplete:
		return statusComplete.Render("✓ done")
	case models.RunStatusFailed:
		return statusFailed.Render("✗ failed")
	default:
		return string(status)
	}
}

func (a *App) viewRunDetail() string {
	if a.selectedRun == nil {
		return "No run selected"
	}

	run := a.selectedRun

	header := fmt.Sprintf("Fetch #%d", run.ID)
	s := titleStyle.Render(header) + "  " + a.formatStatus(run.Status) + "\n\n"

	s += labelStyle.Render("Command:  ") + run.CommandLine() + "\n"
	s += labelStyle.Render("Started:  ") + run.StartedAt.Format("2006-01-02 15:04:05") + "\n"

	if run.CompletedAt != nil {
		s += labelStyle.Render("Finished: ") + run.CompletedAt.Format("2006-01-02 15:04:05")
		s += dimStyle.Render("  ("+formatDuration(run.CompletedAt.Sub(run.StartedAt))+")") + "\n"
	}
	if run.ExitCode != nil {
		if *run.ExitCode == 0 {
			s += labelStyle.Render("Exit:     ") + dimStyle.Render("0") + "\n"
		} else {
			s += labelStyle.Render("Exit:     ") + statusFailed.Render(fmt.Sprintf("%d", *run.ExitCode)) + "\n"
		}
	}
	s += labelStyle.Render("Log:      ") + dimStyle.Render(run.LogPath) + "\n"

	s += "\n" + helpStyle.Render("[l] log  [esc] back  [q] quit")

	return s
}

func (a *App) viewLog() string {
	s := titleStyle.Render("Run Log")
	if a.selectedRun != nil {
		s += dimStyle.Render("  " + a.selectedRun.LogPath)
	}
	s += "\n\n"

	if a.logReady {
		s += a.logView.View() + "\n"
	}

	s += helpStyle.Render("[↑/↓] scroll  [esc] back  [q] quit")

	return s
}

// Messages

type runsLoadedMsg struct {
	runs []*models.Run
	err  error
}

type runDeletedMsg struct {
	runID int64
	err   error
}

type logLoadedMsg struct {
	content string
	err     error
}

// Commands

func (a *App) loadRuns() tea.Msg {
	runs, err := a.store.ListRuns(50)
	return runsLoadedMsg{runs: runs, err: err}
}

func (a *App) deleteRun(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := a.store.DeleteRun(id); err != nil {
			return runDeletedMsg{err: err}
		}
		return runDeletedMsg{runID: id}
	}
}

func (a *App) loadLog(run *models.Run) tea.Cmd {
	return func() tea.Msg {
		content, err := sink.Tail(run.LogPath, logTailLines)
		if err != nil {
			return logLoadedMsg{err: err}
		}
		return logLoadedMsg{content: content}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
