package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harvestpath/harvestpath/internal/infrastructure/config"
	"github.com/harvestpath/harvestpath/internal/infrastructure/watch"
	"github.com/harvestpath/harvestpath/internal/infrastructure/wiring"
	"github.com/harvestpath/harvestpath/pkg/application"
	"github.com/harvestpath/harvestpath/pkg/storage"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard of your journeys",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("HARVESTPATH_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		p := tea.NewProgram(newDashboardModel(cmd.Context(), services, user))

		dir, docs := dashboardWatchTarget(services.Workspace, user)
		w, err := watch.NewDirWatcher(dir, watch.NewDocumentFilter(docs...), watch.DefaultDebounce, func(watch.Change) {
			p.Send(refreshMsg{})
		})
		if err != nil {
			return fmt.Errorf("failed to watch journeys: %w", err)
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() { _ = w.Run(ctx) }()

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

// dashboardWatchTarget names the directory and documents whose changes refresh the dashboard.
func dashboardWatchTarget(ws *wiring.Workspace, user string) (string, []string) {
	if ws.Config.Storage.Backend == config.BackendSQLite {
		return filepath.Dir(ws.Config.DatabasePath(ws.Root)), []string{filepath.Base(ws.Config.DatabasePath(ws.Root))}
	}
	return filepath.Join(storage.DataPath(ws.Root), storage.UsersDir, user), []string{storage.JourneysFile, storage.LedgerFile}
}

type refreshMsg struct{}

type dashboardModel struct {
	ctx       context.Context
	journeys  *application.JourneyService
	user      string
	table     table.Model
	overviews []*application.Overview
	err       error
}

func newDashboardModel(ctx context.Context, services *wiring.AppServices, user string) dashboardModel {
	columns := []table.Column{
		{Title: "Crop", Width: 22},
		{Title: "Status", Width: 10},
		{Title: "Done", Width: 6},
		{Title: "Health", Width: 6},
		{Title: "ID", Width: 36},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	m := dashboardModel{ctx: ctx, journeys: services.Journeys, user: user, table: t}
	return m.reload()
}

// reload re-reads the user's journeys and keeps the cursor in range.
func (m dashboardModel) reload() dashboardModel {
	list, err := m.journeys.ListJourneys(m.ctx, m.user)
	if err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m.overviews = make([]*application.Overview, 0, len(list))
	rows := make([]table.Row, 0, len(list))
	for i := range list {
		o, err := m.journeys.Overview(m.ctx, m.user, list[i].ID)
		if err != nil {
			m.err = err
			return m
		}
		m.overviews = append(m.overviews, o)
		rows = append(rows, table.Row{
			o.Journey.CropName,
			string(o.Journey.Status),
			fmt.Sprintf("%d%%", o.CompletionPercent),
			fmt.Sprintf("%d", o.Journey.HealthScore),
			o.Journey.ID,
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
	return m
}

func (m dashboardModel) selected() *application.Overview {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.overviews) {
		return nil
	}
	return m.overviews[i]
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case refreshMsg:
		return m.reload(), nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m.reload(), nil
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m dashboardModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error loading dashboard: %v\nPress q to quit.", m.err)
	}

	header := headerStyle.Render(fmt.Sprintf("HarvestPath · %s", m.user))

	if len(m.overviews) == 0 {
		return baseStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			"\nNo journeys yet. Start one with 'harvestpath journey start <crop>'.",
			"\n[q] Quit",
		)) + "\n"
	}

	detail := ""
	if o := m.selected(); o != nil {
		detail = fmt.Sprintf("\nBalance: %d points, %d eco points\n\n%s", o.Balance.Points, o.Balance.EcoPoints, renderSteps(o))
	}

	return baseStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		"\nJourneys:",
		m.table.View(),
		detail,
		"[q] Quit  [r] Refresh  [Up/Down] Navigate",
	)) + "\n"
}
