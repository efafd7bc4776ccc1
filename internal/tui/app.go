// Package tui provides the interactive terminal board for the tracker.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	activePanelStyle = panelStyle.Copy().
				BorderForeground(primaryColor)

	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
)

// RefreshInterval is how often the board polls the daemon.
const RefreshInterval = 5 * time.Second

const (
	panePrioritized = iota
	paneHistory
)

// App is the main TUI application model.
type App struct {
	client       *Client
	panes        [2]list.Model
	active       int
	width        int
	height       int
	message      string
	daemonOnline bool
}

// New creates a new TUI application talking to the daemon at apiAddr.
func New(apiAddr string, timeout time.Duration) *App {
	return &App{
		client: NewClient(apiAddr, timeout),
		panes: [2]list.Model{
			newPane("Prioritized"),
			newPane("History"),
		},
	}
}

func newPane(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 40, 20)
	l.Title = title
	l.Styles.Title = listTitleStyle
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refresh(), a.tickCmd())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "tab":
			a.active = (a.active + 1) % len(a.panes)
			return a, nil
		case "r":
			return a, a.refresh()
		case "enter":
			if row, ok := a.panes[a.active].SelectedItem().(Row); ok {
				return a, a.open(row)
			}
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case boardLoadedMsg:
		a.daemonOnline = true
		a.setRows(panePrioritized, msg.prioritized)
		a.setRows(paneHistory, msg.history)
		return a, nil

	case itemOpenedMsg:
		a.message = fmt.Sprintf("#%d %s: %s", msg.row.Item.ID, msg.row.Item.Name, msg.row.Item.Description)
		return a, a.refresh()

	case tickMsg:
		return a, tea.Batch(a.refresh(), a.tickCmd())

	case errMsg:
		a.daemonOnline = false
		a.message = "Error: " + msg.err.Error()
		return a, nil
	}

	var cmd tea.Cmd
	a.panes[a.active], cmd = a.panes[a.active].Update(msg)
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemon := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemon = offlineStyle.Render("○ DAEMON")
	}
	b.WriteString(titleStyle.Render("Tracker") + "  " + daemon + "\n")

	views := make([]string, len(a.panes))
	for i := range a.panes {
		style := panelStyle
		if i == a.active {
			style = activePanelStyle
		}
		views[i] = style.Render(a.panes[i].View())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, views...) + "\n")

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(msgStyle.Render(a.message))
	}
	b.WriteString("\n")

	status := fmt.Sprintf(" Scheduled: %d | Viewed: %d | ↑↓:nav | Tab:switch | Enter:open | r:refresh | q:quit",
		len(a.panes[panePrioritized].Items()), len(a.panes[paneHistory].Items()))
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) resize() {
	// Two bordered panes side by side, plus header, message and status bar.
	w := a.width/2 - 4
	h := a.height - 7
	if w < 20 {
		w = 20
	}
	if h < 5 {
		h = 5
	}
	for i := range a.panes {
		a.panes[i].SetSize(w, h)
	}
}

func (a *App) setRows(pane int, rows []Row) {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = r
	}
	a.panes[pane].SetItems(items)
}

// --- Commands ---

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		prioritized, err := a.client.Prioritized()
		if err != nil {
			return errMsg{err}
		}
		history, err := a.client.History()
		if err != nil {
			return errMsg{err}
		}
		return boardLoadedMsg{prioritized: toRows(prioritized), history: toRows(history)}
	}
}

func (a *App) open(row Row) tea.Cmd {
	return func() tea.Msg {
		item, err := a.client.Item(row.Item.Type, row.Item.ID)
		if err != nil {
			return errMsg{err}
		}
		return itemOpenedMsg{row: Row{*item}}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Messages
type boardLoadedMsg struct {
	prioritized []Row
	history     []Row
}

type itemOpenedMsg struct {
	row Row
}

type tickMsg time.Time

type errMsg struct {
	err error
}
