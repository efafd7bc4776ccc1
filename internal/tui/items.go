package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/tracker/internal/api"
	"github.com/fentz26/tracker/internal/models"
)

var (
	statusNew        = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	kindStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Row implements list.Item for a tracker item.
type Row struct {
	Item api.ItemJSON
}

func (r Row) FilterValue() string { return r.Item.Name }
func (r Row) Title() string       { return fmt.Sprintf("#%d %s", r.Item.ID, r.Item.Name) }
func (r Row) Description() string {
	desc := formatStatus(r.Item.Status) + " " + kindStyle.Render(string(r.Item.Type))
	if r.Item.StartTime != nil && r.Item.EndTime != nil {
		desc += fmt.Sprintf(" • %s → %s", *r.Item.StartTime, *r.Item.EndTime)
	}
	return desc
}

func formatStatus(status models.Status) string {
	switch status {
	case models.StatusNew:
		return statusNew.Render("● new")
	case models.StatusInProgress:
		return statusInProgress.Render("● in progress")
	case models.StatusDone:
		return statusDone.Render("● done")
	default:
		return string(status)
	}
}

func toRows(items []api.ItemJSON) []Row {
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = Row{it}
	}
	return rows
}
