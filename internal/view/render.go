package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"evcount/internal/dates"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	nameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Width(32)
	dateStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(17)
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(14)
	labelStyle    = lipgloss.NewStyle().Bold(true).Align(lipgloss.Right).Width(16)
	todayStyle    = labelStyle.Foreground(lipgloss.Color("212"))
	upcomingStyle = labelStyle.Foreground(lipgloss.Color("63"))
	pastStyle     = labelStyle.Foreground(lipgloss.Color("241"))
)

// RenderList writes items as a terminal table.
func RenderList(w io.Writer, items []Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, emptyStyle.Render("no events"))
		return err
	}

	rows := make([]string, 0, len(items)+1)
	rows = append(rows, headerStyle.Render(fmt.Sprintf("%-35s%-17s%-14s%16s", "EVENT", "DATE", "CATEGORY", "COUNTDOWN")))
	for _, it := range items {
		when := it.Date.String()
		if it.Time != "" {
			when += " " + it.Time
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			it.Icon.Glyph()+" ",
			nameStyle.Render(truncate(it.Name, 31)),
			dateStyle.Render(when),
			categoryStyle.Render(truncate(it.Category, 13)),
			statusStyle(it.Status).Render(it.Label),
		))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, rows...))
	return err
}

func statusStyle(s dates.Status) lipgloss.Style {
	switch s {
	case dates.StatusToday:
		return todayStyle
	case dates.StatusUpcoming:
		return upcomingStyle
	default:
		return pastStyle
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
