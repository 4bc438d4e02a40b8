// Package ui renders the waiter's floor, table list and notifications for a
// terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yeremiapane/restaurant-waiter/models"
)

const (
	LabelAvailable = "AVAILABLE"
	LabelYours     = "YOURS"
	LabelOccupied  = "OCCUPIED"

	cardWidth = 14
)

type Theme struct {
	Free     lipgloss.Style
	Yours    lipgloss.Style
	Occupied lipgloss.Style
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Ready    lipgloss.Style
	Error    lipgloss.Style
}

func DefaultTheme() Theme {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(cardWidth).
		Align(lipgloss.Center)
	return Theme{
		Free:     card.BorderForeground(lipgloss.Color("#22C55E")),
		Yours:    card.BorderForeground(lipgloss.Color("#A62858")),
		Occupied: card.BorderForeground(lipgloss.Color("#d0d0d0")).Faint(true),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A62858")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
		Ready:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E")),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
	}
}

// Label is the state a table shows to userID.
func Label(t models.Table, userID uint) string {
	switch {
	case t.IsFree():
		return LabelAvailable
	case t.OwnedBy(userID):
		return LabelYours
	default:
		return LabelOccupied
	}
}

type Renderer struct {
	theme  Theme
	userID uint
	width  int
}

// NewRenderer creates a renderer for userID. width is the terminal width
// and decides how many cards fit on one row.
func NewRenderer(theme Theme, userID uint, width int) Renderer {
	if width <= 0 {
		width = 80
	}
	return Renderer{theme: theme, userID: userID, width: width}
}

func (r Renderer) card(t models.Table) string {
	label := Label(t, r.userID)
	style := r.theme.Free
	switch label {
	case LabelYours:
		style = r.theme.Yours
	case LabelOccupied:
		style = r.theme.Occupied
	}
	body := fmt.Sprintf("Table %s\n%s\n%d seats", t.Number, label, t.Capacity)
	return style.Render(body)
}

// Floor renders every table as a card, wrapped to the terminal width.
func (r Renderer) Floor(tables []models.Table) string {
	if len(tables) == 0 {
		return r.theme.Muted.Render("No tables on the floor yet.")
	}

	perRow := r.width / (cardWidth + 2)
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	for start := 0; start < len(tables); start += perRow {
		end := start + perRow
		if end > len(tables) {
			end = len(tables)
		}
		cards := make([]string, 0, end-start)
		for _, t := range tables[start:end] {
			cards = append(cards, r.card(t))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Mine lists the waiter's tables with the item count of the active order.
func (r Renderer) Mine(tables []models.Table) string {
	if len(tables) == 0 {
		return r.theme.Muted.Render("You have no tables. Claim one from the floor view.")
	}
	var b strings.Builder
	for _, t := range tables {
		items := t.ActiveItemCount()
		noun := "items"
		if items == 1 {
			noun = "item"
		}
		fmt.Fprintf(&b, "  Table %-6s %d seats  %d %s\n", t.Number, t.Capacity, items, noun)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Notifications renders the panel, oldest first, with the id prefix used by
// the dismiss command.
func (r Renderer) Notifications(items []models.Notification) string {
	if len(items) == 0 {
		return r.theme.Muted.Render("No notifications.")
	}
	var b strings.Builder
	for _, n := range items {
		style := r.theme.Ready
		if n.Category == models.CategoryError {
			style = r.theme.Error
		}
		fmt.Fprintf(&b, "  [%s] %s  %s  %s\n",
			ShortID(n.ID),
			style.Render(n.Title),
			n.Message,
			r.theme.Muted.Render(n.CreatedAt.Format("15:04:05")))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Screen renders the whole terminal frame for the active view.
func (r Renderer) Screen(session models.Session, view string, tables []models.Table, notes []models.Notification, status string) string {
	header := r.theme.Title.Render(fmt.Sprintf("Floor · %s (%s)", session.Name, session.Role))

	var body, title string
	if view == "mine" {
		title = "My tables"
		body = r.Mine(tables)
	} else {
		title = "Floor"
		body = r.Floor(tables)
	}

	parts := []string{
		header,
		"",
		r.theme.Title.Render(title),
		body,
		"",
		r.theme.Title.Render(fmt.Sprintf("Notifications (%d)", len(notes))),
		r.Notifications(notes),
	}
	if status != "" {
		parts = append(parts, "", r.theme.Muted.Render(status))
	}
	parts = append(parts, "", r.theme.Muted.Render("claim N · release N · dismiss ID · view floor|mine · refresh · quit"))
	return strings.Join(parts, "\n")
}

// ShortID is the first eight characters of a notification id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
