package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

const noQuotesMessage = "No quotes available for this category."

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	quoteStyle    = lipgloss.NewStyle().Italic(true).PaddingLeft(2).BorderStyle(lipgloss.NormalBorder()).BorderLeft(true)
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).PaddingLeft(3)
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Italic(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	labelStyle    = lipgloss.NewStyle().Bold(true)

	statusStyles = map[ports.StatusLevel]lipgloss.Style{
		ports.StatusInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7")),
		ports.StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
		ports.StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
	}
)

const (
	browseHelp = "n next • f filter • a add • s sync • e export • i import • q quit"
	addHelp    = "tab switch field • enter confirm • esc cancel"
	pathHelp   = "enter confirm • esc cancel"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Quotes"))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render("filter: " + Sanitize(m.filter)))
	b.WriteString("\n\n")

	if m.hasQuote {
		b.WriteString(quoteStyle.Render(Sanitize(m.quote.Text)))
		b.WriteString("\n")
		b.WriteString(categoryStyle.Render("- " + Sanitize(m.quote.Category)))
	} else {
		b.WriteString(emptyStyle.Render(noQuotesMessage))
	}

	b.WriteString("\n\n")

	help := browseHelp

	switch m.mode {
	case modeAdd:
		b.WriteString(labelStyle.Render("Quote:    ") + m.text.View() + "\n")
		b.WriteString(labelStyle.Render("Category: ") + m.category.View() + "\n\n")

		help = addHelp
	case modeExport:
		b.WriteString(labelStyle.Render("Export to: ") + m.path.View() + "\n\n")

		help = pathHelp
	case modeImport:
		b.WriteString(labelStyle.Render("Import from: ") + m.path.View() + "\n\n")

		help = pathHelp
	}

	if m.statusLine != "" {
		style, ok := statusStyles[m.statusLevel]
		if !ok {
			style = statusStyles[ports.StatusInfo]
		}

		b.WriteString(style.Render(Sanitize(m.statusLine)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")

	return b.String()
}
