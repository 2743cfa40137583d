package main

import (
	"fmt"
	"strconv"
	"strings"

	"roulette/pkg/ledger"
	"roulette/pkg/protocol"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// renderStats renders the summary block followed by the per-mutation table.
func renderStats(s ledger.Stats, styles Styles) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Commit roulette stats"))
	b.WriteString("\n\n")

	if s.Total == 0 {
		b.WriteString(styles.Muted.Render("No mutations yet. Keep committing."))
		b.WriteString("\n")
		return b.String()
	}

	line := func(label, value string, style lipgloss.Style) {
		fmt.Fprintf(&b, "%s%s\n", styles.Label.Render(label), style.Render(value))
	}
	line("Mutations", strconv.Itoa(s.Total), styles.Value)
	line("Undone", strconv.Itoa(s.ByStatus[string(protocol.StatusUndone)]), styles.Good)
	line("Fate accepted", strconv.Itoa(s.ByStatus[string(protocol.StatusAccepted)]), styles.Bad)
	line("Expired", strconv.Itoa(s.ByStatus[string(protocol.StatusExpired)]), styles.Warn)
	line("Still applied", strconv.Itoa(s.ByStatus[string(protocol.StatusApplied)]), styles.Value)
	line("Undo rate", fmt.Sprintf("%.0f%%", s.UndoRate()*100), styles.Value)
	b.WriteString("\n")

	b.WriteString(mutationTable(s.Mutations).View())
	b.WriteString("\n")
	return b.String()
}

// mutationTable is a non-interactive bubbles table of per-mutation counts.
func mutationTable(counts []ledger.MutationCount) table.Model {
	width := len("Mutation")
	for _, c := range counts {
		width = max(width, len(c.Mutation))
	}
	cols := []table.Column{
		{Title: "Mutation", Width: width},
		{Title: "Total", Width: 6},
		{Title: "Undone", Width: 7},
		{Title: "Expired", Width: 8},
		{Title: "Accepted", Width: 9},
	}
	rows := make([]table.Row, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, table.Row{
			c.Mutation,
			strconv.Itoa(c.Total),
			strconv.Itoa(c.Undone),
			strconv.Itoa(c.Expired),
			strconv.Itoa(c.Accepted),
		})
	}

	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	st.Selected = lipgloss.NewStyle()

	return table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithFocused(false),
		table.WithStyles(st),
	)
}
