package main

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of roulette's terminal output.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("13"),  // Magenta
		Success: lipgloss.Color("10"),  // Green
		Warning: lipgloss.Color("11"),  // Yellow
		Error:   lipgloss.Color("9"),   // Red
		Muted:   lipgloss.Color("240"), // Gray
	}
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Good    lipgloss.Style
	Bad     lipgloss.Style
	Warn    lipgloss.Style
	Muted   lipgloss.Style
	Notice  lipgloss.Style
	Box     lipgloss.Style
	Key     lipgloss.Style
	Chosen  lipgloss.Style
	Option  lipgloss.Style
}

// NewStyles builds Styles for t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   lipgloss.NewStyle().Foreground(t.Muted).Width(16),
		Value:   lipgloss.NewStyle().Bold(true),
		Good:    lipgloss.NewStyle().Foreground(t.Success),
		Bad:     lipgloss.NewStyle().Foreground(t.Error),
		Warn:    lipgloss.NewStyle().Foreground(t.Warning),
		Muted:   lipgloss.NewStyle().Foreground(t.Muted),
		Notice:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
		Key:     lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Chosen:  lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1),
		Option:  lipgloss.NewStyle().Padding(0, 1),
	}
}

// statusStyle colors a ledger status.
func (s Styles) statusStyle(status string) lipgloss.Style {
	switch status {
	case "undone":
		return s.Good
	case "accepted":
		return s.Bad
	case "expired":
		return s.Warn
	default:
		return s.Value
	}
}
