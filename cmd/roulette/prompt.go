package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"roulette/pkg/engine"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// promptChoices are shown left to right.
var promptChoices = []struct {
	label  string
	choice engine.Choice
}{
	{"Undo Mutation", engine.ChoiceUndo},
	{"Accept Fate", engine.ChoiceAccept},
}

type tickMsg time.Time

// oneShotPromptTimeout dismisses the prompt for edits that never expire, so
// an unattended watch keeps reacting to commits.
const oneShotPromptTimeout = time.Minute

// promptModel is the bubbletea model for the Undo / Accept Fate prompt.
type promptModel struct {
	offer    engine.Offer
	styles   Styles
	cursor   int
	choice   engine.Choice
	deadline time.Time
	expires  bool // the deadline is the mutation's own expiry
	now      time.Time
	done     bool
}

func newPromptModel(o engine.Offer, styles Styles, now time.Time) promptModel {
	m := promptModel{offer: o, styles: styles, now: now}
	if o.Duration > 0 {
		m.deadline = now.Add(o.Duration)
		m.expires = true
	} else {
		m.deadline = now.Add(oneShotPromptTimeout)
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m promptModel) Init() tea.Cmd {
	return tick()
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.now = time.Time(msg)
		if !m.now.Before(m.deadline) {
			m.done = true
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h", "shift+tab":
			m.cursor = (m.cursor + len(promptChoices) - 1) % len(promptChoices)
		case "right", "l", "tab":
			m.cursor = (m.cursor + 1) % len(promptChoices)
		case "u":
			return m.pick(engine.ChoiceUndo)
		case "a":
			return m.pick(engine.ChoiceAccept)
		case "enter", " ":
			return m.pick(promptChoices[m.cursor].choice)
		case "esc", "q", "ctrl+c":
			return m.pick(engine.ChoiceNone)
		}
	}
	return m, nil
}

func (m promptModel) pick(c engine.Choice) (tea.Model, tea.Cmd) {
	m.choice = c
	m.done = true
	return m, tea.Quit
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.styles.Title.Render("Commit roulette hit:"), m.styles.Value.Render(m.offer.Mutation))
	if m.offer.Description != "" {
		b.WriteString(m.styles.Muted.Render(m.offer.Description))
		b.WriteString("\n")
	}
	left := m.deadline.Sub(m.now).Round(time.Second)
	if m.expires {
		fmt.Fprintf(&b, "%s\n", m.styles.Warn.Render(fmt.Sprintf("Reverts itself in %s", left)))
	} else {
		fmt.Fprintf(&b, "%s\n", m.styles.Muted.Render(fmt.Sprintf("Stays until undone. Prompt closes in %s", left)))
	}
	b.WriteString("\n")

	opts := make([]string, 0, len(promptChoices))
	for i, c := range promptChoices {
		style := m.styles.Option
		if i == m.cursor {
			style = m.styles.Chosen
		}
		opts = append(opts, style.Render(c.label))
	}
	b.WriteString(strings.Join(opts, "  "))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("←/→ move · enter select · u undo · a accept · esc dismiss"))
	return m.styles.Box.Render(b.String()) + "\n"
}

// teaPrompter runs the prompt as a bubbletea program on the terminal.
type teaPrompter struct {
	in     io.Reader
	out    io.Writer
	styles Styles
}

// Offer implements engine.Prompter. A cancelled ctx (the mutation expired
// or the daemon is stopping) dismisses the prompt.
func (p teaPrompter) Offer(ctx context.Context, o engine.Offer) engine.Choice {
	prog := tea.NewProgram(newPromptModel(o, p.styles, time.Now()),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		return engine.ChoiceNone
	}
	if m, ok := final.(promptModel); ok {
		return m.choice
	}
	return engine.ChoiceNone
}

// choosePrompter returns the interactive prompt when both stdin and stderr
// are terminals.
func choosePrompter(out io.Writer, styles Styles) engine.Prompter {
	if !isTerminal(os.Stdin) || !isTerminal(out) {
		return engine.NopPrompter{}
	}
	return teaPrompter{in: os.Stdin, out: out, styles: styles}
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
