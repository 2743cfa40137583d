package mutation

import (
	"context"
	"strings"
)

const tabWidth = 4

// IndentSwitcher converts the focused file's indentation from spaces to tabs,
// or from tabs to spaces, whichever it is not using now.
type IndentSwitcher struct{ oneShot }

func NewIndentSwitcher() *IndentSwitcher { return &IndentSwitcher{} }

func (*IndentSwitcher) Name() string        { return "indent-switcher" }
func (*IndentSwitcher) Description() string { return "Converts tabs to spaces or vice versa" }

func (*IndentSwitcher) Eligible(ws Workspace) bool { return ws.HasFocus() }

func (s *IndentSwitcher) Apply(_ context.Context, env Env) (*Handle, error) {
	var toTabs bool
	_, changed, err := editFocus(env.Workspace, func(content string) string {
		toTabs = usesSpaces(content)
		if toTabs {
			return reindent(content, spacesToTabs)
		}
		return reindent(content, tabsToSpaces)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if toTabs {
			env.notify("Converted to TABS!!!!!")
		} else {
			env.notify("Converted to SPACES!!!!!")
		}
	}
	return nil, nil
}

// usesSpaces reports whether more lines are indented with spaces than with tabs.
func usesSpaces(content string) bool {
	spaces, tabs := 0, 0
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, " "):
			spaces++
		case strings.HasPrefix(line, "\t"):
			tabs++
		}
	}
	return spaces >= tabs
}

func reindent(content string, convert func(string) string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		body := strings.TrimLeft(line, " \t")
		lead := line[:len(line)-len(body)]
		lines[i] = convert(lead) + body
	}
	return strings.Join(lines, "\n")
}

func spacesToTabs(lead string) string {
	width := 0
	for _, r := range lead {
		if r == '\t' {
			width += tabWidth
		} else {
			width++
		}
	}
	return strings.Repeat("\t", width/tabWidth) + strings.Repeat(" ", width%tabWidth)
}

func tabsToSpaces(lead string) string {
	return strings.ReplaceAll(lead, "\t", strings.Repeat(" ", tabWidth))
}
