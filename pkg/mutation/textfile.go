package mutation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// languages maps file extensions to a language id and its line comment prefix.
var languages = map[string]struct {
	id      string
	comment string
}{
	".go":   {"go", "//"},
	".ts":   {"typescript", "//"},
	".tsx":  {"typescript", "//"},
	".js":   {"javascript", "//"},
	".jsx":  {"javascript", "//"},
	".mjs":  {"javascript", "//"},
	".py":   {"python", "#"},
	".java": {"java", "//"},
	".cs":   {"csharp", "//"},
	".cpp":  {"cpp", "//"},
	".cc":   {"cpp", "//"},
	".hpp":  {"cpp", "//"},
	".c":    {"c", "//"},
	".h":    {"c", "//"},
	".rb":   {"ruby", "#"},
	".sh":   {"shell", "#"},
	".rs":   {"rust", "//"},
}

// languageOf returns the language id for path, or "" when unknown.
func languageOf(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))].id
}

// commentPrefix returns the line comment prefix for path.
func commentPrefix(path string) string {
	if l, ok := languages[strings.ToLower(filepath.Ext(path))]; ok {
		return l.comment
	}
	return "//"
}

// textFile is a document loaded for editing.
type textFile struct {
	path    string
	mode    os.FileMode
	content string
}

func loadText(path string) (textFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return textFile{}, err
	}
	if !info.Mode().IsRegular() {
		return textFile{}, fmt.Errorf("%s is not a regular file", path)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is a workspace document
	if err != nil {
		return textFile{}, err
	}
	return textFile{path: path, mode: info.Mode().Perm(), content: string(data)}, nil
}

func (f textFile) write(content string) error {
	mode := f.mode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(f.path, []byte(content), mode); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// editFocus applies edit to the focused document and writes it back when
// the content changed. It reports whether the file was modified.
func editFocus(ws Workspace, edit func(string) string) (textFile, bool, error) {
	if !ws.HasFocus() {
		return textFile{}, false, ErrNotEligible
	}
	f, err := loadText(ws.Abs(ws.Focus))
	if err != nil {
		return textFile{}, false, fmt.Errorf("load %s: %w", ws.Focus, err)
	}
	next := edit(f.content)
	if next == f.content {
		return f, false, nil
	}
	if err := f.write(next); err != nil {
		return f, false, err
	}
	return f, true, nil
}
