package mutation

import (
	"context"
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`\b[a-z][a-zA-Z0-9_]*\b`)

// keywords are never reversed so the file keeps its shape.
var keywords = map[string]bool{}

func init() {
	for _, kw := range []string{
		"function", "const", "let", "var", "class", "if", "else", "return",
		"import", "export", "from", "async", "await", "try", "catch", "finally",
		"for", "while", "do", "switch", "case", "break", "continue", "default",
		"interface", "type", "enum", "namespace", "module", "public", "private",
		"protected", "static", "readonly", "implements", "extends", "new", "this",
		"super", "true", "false", "null", "undefined", "void", "any", "number",
		"string", "boolean", "object", "symbol", "bigint", "never", "unknown",
		// Go
		"package", "func", "go", "defer", "chan", "map", "range", "select",
		"struct", "goto", "fallthrough", "nil", "iota",
		// Python
		"def", "elif", "pass", "lambda", "with", "as", "in", "is", "not",
		"and", "or", "yield", "raise", "global", "nonlocal", "del",
	} {
		keywords[kw] = true
	}
}

// VariableReverser reverses every lower-camel identifier in the focused file.
type VariableReverser struct{ oneShot }

func NewVariableReverser() *VariableReverser { return &VariableReverser{} }

func (*VariableReverser) Name() string        { return "variable-reverser" }
func (*VariableReverser) Description() string { return "Reverses all variable names" }

func (*VariableReverser) Eligible(ws Workspace) bool {
	return ws.HasFocus() && languageOf(ws.Focus) != ""
}

func (r *VariableReverser) Apply(_ context.Context, env Env) (*Handle, error) {
	if !r.Eligible(env.Workspace) {
		return nil, ErrNotEligible
	}
	n := 0
	_, changed, err := editFocus(env.Workspace, func(s string) string {
		return identifierPattern.ReplaceAllStringFunc(s, func(word string) string {
			if keywords[word] {
				return word
			}
			n++
			return reverseString(word)
		})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		env.notify(fmt.Sprintf("Reversed %d identifiers in %s. Good luck.", n, env.Workspace.Focus))
	}
	return nil, nil
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
