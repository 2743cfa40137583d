package mutation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// commentsAndStrings matches line comments, block comments and quoted literals.
var commentsAndStrings = regexp.MustCompile(`(//[^\n]*)|(/\*[\s\S]*?\*/)|("(\\.|[^"\\])*")|('(\\.|[^'\\])*')|(` + "`" + `(\\.|[^` + "`" + `\\])*` + "`" + `)`)

var emojis = []string{"😀", "😂", "🔥", "🐛", "💩", "💀", "🚀", "💻", "😱", "🤡", "👻", "🤖"}

// EmojiInjector sprinkles emojis at the end of roughly half the comments and
// string literals in the focused file.
type EmojiInjector struct{ oneShot }

func NewEmojiInjector() *EmojiInjector { return &EmojiInjector{} }

func (*EmojiInjector) Name() string        { return "emoji-injector" }
func (*EmojiInjector) Description() string { return "Adds random emojis to comments and strings" }

func (*EmojiInjector) Eligible(ws Workspace) bool { return ws.HasFocus() }

func (e *EmojiInjector) Apply(_ context.Context, env Env) (*Handle, error) {
	rnd := env.rand()
	injected := 0
	_, changed, err := editFocus(env.Workspace, func(content string) string {
		return injectEmojis(content, rnd, &injected)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		env.notify(fmt.Sprintf("Injected %d emojis!!!!!!!!!!!!", injected))
	}
	return nil, nil
}

// injectEmojis inserts an emoji inside the closing quote of a string, at the
// end of a line comment, or just before the */ of a block comment.
func injectEmojis(content string, rnd Rand, injected *int) string {
	matches := commentsAndStrings.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if rnd.Float64() <= 0.5 {
			continue
		}
		at := m[1] - 1
		switch {
		case strings.HasPrefix(content[m[0]:], "//"):
			at = m[1]
		case strings.HasPrefix(content[m[0]:], "/*"):
			at = m[1] - len("*/")
		}
		b.WriteString(content[last:at])
		b.WriteString(emojis[rnd.IntN(len(emojis))])
		last = at
		*injected++
	}
	b.WriteString(content[last:])
	return b.String()
}
