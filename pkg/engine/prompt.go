package engine

import (
	"context"
	"time"
)

// Choice is the user's answer to an Offer.
type Choice int

const (
	ChoiceNone   Choice = iota // dismissed, timed out or no terminal
	ChoiceUndo                 // "Undo Mutation"
	ChoiceAccept               // "Accept Fate"
)

func (c Choice) String() string {
	switch c {
	case ChoiceUndo:
		return "undo"
	case ChoiceAccept:
		return "accept"
	default:
		return "none"
	}
}

// Offer is shown to the user right after a mutation is applied.
type Offer struct {
	EventID     string
	Mutation    string
	Description string
	SnapshotID  string
	Duration    time.Duration // zero for one-shot edits
}

// Prompter presents an Offer and blocks until the user chooses or ctx is
// done. ctx is cancelled when the mutation expires.
type Prompter interface {
	Offer(ctx context.Context, o Offer) Choice
}

// NopPrompter never asks. Used when no terminal is attached.
type NopPrompter struct{}

func (NopPrompter) Offer(context.Context, Offer) Choice { return ChoiceNone }

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, o Offer) Choice

func (f PrompterFunc) Offer(ctx context.Context, o Offer) Choice { return f(ctx, o) }
