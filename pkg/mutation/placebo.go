package mutation

import "context"

// Placebo does nothing. The anticipation is the mutation.
type Placebo struct{ oneShot }

func NewPlacebo() *Placebo { return &Placebo{} }

func (*Placebo) Name() string            { return "placebo" }
func (*Placebo) Description() string     { return "Does absolutely nothing. Or does it?" }
func (*Placebo) Eligible(Workspace) bool { return true }

func (*Placebo) Apply(_ context.Context, env Env) (*Handle, error) {
	env.notify("Something has changed. Somewhere.")
	return nil, nil
}
