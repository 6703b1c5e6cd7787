package dispatch

import "context"

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed is a Confirmer with a fixed answer, for surfaces where the
// operator already answered before the call (a query parameter, a flag).
type Confirmed bool

func (c Confirmed) Confirm(context.Context, string) bool {
	return bool(c)
}
