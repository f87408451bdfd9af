package anchor

import "context"

// DepositInstructions overrides fields of a deposit initiation response.
type DepositInstructions struct {
	How       string
	ETA       int
	ExtraInfo map[string]any
}

// WithdrawalInstructions overrides fields of a withdrawal initiation
// response.
type WithdrawalInstructions struct {
	AccountID string
	Memo      string
	MemoType  string
	ETA       int
}

// HookError marks an error as originating from an operator hook, so the
// HTTP layer can apply the hook propagation policy instead of treating it
// as an internal failure.
type HookError struct {
	Err error
}

func (e *HookError) Error() string {
	return e.Err.Error()
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// Hooks are the operator-supplied callbacks invoked by the engine. All hooks
// are optional; a nil hook yields the documented default behavior. Hook
// errors are treated as untrusted: handlers pass structured errors through
// and wrap anything else with the message preserved.
type Hooks struct {
	// OnDeposit may override the instructions returned for a deposit.
	OnDeposit func(ctx context.Context, t *Transfer) (*DepositInstructions, error)
	// OnWithdraw may override the instructions returned for a withdrawal.
	OnWithdraw func(ctx context.Context, t *Transfer) (*WithdrawalInstructions, error)
	// OnInteractiveComplete fires after an interactive flow completes and
	// the transfer has advanced.
	OnInteractiveComplete func(ctx context.Context, t *Transfer) error
	// RenderMoreInfo renders the operator's status page for a transfer. A
	// nil hook falls back to the default minimal page.
	RenderMoreInfo func(ctx context.Context, t *Transfer) (string, error)
}
