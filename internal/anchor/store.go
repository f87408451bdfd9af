package anchor

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("transfer not found")
	ErrDuplicateID   = errors.New("transfer id already exists")
	ErrDuplicateTxID = errors.New("transaction id already bound to another transfer")
	ErrTokenMismatch = errors.New("interactive token does not match")
	ErrTokenConsumed = errors.New("interactive token already consumed")
	ErrTokenExpired  = errors.New("interactive token expired")
)

// ListFilters narrows ListByAccount results. Filters apply in order: asset
// code, kind, not-older-than; Limit <= 0 is ignored.
type ListFilters struct {
	AssetCode    string
	Kind         TransferKind
	NotOlderThan time.Time
	Limit        int
}

// TransferUpdate is a partial update applied by TransferStore.Update. Nil
// fields are left untouched; UpdatedAt is always refreshed and the ID is
// preserved.
type TransferUpdate struct {
	Status           *TransferStatus
	Amount           *string
	Dest             *string
	DestExtra        *string
	StellarTxID      *string
	ExternalTxID     *string
	Message          *string
	InteractiveToken *InteractiveToken
	CompletedAt      *time.Time
	ClearCompletedAt bool
	Metadata         map[string]any
}

// TransferStore is the storage port for transfer persistence. The default
// implementation is an in-memory map; production deployments substitute a
// persistent store satisfying the same contract, including listing order,
// the secondary indices, and safety under concurrent callers.
type TransferStore interface {
	Create(ctx context.Context, t *Transfer) error
	GetByID(ctx context.Context, id string) (*Transfer, error)
	GetByInteractiveToken(ctx context.Context, token string) (*Transfer, error)
	GetByStellarTxID(ctx context.Context, stellarTxID string) (*Transfer, error)
	GetByExternalTxID(ctx context.Context, externalTxID string) (*Transfer, error)
	ListByAccount(ctx context.Context, account string, filters ListFilters) ([]*Transfer, error)
	// Update rejects with ErrDuplicateTxID when the update would bind a
	// stellar or external transaction id already carried by another transfer.
	Update(ctx context.Context, id string, update TransferUpdate) (*Transfer, error)
	// CompleteInteractive atomically checks the transfer's interactive token
	// against the supplied value, marks it consumed, and applies advance to
	// the transfer under the same guard. A consumed or expired token fails
	// without observing a half-applied state.
	CompleteInteractive(ctx context.Context, id, token string, advance func(*Transfer)) (*Transfer, error)
	Delete(ctx context.Context, id string) error
}
