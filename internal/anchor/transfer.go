package anchor

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TransferKind is the direction of a transfer.
type TransferKind string

const (
	KindDeposit    TransferKind = "deposit"
	KindWithdrawal TransferKind = "withdrawal"
)

// TransferMode distinguishes SEP-24 interactive transfers from SEP-6
// programmatic ones.
type TransferMode string

const (
	ModeInteractive  TransferMode = "interactive"
	ModeProgrammatic TransferMode = "programmatic"
)

// TransferStatus is a SEP-24/SEP-6 transaction status wire string.
type TransferStatus string

const (
	StatusIncomplete               TransferStatus = "incomplete"
	StatusPendingUserTransferStart TransferStatus = "pending_user_transfer_start"
	StatusPendingAnchor            TransferStatus = "pending_anchor"
	StatusPendingExternal          TransferStatus = "pending_external"
	StatusPendingUser              TransferStatus = "pending_user"
	StatusCompleted                TransferStatus = "completed"
	StatusError                    TransferStatus = "error"
	StatusRefunded                 TransferStatus = "refunded"
)

// IsTerminal reports whether the status admits no further transitions.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusRefunded:
		return true
	}
	return false
}

const interactiveTokenTTL = 15 * time.Minute

// InteractiveToken is the single-use opaque token that binds the operator's
// interactive page back to one transfer.
type InteractiveToken struct {
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t InteractiveToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Transfer is one deposit or withdrawal tracked by the anchor.
type Transfer struct {
	ID          string         `json:"id"`
	Kind        TransferKind   `json:"kind"`
	Mode        TransferMode   `json:"mode"`
	Status      TransferStatus `json:"status"`
	AssetCode   string         `json:"asset_code"`
	AssetIssuer string         `json:"asset_issuer,omitempty"`
	Account     string         `json:"account"`
	Amount      string         `json:"amount,omitempty"`
	Dest        string         `json:"dest,omitempty"`
	DestExtra   string         `json:"dest_extra,omitempty"`
	Memo        string         `json:"memo,omitempty"`
	MemoType    string         `json:"memo_type,omitempty"`

	InteractiveToken *InteractiveToken `json:"interactive_token,omitempty"`
	InteractiveURL   string            `json:"interactive_url,omitempty"`
	MoreInfoURL      string            `json:"more_info_url,omitempty"`

	StellarTxID  string `json:"stellar_transaction_id,omitempty"`
	ExternalTxID string `json:"external_transaction_id,omitempty"`
	Message      string `json:"message,omitempty"`

	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy, so stored transfers are never aliased by
// callers.
func (t *Transfer) Clone() *Transfer {
	clone := *t
	if t.InteractiveToken != nil {
		token := *t.InteractiveToken
		clone.InteractiveToken = &token
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if t.Metadata != nil {
		clone.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// NextStatusOnInteractiveComplete computes the status the transfer moves to
// when its interactive flow completes. Deposits move to
// pending_user_transfer_start, withdrawals to pending_anchor; a transfer
// that already left the initial state keeps its status.
func (t *Transfer) NextStatusOnInteractiveComplete() TransferStatus {
	if t.Status != StatusIncomplete {
		return t.Status
	}
	if t.Kind == KindDeposit {
		return StatusPendingUserTransferStart
	}
	return StatusPendingAnchor
}

// NewTransferID returns a fresh transfer identifier: 16 random octets,
// hex-encoded.
func NewTransferID() (string, error) {
	return randomHex(16)
}

// NewInteractiveToken mints a fresh single-use interactive token with a
// 15 minute lifetime.
func NewInteractiveToken(now time.Time) (*InteractiveToken, error) {
	value, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	return &InteractiveToken{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(interactiveTokenTTL),
	}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
