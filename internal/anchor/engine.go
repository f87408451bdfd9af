package anchor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stellar/go-stellar-sdk/support/log"
)

var (
	ErrOperationDisabled   = errors.New("operation is disabled for this asset")
	ErrInvalidAmount       = errors.New("amount is not a valid decimal number")
	ErrMissingWithdrawType = errors.New("type is required for programmatic withdrawals")
	ErrMissingDest         = errors.New("dest is required for withdrawals")
)

// UnsupportedAssetError is returned when an initiation names an asset the
// anchor does not support.
type UnsupportedAssetError struct {
	Code string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("Asset %s not supported by anchor", e.Code)
}

// EngineConfig carries the static collaborators of the transfer engine.
type EngineConfig struct {
	Domain             string
	SigningPublicKey   string
	InteractiveBaseURL string
	Assets             AssetSet
}

// Engine drives the transfer lifecycle: it creates transfer records, binds
// them to single-use interactive tokens, advances the status state machine,
// and serves status queries by three distinct identifiers.
type Engine struct {
	store   TransferStore
	config  EngineConfig
	hooks   Hooks
	nowFunc func() time.Time
}

func NewEngine(store TransferStore, config EngineConfig, hooks Hooks) *Engine {
	return &Engine{
		store:   store,
		config:  config,
		hooks:   hooks,
		nowFunc: time.Now,
	}
}

// InitiationRequest carries the client-supplied fields of a deposit or
// withdrawal initiation. Account is always the bearer token's subject.
type InitiationRequest struct {
	Account   string
	AssetCode string
	Amount    string
	Dest      string
	DestExtra string
	Memo      string
	MemoType  string
	Type      string
	Metadata  map[string]any
}

// DepositResult is the engine-level outcome of a deposit initiation.
type DepositResult struct {
	Transfer  *Transfer
	How       string
	ETA       int
	ExtraInfo map[string]any
	Profile   OperationProfile
}

// WithdrawalResult is the engine-level outcome of a withdrawal initiation.
type WithdrawalResult struct {
	Transfer  *Transfer
	AccountID string
	Memo      string
	MemoType  string
	ETA       int
	Profile   OperationProfile
}

// StatusUpdate carries the operator-side fields of an update_status call.
type StatusUpdate struct {
	Amount       *string
	StellarTxID  *string
	ExternalTxID *string
	Message      *string
}

func (e *Engine) InitiateDeposit(ctx context.Context, mode TransferMode, req InitiationRequest) (*DepositResult, error) {
	asset, profile, err := e.validateAsset(req.AssetCode, KindDeposit)
	if err != nil {
		return nil, err
	}
	if err = validateAmount(req.Amount); err != nil {
		return nil, err
	}

	transfer, err := e.newTransfer(KindDeposit, mode, asset, req)
	if err != nil {
		return nil, err
	}
	if err = e.store.Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("persisting deposit: %w", err)
	}
	log.Ctx(ctx).Infof("initiated %s deposit %s for account %s", mode, transfer.ID, transfer.Account)

	result := &DepositResult{
		Transfer: transfer,
		How:      fmt.Sprintf("Send %s to Stellar account %s with memo %s", asset.Code, e.config.SigningPublicKey, transfer.ID),
		Profile:  profile,
	}
	if e.hooks.OnDeposit != nil {
		instructions, hookErr := e.hooks.OnDeposit(ctx, transfer.Clone())
		if hookErr != nil {
			return nil, &HookError{Err: hookErr}
		}
		if instructions != nil {
			if instructions.How != "" {
				result.How = instructions.How
			}
			result.ETA = instructions.ETA
			result.ExtraInfo = instructions.ExtraInfo
		}
	}
	return result, nil
}

func (e *Engine) InitiateWithdrawal(ctx context.Context, mode TransferMode, req InitiationRequest) (*WithdrawalResult, error) {
	asset, profile, err := e.validateAsset(req.AssetCode, KindWithdrawal)
	if err != nil {
		return nil, err
	}
	if err = validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if mode == ModeProgrammatic {
		if req.Type == "" {
			return nil, ErrMissingWithdrawType
		}
		if req.Dest == "" {
			return nil, ErrMissingDest
		}
	}

	transfer, err := e.newTransfer(KindWithdrawal, mode, asset, req)
	if err != nil {
		return nil, err
	}
	if err = e.store.Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("persisting withdrawal: %w", err)
	}
	log.Ctx(ctx).Infof("initiated %s withdrawal %s for account %s", mode, transfer.ID, transfer.Account)

	memo, err := randomNumericMemo()
	if err != nil {
		return nil, fmt.Errorf("generating withdrawal memo: %w", err)
	}
	result := &WithdrawalResult{
		Transfer:  transfer,
		AccountID: e.config.SigningPublicKey,
		Memo:      memo,
		MemoType:  "id",
		Profile:   profile,
	}
	if e.hooks.OnWithdraw != nil {
		instructions, hookErr := e.hooks.OnWithdraw(ctx, transfer.Clone())
		if hookErr != nil {
			return nil, &HookError{Err: hookErr}
		}
		if instructions != nil {
			if instructions.AccountID != "" {
				result.AccountID = instructions.AccountID
			}
			if instructions.Memo != "" {
				result.Memo = instructions.Memo
			}
			if instructions.MemoType != "" {
				result.MemoType = instructions.MemoType
			}
			result.ETA = instructions.ETA
		}
	}
	return result, nil
}

// CompleteInteractive consumes the transfer's single-use interactive token
// and advances the status state machine. The token check, the consumed mark,
// and the status change are applied atomically by the store.
func (e *Engine) CompleteInteractive(ctx context.Context, id, token string) (*Transfer, error) {
	updated, err := e.store.CompleteInteractive(ctx, id, token, func(t *Transfer) {
		next := t.NextStatusOnInteractiveComplete()
		if next != t.Status {
			t.Status = next
		}
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Infof("interactive flow completed for transfer %s, status %s", updated.ID, updated.Status)

	if e.hooks.OnInteractiveComplete != nil {
		if hookErr := e.hooks.OnInteractiveComplete(ctx, updated.Clone()); hookErr != nil {
			return nil, &HookError{Err: hookErr}
		}
	}
	return updated, nil
}

// UpdateStatus applies an operator-side status update. A terminal status
// stamps completed-at; a non-terminal one clears it.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status TransferStatus, update StatusUpdate) (*Transfer, error) {
	storeUpdate := TransferUpdate{
		Status:       &status,
		Amount:       update.Amount,
		StellarTxID:  update.StellarTxID,
		ExternalTxID: update.ExternalTxID,
		Message:      update.Message,
	}
	if status.IsTerminal() {
		completedAt := e.nowFunc().UTC()
		storeUpdate.CompletedAt = &completedAt
	} else {
		storeUpdate.ClearCompletedAt = true
	}

	updated, err := e.store.Update(ctx, id, storeUpdate)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Infof("transfer %s status updated to %s", id, status)
	return updated, nil
}

func (e *Engine) GetByID(ctx context.Context, id string) (*Transfer, error) {
	return e.store.GetByID(ctx, id)
}

// GetByStellarTxID returns the transfer settled by the given on-chain
// transaction, or nil when none matches.
func (e *Engine) GetByStellarTxID(ctx context.Context, stellarTxID string) (*Transfer, error) {
	t, err := e.store.GetByStellarTxID(ctx, stellarTxID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// GetByExternalTxID returns the transfer settled by the given off-chain
// reference, or nil when none matches.
func (e *Engine) GetByExternalTxID(ctx context.Context, externalTxID string) (*Transfer, error) {
	t, err := e.store.GetByExternalTxID(ctx, externalTxID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (e *Engine) ListByAccount(ctx context.Context, account string, filters ListFilters) ([]*Transfer, error) {
	return e.store.ListByAccount(ctx, account, filters)
}

// RenderMoreInfo invokes the operator's status-page hook. The second return
// is false when no hook is configured and the caller should fall back to
// the default page.
func (e *Engine) RenderMoreInfo(ctx context.Context, t *Transfer) (string, bool, error) {
	if e.hooks.RenderMoreInfo == nil {
		return "", false, nil
	}
	html, err := e.hooks.RenderMoreInfo(ctx, t.Clone())
	if err != nil {
		return "", true, &HookError{Err: err}
	}
	return html, true, nil
}

// Assets exposes the configured asset set for the info endpoints.
func (e *Engine) Assets() AssetSet {
	return e.config.Assets
}

// OperatorInteractiveURL is the 302 target for the interactive redirect
// endpoint: the operator-supplied base URL with transaction_id and token
// preserved verbatim.
func (e *Engine) OperatorInteractiveURL(transferID, token string) string {
	params := url.Values{}
	params.Set("transaction_id", transferID)
	params.Set("token", token)

	sep := "?"
	if strings.Contains(e.config.InteractiveBaseURL, "?") {
		sep = "&"
	}
	return e.config.InteractiveBaseURL + sep + params.Encode()
}

func (e *Engine) newTransfer(kind TransferKind, mode TransferMode, asset Asset, req InitiationRequest) (*Transfer, error) {
	id, err := NewTransferID()
	if err != nil {
		return nil, fmt.Errorf("generating transfer id: %w", err)
	}

	now := e.nowFunc().UTC()
	base := BaseURL(e.config.Domain)
	transfer := &Transfer{
		ID:          id,
		Kind:        kind,
		Mode:        mode,
		Status:      StatusIncomplete,
		AssetCode:   asset.Code,
		AssetIssuer: asset.Issuer,
		Account:     req.Account,
		Amount:      req.Amount,
		Dest:        req.Dest,
		DestExtra:   req.DestExtra,
		Memo:        req.Memo,
		MemoType:    req.MemoType,
		MoreInfoURL: fmt.Sprintf("%s/sep24/transaction/more_info?id=%s", base, url.QueryEscape(id)),
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    req.Metadata,
	}

	if mode == ModeInteractive {
		token, tokenErr := NewInteractiveToken(now)
		if tokenErr != nil {
			return nil, fmt.Errorf("generating interactive token: %w", tokenErr)
		}
		transfer.InteractiveToken = token

		params := url.Values{}
		params.Set("transaction_id", id)
		params.Set("token", token.Value)
		transfer.InteractiveURL = base + "/interactive?" + params.Encode()
	}

	return transfer, nil
}

func (e *Engine) validateAsset(code string, kind TransferKind) (Asset, OperationProfile, error) {
	asset, ok := e.config.Assets.Find(code)
	if !ok {
		return Asset{}, OperationProfile{}, &UnsupportedAssetError{Code: code}
	}

	profile := asset.Deposit
	if kind == KindWithdrawal {
		profile = asset.Withdraw
	}
	if !profile.Enabled {
		return Asset{}, OperationProfile{}, fmt.Errorf("%s for asset %s: %w", kind, asset.Code, ErrOperationDisabled)
	}
	return asset, profile, nil
}

func validateAmount(amount string) error {
	if amount == "" {
		return nil
	}
	if _, err := decimal.NewFromString(amount); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return nil
}

// randomNumericMemo returns a random uint64 rendered in decimal, used as the
// default id-type memo for programmatic withdrawals.
func randomNumericMemo() (string, error) {
	max := new(big.Int).SetUint64(^uint64(0))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}
