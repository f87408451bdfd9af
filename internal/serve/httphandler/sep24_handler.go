package httphandler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
	"github.com/stellar/stellar-anchor-backend/internal/monitor"
	"github.com/stellar/stellar-anchor-backend/internal/sepauth"
	"github.com/stellar/stellar-anchor-backend/internal/serve/httperror"
)

// incompleteStatusETA is the status_eta value expected by SEP-24 compliance
// suites for transfers still in the initial state.
const incompleteStatusETA = 3

type SEP24Handler struct {
	Engine  *anchor.Engine
	Metrics *monitor.MetricsService
}

type SEP24OperationResponse struct {
	Enabled    bool                    `json:"enabled"`
	MinAmount  *float64                `json:"min_amount,omitempty"`
	MaxAmount  *float64                `json:"max_amount,omitempty"`
	FeeFixed   *float64                `json:"fee_fixed,omitempty"`
	FeePercent *float64                `json:"fee_percent,omitempty"`
	Fields     map[string]anchor.Field `json:"fields,omitempty"`
}

type SEP24InfoResponse struct {
	Deposit  map[string]SEP24OperationResponse `json:"deposit"`
	Withdraw map[string]SEP24OperationResponse `json:"withdraw"`
	Fee      SEP24FeeResponse                  `json:"fee"`
}

type SEP24FeeResponse struct {
	Enabled bool `json:"enabled"`
}

type SEP24InteractiveResponse struct {
	Type          string `json:"type"`
	URL           string `json:"url"`
	TransactionID string `json:"id"`
}

type SEP24Transaction struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	StatusETA    *int       `json:"status_eta,omitempty"`
	MoreInfoURL  string     `json:"more_info_url"`
	AmountIn     string     `json:"amount_in,omitempty"`
	AmountOut    string     `json:"amount_out,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	StellarTxID  string     `json:"stellar_transaction_id,omitempty"`
	ExternalTxID string     `json:"external_transaction_id,omitempty"`
	Message      string     `json:"message,omitempty"`
}

type SEP24TransactionResponse struct {
	Transaction SEP24Transaction `json:"transaction"`
}

type SEP24TransactionsResponse struct {
	Transactions []SEP24Transaction `json:"transactions"`
}

type sep24InitiationRequest struct {
	AssetCode   string `json:"asset_code" form:"asset_code"`
	AssetIssuer string `json:"asset_issuer" form:"asset_issuer"`
	Account     string `json:"account" form:"account"`
	Amount      string `json:"amount" form:"amount"`
	Memo        string `json:"memo" form:"memo"`
	MemoType    string `json:"memo_type" form:"memo_type"`
	Dest        string `json:"dest" form:"dest"`
	DestExtra   string `json:"dest_extra" form:"dest_extra"`
}

type interactiveCompleteRequest struct {
	TransactionID string `json:"transaction_id" form:"transaction_id"`
	Token         string `json:"token" form:"token"`
}

type interactiveCompleteResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h SEP24Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := SEP24InfoResponse{
		Deposit:  make(map[string]SEP24OperationResponse),
		Withdraw: make(map[string]SEP24OperationResponse),
	}
	for _, asset := range h.Engine.Assets() {
		resp.Deposit[asset.TomlCode()] = toOperationResponse(asset.Deposit)
		resp.Withdraw[asset.TomlCode()] = toOperationResponse(asset.Withdraw)
	}
	httpjson.Render(w, resp, httpjson.JSON)
}

func (h SEP24Handler) DepositInteractive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := sepauth.GetWebAuthClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("Missing or invalid authorization header", nil, nil).Render(w)
		return
	}

	req, httpErr := decodeInitiationRequest(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}
	if httpErr = validateRequestAccount(req.Account); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Engine.InitiateDeposit(ctx, anchor.ModeInteractive, anchor.InitiationRequest{
		Account:   claims.Account(),
		AssetCode: req.AssetCode,
		Amount:    req.Amount,
		Memo:      req.Memo,
		MemoType:  req.MemoType,
	})
	if err != nil {
		renderEngineError(w, r, err)
		return
	}
	incTransfersCreated(h.Metrics)

	httpjson.Render(w, SEP24InteractiveResponse{
		Type:          "interactive_customer_info_needed",
		URL:           result.Transfer.InteractiveURL,
		TransactionID: result.Transfer.ID,
	}, httpjson.JSON)
}

func (h SEP24Handler) WithdrawInteractive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := sepauth.GetWebAuthClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("Missing or invalid authorization header", nil, nil).Render(w)
		return
	}

	req, httpErr := decodeInitiationRequest(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}
	if httpErr = validateRequestAccount(req.Account); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Engine.InitiateWithdrawal(ctx, anchor.ModeInteractive, anchor.InitiationRequest{
		Account:   claims.Account(),
		AssetCode: req.AssetCode,
		Amount:    req.Amount,
		Dest:      req.Dest,
		DestExtra: req.DestExtra,
		Memo:      req.Memo,
		MemoType:  req.MemoType,
	})
	if err != nil {
		renderEngineError(w, r, err)
		return
	}
	incTransfersCreated(h.Metrics)

	httpjson.Render(w, SEP24InteractiveResponse{
		Type:          "interactive_customer_info_needed",
		URL:           result.Transfer.InteractiveURL,
		TransactionID: result.Transfer.ID,
	}, httpjson.JSON)
}

// GetTransaction serves a single transfer looked up by one of the three
// identifiers: id, stellar_transaction_id, or external_transaction_id.
func (h SEP24Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		transfer *anchor.Transfer
		err      error
	)
	query := r.URL.Query()
	switch {
	case query.Get("id") != "":
		transfer, err = h.Engine.GetByID(ctx, query.Get("id"))
	case query.Get("stellar_transaction_id") != "":
		transfer, err = h.Engine.GetByStellarTxID(ctx, query.Get("stellar_transaction_id"))
	case query.Get("external_transaction_id") != "":
		transfer, err = h.Engine.GetByExternalTxID(ctx, query.Get("external_transaction_id"))
	default:
		httperror.BadRequest("one of id, stellar_transaction_id, or external_transaction_id is required", nil, nil).Render(w)
		return
	}
	if err != nil {
		renderEngineError(w, r, err)
		return
	}
	if transfer == nil {
		httperror.NotFound("transaction not found", nil, nil).Render(w)
		return
	}

	httpjson.Render(w, SEP24TransactionResponse{Transaction: toSEP24Transaction(transfer)}, httpjson.JSON)
}

func (h SEP24Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := sepauth.GetWebAuthClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("Missing or invalid authorization header", nil, nil).Render(w)
		return
	}

	filters, httpErr := parseListFilters(r)
	if httpErr != nil {
		httpErr.Render(w)
		return
	}

	transfers, err := h.Engine.ListByAccount(ctx, claims.Account(), filters)
	if err != nil {
		renderEngineError(w, r, err)
		return
	}

	resp := SEP24TransactionsResponse{Transactions: make([]SEP24Transaction, 0, len(transfers))}
	for _, t := range transfers {
		resp.Transactions = append(resp.Transactions, toSEP24Transaction(t))
	}
	httpjson.Render(w, resp, httpjson.JSON)
}

// Interactive redirects the wallet to the operator's interactive page,
// preserving token and transaction_id exactly. Rewriting either parameter
// breaks the complete-interactive contract.
func (h SEP24Handler) Interactive(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	transactionID := query.Get("transaction_id")
	token := query.Get("token")
	if transactionID == "" || token == "" {
		httperror.BadRequest("transaction_id and token parameters are required", nil, nil).Render(w)
		return
	}

	http.Redirect(w, r, h.Engine.OperatorInteractiveURL(transactionID, token), http.StatusFound)
}

// InteractiveComplete is called by the operator's page once the customer
// finished the interactive flow. It consumes the single-use token and
// advances the transfer.
func (h SEP24Handler) InteractiveComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req interactiveCompleteRequest
	if err := httpdecode.Decode(r, &req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}
	if req.TransactionID == "" || req.Token == "" {
		httperror.BadRequest("transaction_id and token are required", nil, nil).Render(w)
		return
	}

	transfer, err := h.Engine.CompleteInteractive(ctx, req.TransactionID, req.Token)
	if err != nil {
		renderEngineError(w, r, err)
		return
	}

	httpjson.Render(w, interactiveCompleteResponse{
		Success: true,
		Status:  string(transfer.Status),
		Message: transfer.Message,
	}, httpjson.JSON)
}

func toOperationResponse(profile anchor.OperationProfile) SEP24OperationResponse {
	resp := SEP24OperationResponse{
		Enabled: profile.Enabled,
		Fields:  profile.Fields,
	}
	resp.MinAmount, resp.MaxAmount, resp.FeeFixed, resp.FeePercent = profileAmounts(profile)
	return resp
}

func toSEP24Transaction(t *anchor.Transfer) SEP24Transaction {
	tx := SEP24Transaction{
		ID:           t.ID,
		Kind:         string(t.Kind),
		Status:       string(t.Status),
		MoreInfoURL:  t.MoreInfoURL,
		AmountIn:     t.Amount,
		AmountOut:    t.Amount,
		StartedAt:    t.CreatedAt,
		CompletedAt:  t.CompletedAt,
		StellarTxID:  t.StellarTxID,
		ExternalTxID: t.ExternalTxID,
		Message:      t.Message,
	}
	if t.Status == anchor.StatusIncomplete {
		eta := incompleteStatusETA
		tx.StatusETA = &eta
	}
	return tx
}

// decodeInitiationRequest reads an initiation body submitted as multipart,
// urlencoded form, or JSON.
func decodeInitiationRequest(r *http.Request) (*sep24InitiationRequest, *httperror.HTTPError) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, httperror.BadRequest("invalid multipart body", err, nil)
		}
		return &sep24InitiationRequest{
			AssetCode:   r.PostFormValue("asset_code"),
			AssetIssuer: r.PostFormValue("asset_issuer"),
			Account:     r.PostFormValue("account"),
			Amount:      r.PostFormValue("amount"),
			Memo:        r.PostFormValue("memo"),
			MemoType:    r.PostFormValue("memo_type"),
			Dest:        r.PostFormValue("dest"),
			DestExtra:   r.PostFormValue("dest_extra"),
		}, nil
	}

	var req sep24InitiationRequest
	if err := httpdecode.Decode(r, &req); err != nil {
		return nil, httperror.BadRequest("invalid request body", err, nil)
	}
	return &req, nil
}

// validateRequestAccount rejects malformed account fields. The bearer
// token's subject always wins over the request field, so a well-formed
// account is merely tolerated.
func validateRequestAccount(account string) *httperror.HTTPError {
	if account != "" && !strkey.IsValidEd25519PublicKey(account) {
		return httperror.BadRequest("account is not a valid ed25519 public key", nil, nil)
	}
	return nil
}

func parseListFilters(r *http.Request) (anchor.ListFilters, *httperror.HTTPError) {
	query := r.URL.Query()
	filters := anchor.ListFilters{
		AssetCode: query.Get("asset_code"),
		Kind:      anchor.TransferKind(query.Get("kind")),
	}

	if noOlderThan := query.Get("no_older_than"); noOlderThan != "" {
		parsed, err := time.Parse(time.RFC3339, noOlderThan)
		if err != nil {
			return filters, httperror.BadRequest("no_older_than must be an RFC3339 timestamp", err, nil)
		}
		filters.NotOlderThan = parsed
	}
	if limit := query.Get("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return filters, httperror.BadRequest("limit must be an integer", err, nil)
		}
		filters.Limit = parsed
	}
	return filters, nil
}

func incTransfersCreated(metrics *monitor.MetricsService) {
	if metrics != nil {
		metrics.IncTransfersCreated()
	}
}

func renderEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var unsupportedAsset *anchor.UnsupportedAssetError
	switch {
	case errors.As(err, &unsupportedAsset):
		httperror.BadRequest(unsupportedAsset.Error(), err, nil).Render(w)
	case errors.Is(err, anchor.ErrOperationDisabled),
		errors.Is(err, anchor.ErrInvalidAmount),
		errors.Is(err, anchor.ErrMissingWithdrawType),
		errors.Is(err, anchor.ErrMissingDest):
		httperror.BadRequest(err.Error(), err, nil).Render(w)
	case errors.Is(err, anchor.ErrNotFound):
		httperror.NotFound("transaction not found", err, nil).Render(w)
	case errors.Is(err, anchor.ErrTokenMismatch):
		httperror.BadRequest("interactive token does not match this transaction", err, nil).Render(w)
	case errors.Is(err, anchor.ErrTokenConsumed):
		httperror.BadRequest("interactive token was already used", err, nil).Render(w)
	case errors.Is(err, anchor.ErrTokenExpired):
		httperror.BadRequest("interactive token has expired", err, nil).Render(w)
	default:
		var hookErr *anchor.HookError
		if errors.As(err, &hookErr) {
			httperror.FromHookError(hookErr.Err).Render(w)
			return
		}
		httperror.InternalError(ctx, "", err, nil).Render(w)
	}
}
