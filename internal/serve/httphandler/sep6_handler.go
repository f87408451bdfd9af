package httphandler

import (
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
	"github.com/stellar/stellar-anchor-backend/internal/monitor"
	"github.com/stellar/stellar-anchor-backend/internal/sepauth"
	"github.com/stellar/stellar-anchor-backend/internal/serve/httperror"
)

// SEP6Handler exposes the programmatic transfer endpoints. Unlike SEP-24,
// initiations are GET requests and the response carries the transfer
// instructions directly instead of an interactive URL.
type SEP6Handler struct {
	Engine  *anchor.Engine
	Metrics *monitor.MetricsService
}

type SEP6OperationResponse struct {
	Enabled                bool                    `json:"enabled"`
	AuthenticationRequired bool                    `json:"authentication_required"`
	MinAmount              *float64                `json:"min_amount,omitempty"`
	MaxAmount              *float64                `json:"max_amount,omitempty"`
	FeeFixed               *float64                `json:"fee_fixed,omitempty"`
	FeePercent             *float64                `json:"fee_percent,omitempty"`
	Fields                 map[string]anchor.Field `json:"fields,omitempty"`
}

type SEP6InfoResponse struct {
	Deposit  map[string]SEP6OperationResponse `json:"deposit"`
	Withdraw map[string]SEP6OperationResponse `json:"withdraw"`
}

type SEP6DepositResponse struct {
	How        string         `json:"how"`
	ID         string         `json:"id"`
	ETA        int            `json:"eta,omitempty"`
	MinAmount  *float64       `json:"min_amount,omitempty"`
	MaxAmount  *float64       `json:"max_amount,omitempty"`
	FeeFixed   *float64       `json:"fee_fixed,omitempty"`
	FeePercent *float64       `json:"fee_percent,omitempty"`
	ExtraInfo  map[string]any `json:"extra_info,omitempty"`
}

type SEP6WithdrawResponse struct {
	AccountID  string   `json:"account_id"`
	MemoType   string   `json:"memo_type"`
	Memo       string   `json:"memo"`
	ID         string   `json:"id"`
	ETA        int      `json:"eta,omitempty"`
	MinAmount  *float64 `json:"min_amount,omitempty"`
	MaxAmount  *float64 `json:"max_amount,omitempty"`
	FeeFixed   *float64 `json:"fee_fixed,omitempty"`
	FeePercent *float64 `json:"fee_percent,omitempty"`
}

func (h SEP6Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := SEP6InfoResponse{
		Deposit:  make(map[string]SEP6OperationResponse),
		Withdraw: make(map[string]SEP6OperationResponse),
	}
	for _, asset := range h.Engine.Assets() {
		resp.Deposit[asset.TomlCode()] = toSEP6OperationResponse(asset.Deposit)
		resp.Withdraw[asset.TomlCode()] = toSEP6OperationResponse(asset.Withdraw)
	}
	httpjson.Render(w, resp, httpjson.JSON)
}

func (h SEP6Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := sepauth.GetWebAuthClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("Missing or invalid authorization header", nil, nil).Render(w)
		return
	}

	query := r.URL.Query()
	if httpErr := validateRequestAccount(query.Get("account")); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Engine.InitiateDeposit(ctx, anchor.ModeProgrammatic, anchor.InitiationRequest{
		Account:   claims.Account(),
		AssetCode: query.Get("asset_code"),
		Amount:    query.Get("amount"),
		Memo:      query.Get("memo"),
		MemoType:  query.Get("memo_type"),
	})
	if err != nil {
		renderEngineError(w, r, err)
		return
	}
	incTransfersCreated(h.Metrics)

	resp := SEP6DepositResponse{
		How:       result.How,
		ID:        result.Transfer.ID,
		ETA:       result.ETA,
		ExtraInfo: result.ExtraInfo,
	}
	resp.MinAmount, resp.MaxAmount, resp.FeeFixed, resp.FeePercent = profileAmounts(result.Profile)
	httpjson.Render(w, resp, httpjson.JSON)
}

func (h SEP6Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := sepauth.GetWebAuthClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("Missing or invalid authorization header", nil, nil).Render(w)
		return
	}

	query := r.URL.Query()
	if httpErr := validateRequestAccount(query.Get("account")); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.Engine.InitiateWithdrawal(ctx, anchor.ModeProgrammatic, anchor.InitiationRequest{
		Account:   claims.Account(),
		AssetCode: query.Get("asset_code"),
		Amount:    query.Get("amount"),
		Type:      query.Get("type"),
		Dest:      query.Get("dest"),
		DestExtra: query.Get("dest_extra"),
	})
	if err != nil {
		renderEngineError(w, r, err)
		return
	}
	incTransfersCreated(h.Metrics)

	resp := SEP6WithdrawResponse{
		AccountID: result.AccountID,
		MemoType:  result.MemoType,
		Memo:      result.Memo,
		ID:        result.Transfer.ID,
		ETA:       result.ETA,
	}
	resp.MinAmount, resp.MaxAmount, resp.FeeFixed, resp.FeePercent = profileAmounts(result.Profile)
	httpjson.Render(w, resp, httpjson.JSON)
}

func toSEP6OperationResponse(profile anchor.OperationProfile) SEP6OperationResponse {
	resp := SEP6OperationResponse{
		Enabled:                profile.Enabled,
		AuthenticationRequired: true,
		Fields:                 profile.Fields,
	}
	resp.MinAmount, resp.MaxAmount, resp.FeeFixed, resp.FeePercent = profileAmounts(profile)
	return resp
}

func profileAmounts(profile anchor.OperationProfile) (minAmount, maxAmount, feeFixed, feePercent *float64) {
	toFloat := func(d interface{ InexactFloat64() float64 }) *float64 {
		v := d.InexactFloat64()
		return &v
	}
	if profile.MinAmount != nil {
		minAmount = toFloat(profile.MinAmount)
	}
	if profile.MaxAmount != nil {
		maxAmount = toFloat(profile.MaxAmount)
	}
	if profile.FeeFixed != nil {
		feeFixed = toFloat(profile.FeeFixed)
	}
	if profile.FeePercent != nil {
		feePercent = toFloat(profile.FeePercent)
	}
	return minAmount, maxAmount, feeFixed, feePercent
}
