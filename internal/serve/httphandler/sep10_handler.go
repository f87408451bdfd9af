package httphandler

import (
	"errors"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/stellar/stellar-anchor-backend/internal/monitor"
	"github.com/stellar/stellar-anchor-backend/internal/sepauth"
	"github.com/stellar/stellar-anchor-backend/internal/serve/httperror"
)

// SEP10Handler exposes the web-authentication endpoint: GET issues a
// challenge, POST verifies the signed return and mints a bearer token.
type SEP10Handler struct {
	SEP10Service sepauth.SEP10Service
	Metrics      *monitor.MetricsService
}

func (h SEP10Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := sepauth.ChallengeRequest{Account: r.URL.Query().Get("account")}
	if req.Account == "" {
		httperror.BadRequest("account parameter is required", nil, nil).Render(w)
		return
	}

	resp, err := h.SEP10Service.CreateChallenge(ctx, req)
	if err != nil {
		h.incSEP10("create_challenge", "error")
		renderSEP10Error(w, r, err)
		return
	}
	h.incSEP10("create_challenge", "success")
	httpjson.Render(w, resp, httpjson.JSON)
}

func (h SEP10Handler) PostChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sepauth.ValidationRequest
	if err := httpdecode.Decode(r, &req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).WithCode(httperror.CodeInvalidChallenge).Render(w)
		return
	}

	resp, err := h.SEP10Service.ValidateChallenge(ctx, req)
	if err != nil {
		h.incSEP10("validate_challenge", "error")
		renderSEP10Error(w, r, err)
		return
	}
	h.incSEP10("validate_challenge", "success")
	httpjson.Render(w, sepauth.ValidationResponse{Token: resp.Token}, httpjson.JSON)
}

func (h SEP10Handler) incSEP10(operation, outcome string) {
	if h.Metrics != nil {
		h.Metrics.IncSEP10(operation, outcome)
	}
}

func renderSEP10Error(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, sepauth.ErrInsufficientWeight):
		httperror.Unauthorized(err.Error(), err, nil).Render(w)
	case errors.Is(err, sepauth.ErrHorizonUnavailable):
		log.Ctx(ctx).Warnf("horizon lookup failed during challenge validation: %s", err)
		httperror.BadRequest("could not verify account signers, retry with a new challenge", err, map[string]any{
			"retryable": true,
		}).WithCode(httperror.CodeInvalidChallenge).Render(w)
	case errors.Is(err, sepauth.ErrInvalidChallenge):
		httperror.BadRequest(err.Error(), err, nil).WithCode(httperror.CodeInvalidChallenge).Render(w)
	default:
		httperror.InternalError(ctx, "", err, nil).Render(w)
	}
}
