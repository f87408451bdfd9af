package httphandler

import (
	"fmt"
	"html"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
	"github.com/stellar/stellar-anchor-backend/internal/htmltemplate"
)

// MoreInfoHandler serves the transaction status page. The operator's
// RenderMoreInfo hook wins when configured; otherwise a minimal default page
// is rendered. This endpoint always answers with HTML, never with the JSON
// error envelope.
type MoreInfoHandler struct {
	Engine *anchor.Engine
}

func (h MoreInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")

	data := htmltemplate.MoreInfoTemplate{ID: id, Status: "unknown"}
	transfer, err := h.Engine.GetByID(ctx, id)
	if err == nil {
		data.Status = string(transfer.Status)
		data.Kind = string(transfer.Kind)

		if page, rendered, hookErr := h.Engine.RenderMoreInfo(ctx, transfer); rendered {
			if hookErr == nil {
				writeHTML(w, r, page)
				return
			}
			log.Ctx(ctx).Warnf("more_info hook failed for transfer %s, falling back to default page: %s", id, hookErr)
		}
	}

	page, err := htmltemplate.ExecuteHTMLTemplateForMoreInfoPage(data)
	if err != nil {
		log.Ctx(ctx).Errorf("rendering default more_info page: %s", err)
		page = fmt.Sprintf("<html><body><p>Transaction %s</p></body></html>", html.EscapeString(id))
	}
	writeHTML(w, r, page)
}

func writeHTML(w http.ResponseWriter, r *http.Request, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprint(w, body); err != nil {
		log.Ctx(r.Context()).Errorf("writing more_info response: %s", err)
	}
}
