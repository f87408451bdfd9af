package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/stellar/go-stellar-sdk/clients/horizonclient"
)

type HTTPClientInterface interface {
	Do(*http.Request) (*http.Response, error)
	Get(url string) (resp *http.Response, err error)
	PostForm(url string, data url.Values) (resp *http.Response, err error)
}

// HorizonTimeout bounds each signer lookup during challenge validation.
// Retries happen above this client, so the worst case for the web auth
// handler stays within a few multiples of this value.
const HorizonTimeout = 5 * time.Second

// DefaultClient returns the HTTP client used for Horizon requests.
func DefaultClient() HTTPClientInterface {
	return &http.Client{Timeout: HorizonTimeout}
}

var (
	_ HTTPClientInterface = DefaultClient()
	_ horizonclient.HTTP  = DefaultClient()
)
