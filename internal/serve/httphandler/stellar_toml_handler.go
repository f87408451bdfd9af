package httphandler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
)

// TomlMounts is the set of mounted SEP modules reflected by the discovery
// document.
type TomlMounts struct {
	SEP10 bool
	SEP24 bool
	SEP6  bool
}

// StellarTomlHandler renders the SEP-1 discovery document from the static
// configuration and the currently mounted module set. The rendering is
// memoized; mutating the mount set invalidates the cache.
type StellarTomlHandler struct {
	Domain            string
	NetworkPassphrase string
	SigningPublicKey  string
	Documentation     *anchor.Documentation
	Assets            anchor.AssetSet

	mountsMu sync.Mutex
	mounts   TomlMounts
	cache    atomic.Pointer[string]
}

func NewStellarTomlHandler(domain, networkPassphrase, signingPublicKey string, documentation *anchor.Documentation, assets anchor.AssetSet, mounts TomlMounts) *StellarTomlHandler {
	return &StellarTomlHandler{
		Domain:            domain,
		NetworkPassphrase: networkPassphrase,
		SigningPublicKey:  signingPublicKey,
		Documentation:     documentation,
		Assets:            assets,
		mounts:            mounts,
	}
}

// SetMounts replaces the mounted module set and invalidates the cached
// rendering.
func (s *StellarTomlHandler) SetMounts(mounts TomlMounts) {
	s.mountsMu.Lock()
	s.mounts = mounts
	s.mountsMu.Unlock()
	s.cache.Store(nil)
}

// ServeHTTP serves the discovery document with a wildcard CORS header, as
// wallets fetch it cross-origin.
func (s *StellarTomlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	document := s.cache.Load()
	if document == nil {
		rendered := s.render()
		document = &rendered
		s.cache.Store(document)
	}

	if _, err := fmt.Fprint(w, *document); err != nil {
		log.Ctx(r.Context()).Errorf("writing stellar.toml response: %s", err)
	}
}

func (s *StellarTomlHandler) render() string {
	s.mountsMu.Lock()
	mounts := s.mounts
	s.mountsMu.Unlock()

	base := anchor.BaseURL(s.Domain)

	var b strings.Builder
	writeKey(&b, "SIGNING_KEY", s.SigningPublicKey)
	writeKey(&b, "NETWORK_PASSPHRASE", s.NetworkPassphrase)
	if mounts.SEP10 {
		writeKey(&b, "WEB_AUTH_ENDPOINT", base+"/auth")
	}
	if mounts.SEP24 {
		writeKey(&b, "TRANSFER_SERVER_SEP0024", base+"/sep24")
	}
	if mounts.SEP6 {
		writeKey(&b, "TRANSFER_SERVER", base+"/sep6")
	}

	if s.Documentation != nil {
		b.WriteString("\n[DOCUMENTATION]\n")
		writeOptionalKey(&b, "org_name", s.Documentation.OrgName)
		writeOptionalKey(&b, "org_url", s.Documentation.OrgURL)
		writeOptionalKey(&b, "org_description", s.Documentation.OrgDescription)
		writeOptionalKey(&b, "org_logo", s.Documentation.OrgLogo)
		writeOptionalKey(&b, "org_physical_address", s.Documentation.OrgPhysicalAddress)
		writeOptionalKey(&b, "org_official_email", s.Documentation.OrgOfficialEmail)
		writeOptionalKey(&b, "org_support_email", s.Documentation.OrgSupportEmail)
	}

	for _, asset := range s.sortedAssets() {
		b.WriteString("\n[[CURRENCIES]]\n")
		writeField(&b, "code", asset.TomlCode())
		writeOptionalField(&b, "issuer", asset.Issuer)
		if status, ok := asset.EffectiveStatus(s.NetworkPassphrase); ok {
			writeField(&b, "status", string(status))
		}
		fmt.Fprintf(&b, "display_decimals = %d\n", asset.DisplayDecimals)
		writeOptionalField(&b, "name", asset.Name)
		writeOptionalField(&b, "desc", asset.Desc)
	}

	return b.String()
}

func (s *StellarTomlHandler) sortedAssets() []anchor.Asset {
	assets := make([]anchor.Asset, 0, len(s.Assets))
	for _, asset := range s.Assets {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Code < assets[j].Code })
	return assets
}

func writeKey(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s=%s\n", key, tomlQuote(value))
}

func writeOptionalKey(b *strings.Builder, key, value string) {
	if value != "" {
		writeKey(b, key, value)
	}
}

func writeField(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s = %s\n", key, tomlQuote(value))
}

func writeOptionalField(b *strings.Builder, key, value string) {
	if value != "" {
		writeField(b, key, value)
	}
}

// tomlQuote renders a double-quoted string with backslash escapes for
// backslash, quote, newline, carriage return, and tab.
func tomlQuote(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return `"` + replacer.Replace(value) + `"`
}
