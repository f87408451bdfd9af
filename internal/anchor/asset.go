package anchor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stellar/go-stellar-sdk/network"
)

// AssetStatus is the lifecycle status advertised for an asset in the
// discovery document.
type AssetStatus string

const (
	AssetStatusLive    AssetStatus = "live"
	AssetStatusTest    AssetStatus = "test"
	AssetStatusDead    AssetStatus = "dead"
	AssetStatusPrivate AssetStatus = "private"
)

const defaultDisplayDecimals = 7

// Field describes one entry in an operation's required-field catalogue.
type Field struct {
	Description string   `json:"description"`
	Optional    bool     `json:"optional,omitempty"`
	Choices     []string `json:"choices,omitempty"`
}

// OperationProfile configures one side (deposit or withdraw) of an asset.
type OperationProfile struct {
	Enabled    bool             `json:"enabled"`
	MinAmount  *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount  *decimal.Decimal `json:"max_amount,omitempty"`
	FeeFixed   *decimal.Decimal `json:"fee_fixed,omitempty"`
	FeePercent *decimal.Decimal `json:"fee_percent,omitempty"`
	Fields     map[string]Field `json:"fields,omitempty"`
}

// Asset is one anchored asset capability, keyed by its case-sensitive code.
// The code "native" (or "XLM") denotes the chain token.
type Asset struct {
	Code            string           `json:"code"`
	Issuer          string           `json:"issuer,omitempty"`
	Name            string           `json:"name,omitempty"`
	Desc            string           `json:"desc,omitempty"`
	DisplayDecimals int              `json:"display_decimals,omitempty"`
	Status          AssetStatus      `json:"status,omitempty"`
	Deposit         OperationProfile `json:"deposit"`
	Withdraw        OperationProfile `json:"withdraw"`
}

// IsNative reports whether the asset denotes the chain token.
func (a Asset) IsNative() bool {
	return a.Code == "native" || a.Code == "XLM"
}

// TomlCode is the code emitted in the discovery document: "native"/"XLM" is
// normalized to the literal "native".
func (a Asset) TomlCode() string {
	if a.IsNative() {
		return "native"
	}
	return a.Code
}

// EffectiveStatus derives the status emitted in the discovery document. The
// second return is false when the status must be omitted (dead or private).
func (a Asset) EffectiveStatus(networkPassphrase string) (AssetStatus, bool) {
	switch a.Status {
	case AssetStatusLive, AssetStatusTest:
		return a.Status, true
	case AssetStatusDead, AssetStatusPrivate:
		return "", false
	}
	if networkPassphrase == network.PublicNetworkPassphrase {
		return AssetStatusLive, true
	}
	return AssetStatusTest, true
}

// AssetSet is the configured asset map, keyed by asset code.
type AssetSet map[string]Asset

// Normalize fills in per-asset defaults and copies map keys into the asset
// codes. It errors on an empty set, which is a startup misconfiguration.
func (s AssetSet) Normalize() error {
	if len(s) == 0 {
		return fmt.Errorf("at least one asset must be configured")
	}
	for code, asset := range s {
		if asset.Code == "" {
			asset.Code = code
		}
		if asset.DisplayDecimals == 0 {
			asset.DisplayDecimals = defaultDisplayDecimals
		}
		s[code] = asset
	}
	return nil
}

// Find matches an asset code case-insensitively against the configured set.
func (s AssetSet) Find(code string) (Asset, bool) {
	if asset, ok := s[code]; ok {
		return asset, true
	}
	for _, asset := range s {
		if strings.EqualFold(asset.Code, code) {
			return asset, true
		}
	}
	return Asset{}, false
}

// Documentation is the optional [DOCUMENTATION] block of the discovery
// document.
type Documentation struct {
	OrgName            string `json:"orgName,omitempty"`
	OrgURL             string `json:"orgURL,omitempty"`
	OrgDescription     string `json:"orgDescription,omitempty"`
	OrgLogo            string `json:"orgLogo,omitempty"`
	OrgPhysicalAddress string `json:"orgPhysicalAddress,omitempty"`
	OrgOfficialEmail   string `json:"orgOfficialEmail,omitempty"`
	OrgSupportEmail    string `json:"orgSupportEmail,omitempty"`
}

// BaseURL derives the service base URL from the configured domain. Local
// hostnames are served over plain HTTP, everything else over HTTPS.
func BaseURL(domain string) string {
	if strings.HasPrefix(domain, "localhost") || strings.HasPrefix(domain, "127.0.0.1") {
		return "http://" + domain
	}
	return "https://" + domain
}
