package utils

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stellar/go-stellar-sdk/network"
	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/stellar/stellar-anchor-backend/internal/anchor"
)

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	log.DefaultLogger.SetLevel(*key)
	return nil
}

func SetConfigOptionStellarPublicKey(co *config.ConfigOption) error {
	publicKey := viper.GetString(co.Name)

	kp, err := keypair.ParseAddress(publicKey)
	if err != nil {
		return fmt.Errorf("error validating public key: %w", err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = kp.Address()

	return nil
}

func SetConfigOptionStellarPrivateKey(co *config.ConfigOption) error {
	privateKey := viper.GetString(co.Name)

	if !strkey.IsValidEd25519SecretSeed(privateKey) {
		return fmt.Errorf("error validating private key")
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = privateKey

	return nil
}

func SetCorsAllowedOrigins(co *config.ConfigOption) error {
	corsAllowedOriginsOptions := viper.GetString(co.Name)

	if corsAllowedOriginsOptions == "" {
		return fmt.Errorf("cors allowed addresses cannot be empty")
	}

	corsAllowedOrigins := strings.Split(corsAllowedOriginsOptions, ",")

	for _, address := range corsAllowedOrigins {
		if address == "*" {
			log.Warn(`The value "*" for the CORS Allowed Origins is too permissive and not recommended.`)
			continue
		}
		_, err := url.ParseRequestURI(address)
		if err != nil {
			return fmt.Errorf("error parsing cors addresses: %w", err)
		}
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}
	*key = corsAllowedOrigins

	return nil
}

func SetConfigOptionURLString(co *config.ConfigOption) error {
	u := viper.GetString(co.Name)
	if u == "" {
		return fmt.Errorf("url cannot be empty")
	}

	_, err := url.ParseRequestURI(u)
	if err != nil {
		return fmt.Errorf("error parsing url: %w", err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = u

	return nil
}

// SetConfigOptionNetworkPassphrase maps a network name to its passphrase.
func SetConfigOptionNetworkPassphrase(co *config.ConfigOption) error {
	networkName := strings.ToLower(strings.TrimSpace(viper.GetString(co.Name)))

	var passphrase string
	switch networkName {
	case "public", "mainnet":
		passphrase = network.PublicNetworkPassphrase
	case "testnet":
		passphrase = network.TestNetworkPassphrase
	case "futurenet":
		passphrase = network.FutureNetworkPassphrase
	case "standalone":
		passphrase = "Standalone Network ; February 2017"
	default:
		return fmt.Errorf("invalid network %q, expected one of: public, mainnet, testnet, futurenet, standalone", networkName)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = passphrase

	return nil
}

// SetConfigOptionAssets accepts either inline JSON or a path to a JSON file.
// The JSON is an array of asset objects keyed on their code.
func SetConfigOptionAssets(co *config.ConfigOption) error {
	raw := strings.TrimSpace(viper.GetString(co.Name))
	if raw == "" {
		return fmt.Errorf("assets cannot be empty")
	}

	if !strings.HasPrefix(raw, "[") && !strings.HasPrefix(raw, "{") {
		contents, err := os.ReadFile(raw)
		if err != nil {
			return fmt.Errorf("reading assets file %q: %w", raw, err)
		}
		raw = string(contents)
	}

	var assetList []anchor.Asset
	if err := json.Unmarshal([]byte(raw), &assetList); err != nil {
		return fmt.Errorf("parsing assets JSON: %w", err)
	}

	assetSet := make(anchor.AssetSet, len(assetList))
	for _, asset := range assetList {
		if asset.Code == "" {
			return fmt.Errorf("asset entry is missing a code")
		}
		if _, exists := assetSet[asset.Code]; exists {
			return fmt.Errorf("duplicate asset code %q", asset.Code)
		}
		assetSet[asset.Code] = asset
	}

	key, ok := co.ConfigKey.(*anchor.AssetSet)
	if !ok {
		return fmt.Errorf("the expected type for this config key is an asset set, but got a %T instead", co.ConfigKey)
	}
	*key = assetSet

	return nil
}

// SetConfigOptionDocumentation parses the optional documentation JSON block.
func SetConfigOptionDocumentation(co *config.ConfigOption) error {
	raw := strings.TrimSpace(viper.GetString(co.Name))

	key, ok := co.ConfigKey.(**anchor.Documentation)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a documentation pointer, but got a %T instead", co.ConfigKey)
	}
	if raw == "" {
		*key = nil
		return nil
	}

	var doc anchor.Documentation
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("parsing documentation JSON: %w", err)
	}
	*key = &doc

	return nil
}
