package anchor

import (
	"testing"

	"github.com/stellar/go-stellar-sdk/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AssetSet_Normalize(t *testing.T) {
	t.Run("empty set is a misconfiguration", func(t *testing.T) {
		require.EqualError(t, AssetSet{}.Normalize(), "at least one asset must be configured")
	})

	t.Run("fills codes and display decimals", func(t *testing.T) {
		assets := AssetSet{
			"USDC": {Issuer: "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"},
			"SRT":  {Code: "SRT", DisplayDecimals: 2},
		}
		require.NoError(t, assets.Normalize())

		assert.Equal(t, "USDC", assets["USDC"].Code)
		assert.Equal(t, 7, assets["USDC"].DisplayDecimals)
		assert.Equal(t, 2, assets["SRT"].DisplayDecimals)
	})
}

func Test_AssetSet_Find(t *testing.T) {
	assets := AssetSet{"USDC": {Code: "USDC"}}

	_, ok := assets.Find("USDC")
	assert.True(t, ok)

	found, ok := assets.Find("usdc")
	assert.True(t, ok)
	assert.Equal(t, "USDC", found.Code)

	_, ok = assets.Find("ABC")
	assert.False(t, ok)
}

func Test_Asset_TomlCode(t *testing.T) {
	assert.Equal(t, "native", Asset{Code: "native"}.TomlCode())
	assert.Equal(t, "native", Asset{Code: "XLM"}.TomlCode())
	assert.Equal(t, "USDC", Asset{Code: "USDC"}.TomlCode())
}

func Test_Asset_EffectiveStatus(t *testing.T) {
	testCases := []struct {
		name       string
		status     AssetStatus
		passphrase string
		wantStatus AssetStatus
		wantEmit   bool
	}{
		{name: "explicit live", status: AssetStatusLive, passphrase: network.TestNetworkPassphrase, wantStatus: AssetStatusLive, wantEmit: true},
		{name: "explicit test", status: AssetStatusTest, passphrase: network.PublicNetworkPassphrase, wantStatus: AssetStatusTest, wantEmit: true},
		{name: "dead is omitted", status: AssetStatusDead, passphrase: network.PublicNetworkPassphrase, wantEmit: false},
		{name: "private is omitted", status: AssetStatusPrivate, passphrase: network.TestNetworkPassphrase, wantEmit: false},
		{name: "default on pubnet is live", passphrase: network.PublicNetworkPassphrase, wantStatus: AssetStatusLive, wantEmit: true},
		{name: "default on testnet is test", passphrase: network.TestNetworkPassphrase, wantStatus: AssetStatusTest, wantEmit: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, emit := Asset{Status: tc.status}.EffectiveStatus(tc.passphrase)
			assert.Equal(t, tc.wantEmit, emit)
			if tc.wantEmit {
				assert.Equal(t, tc.wantStatus, status)
			}
		})
	}
}

func Test_BaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", BaseURL("localhost:8000"))
	assert.Equal(t, "http://127.0.0.1:8000", BaseURL("127.0.0.1:8000"))
	assert.Equal(t, "https://anchor.example.com", BaseURL("anchor.example.com"))
}
