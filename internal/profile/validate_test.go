package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWallets_Validate(t *testing.T) {
	tests := []struct {
		name    string
		wallets Wallets
		wantErr string
	}{
		{name: "empty", wallets: Wallets{}},
		{name: "evm", wallets: Wallets{EVM: "0x52908400098527886E0F7030069857D2E4169EE7"}},
		{name: "btc legacy", wallets: Wallets{BTC: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}},
		{name: "btc bech32", wallets: Wallets{BTC: "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"}},
		{name: "ada shelley", wallets: Wallets{ADA: "addr1qx2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzer3n0d3vllmyqwsx5wktcd8cc3sq835lu7drv2xwl2wywfgse35a3x"}},
		{name: "evm too short", wallets: Wallets{EVM: "0x1234"}, wantErr: "evmAddress"},
		{name: "evm script", wallets: Wallets{EVM: "<script>alert(1)</script>"}, wantErr: "evmAddress"},
		{name: "btc bad chars", wallets: Wallets{BTC: "bc1OOOO0000IIII"}, wantErr: "btcAddress"},
		{name: "ada oversized", wallets: Wallets{ADA: "addr1" + strings.Repeat("q", 200)}, wantErr: "adaAddress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wallets.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidAddress)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWallets_Normalize(t *testing.T) {
	w := Wallets{EVM: "  0xabc ", BTC: "\tbc1\n"}.Normalize()
	assert.Equal(t, Wallets{EVM: "0xabc", BTC: "bc1"}, w)
}

func TestWallets_Merge(t *testing.T) {
	stored := Wallets{EVM: "0xA", BTC: "bc1"}
	assert.Equal(t, Wallets{EVM: "0xA", BTC: "bc1", ADA: "addr1"}, stored.Merge(Wallets{ADA: "addr1"}))
	assert.Equal(t, stored, stored.Merge(Wallets{}))
	assert.Equal(t, Wallets{EVM: "0xB", BTC: "bc1"}, stored.Merge(Wallets{EVM: "0xB"}))
}
