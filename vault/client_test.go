package vault

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardcorefi/hardcore-client/config"
)

func testClientConfig() config.Config {
	return config.Config{
		LogLevel: "info",
		Token: config.TokenConfig{
			Address:       tokenAddr.Hex(),
			Owner:         ownerAddr.Hex(),
			InitialSupply: "10000000000000",
		},
		FeeApprover: config.FeeApproverConfig{FeePercentX100: 10},
		Distributor: config.DistributorConfig{
			Address:          distAddr.Hex(),
			NFTFund:          fundAddr.Hex(),
			LiquidVaultShare: 40,
			BurnPercentage:   1,
			Interval:         time.Second,
		},
		Vault: config.VaultConfig{
			Address:            vaultAddr.Hex(),
			PurchaseFeePercent: 10,
			ExitFeePercent:     10,
			EthFeeReceiver:     charityAddr.Hex(),
		},
		Rescue: config.RescueConfig{
			Address:  rescueAddr.Hex(),
			Funding:  "1000000",
			Interval: time.Millisecond,
		},
	}
}

func TestVaultClient_bootstrapRescue(t *testing.T) {
	ctx := context.Background()
	cfg := testClientConfig()
	router := &mockRouter{
		pair:         pairAddr,
		tokenReserve: sdkmath.NewInt(1_000_000_000_000),
		ethReserve:   sdkmath.NewInt(1_000_000_000_000),
		lp:           newBank(),
	}

	vc, err := NewVaultClient(ctx, cfg, nil, WithRouter(router))
	require.NoError(t, err)
	require.NoError(t, vc.Bootstrap(ctx, cfg))

	require.NoError(t, vc.BootstrapRescue(ctx, cfg))

	assert.True(t, vc.Rescue().Seeded())
	assert.True(t, vc.Rescue().ConfigCaptured())
	assert.Equal(t, vc.Rescue().Address(), vc.Vault().Owner())

	// already captured, running it again changes nothing
	require.NoError(t, vc.BootstrapRescue(ctx, cfg))
}

func TestVaultClient_routerRequiresSigner(t *testing.T) {
	cfg := testClientConfig()
	cfg.Router.NodeAddress = "http://localhost:8545"

	_, err := NewVaultClient(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signing key")
}

func TestNewTransactOpts(t *testing.T) {
	// well-known development key
	opts, err := NewTransactOpts("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", 1337)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), opts.From)

	_, err = NewTransactOpts("not-a-key", 1337)
	require.Error(t, err)
}
