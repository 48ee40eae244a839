package vault

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/types"
)

// FeeDistributor splits the taxed tokens accumulated on its address into a
// burn, a vault seed and a treasury fund transfer.
type FeeDistributor struct {
	dmu sync.Mutex

	address common.Address
	owner   common.Address

	token       BurnLedger
	liquidVault common.Address
	nftFund     common.Address

	liquidVaultShare int64
	burnPercentage   int64
	seeded           bool

	events *eventEmitter
	logger *zap.Logger
}

func NewFeeDistributor(address, owner common.Address, eventCh chan<- Event, logger *zap.Logger) *FeeDistributor {
	return &FeeDistributor{
		address: address,
		owner:   owner,
		events:  newEventEmitter(eventCh, logger),
		logger:  logger.With(zap.String("module", "fee-distributor")),
	}
}

func (d *FeeDistributor) Address() common.Address { return d.address }

func (d *FeeDistributor) Seed(
	caller common.Address,
	token BurnLedger,
	liquidVault, nftFund common.Address,
	liquidVaultShare, burnPercentage int64,
) error {
	d.dmu.Lock()
	defer d.dmu.Unlock()

	if caller != d.owner {
		return fmt.Errorf("fee distributor: %w", types.ErrNotOwner)
	}

	d.token = token
	d.liquidVault = liquidVault
	d.nftFund = nftFund
	d.liquidVaultShare = liquidVaultShare
	d.burnPercentage = burnPercentage
	d.seeded = true
	return nil
}

// DistributeFees drains the distributor balance: burnPercentage% is burned,
// liquidVaultShare% seeds the vault, the remainder goes to the NFT fund.
// Shares are computed as balance/100*pct, matching the source rounding.
func (d *FeeDistributor) DistributeFees() error {
	d.dmu.Lock()
	defer d.dmu.Unlock()

	if !d.seeded {
		return fmt.Errorf("distribute fees: %w", types.ErrDistributorNotSeeded)
	}

	balance := d.token.BalanceOf(d.address)
	if balance.IsZero() {
		return nil
	}

	burnAmount := balance.QuoRaw(100).MulRaw(d.burnPercentage)
	vaultAmount := balance.QuoRaw(100).MulRaw(d.liquidVaultShare)
	fundAmount := balance.Sub(burnAmount).Sub(vaultAmount)

	if burnAmount.IsPositive() {
		if err := d.token.Burn(d.address, burnAmount); err != nil {
			return fmt.Errorf("distribute fees burn: %w", err)
		}
	}
	if vaultAmount.IsPositive() {
		if err := d.token.Transfer(d.address, d.liquidVault, vaultAmount); err != nil {
			return fmt.Errorf("distribute fees vault share: %w", err)
		}
	}
	if fundAmount.IsPositive() {
		if err := d.token.Transfer(d.address, d.nftFund, fundAmount); err != nil {
			return fmt.Errorf("distribute fees fund share: %w", err)
		}
	}

	d.logger.Info("fees distributed",
		zap.String("burned", burnAmount.String()),
		zap.String("vault", vaultAmount.String()),
		zap.String("fund", fundAmount.String()),
	)
	d.events.emit(Event{
		Kind:      EventDistribution,
		Holder:    d.address,
		Amount:    balance,
		FeeAmount: burnAmount,
	})
	return nil
}

// Balance is the undistributed fee balance.
func (d *FeeDistributor) Balance() sdkmath.Int {
	d.dmu.Lock()
	defer d.dmu.Unlock()

	if d.token == nil {
		return sdkmath.ZeroInt()
	}
	return d.token.BalanceOf(d.address)
}
