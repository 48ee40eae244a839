package vault

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// LockedClaim is one purchaser's pending liquidity token release.
type LockedClaim struct {
	Holder          common.Address
	Amount          sdkmath.Int
	UnlockTimestamp int64
}

// Ledger is the fungible token surface the vault components consume.
type Ledger interface {
	BalanceOf(addr common.Address) sdkmath.Int
	Transfer(from, to common.Address, amount sdkmath.Int) error
}

// BurnLedger extends Ledger with a supply-reducing burn, used by the fee
// distributor's burn sink.
type BurnLedger interface {
	Ledger
	Burn(from common.Address, amount sdkmath.Int) error
	TotalSupply() sdkmath.Int
}

var zeroAddress common.Address

func isZeroAddress(addr common.Address) bool {
	return addr == zeroAddress
}
