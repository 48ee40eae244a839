package vault

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hardcorefi/hardcore-client/types"
)

// bank is the native currency ledger shared by the purchase and rescue flows.
// Amounts are in the smallest currency unit.
type bank struct {
	bmu      sync.Mutex
	balances map[common.Address]sdkmath.Int
}

func newBank() *bank {
	return &bank{balances: make(map[common.Address]sdkmath.Int)}
}

func (b *bank) BalanceOf(addr common.Address) sdkmath.Int {
	b.bmu.Lock()
	defer b.bmu.Unlock()

	bal, ok := b.balances[addr]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}

func (b *bank) Mint(addr common.Address, amount sdkmath.Int) {
	b.bmu.Lock()
	defer b.bmu.Unlock()

	b.balances[addr] = b.balance(addr).Add(amount)
}

func (b *bank) Transfer(from, to common.Address, amount sdkmath.Int) error {
	b.bmu.Lock()
	defer b.bmu.Unlock()

	if b.balance(from).LT(amount) {
		return fmt.Errorf("eth transfer from %s: %w", from, types.ErrInsufficientBalance)
	}
	b.balances[from] = b.balance(from).Sub(amount)
	b.balances[to] = b.balance(to).Add(amount)
	return nil
}

// balance must be called with bmu held.
func (b *bank) balance(addr common.Address) sdkmath.Int {
	bal, ok := b.balances[addr]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}
