package vault

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hardcorefi/hardcore-client/types"
)

// HardCoreToken is the fungible ledger with the taxed transfer hook: every
// transfer consults the fee approver, routes the fee to the distributor and
// settles the remainder, all under one lock so balances never show a partial
// transfer.
type HardCoreToken struct {
	tmu sync.Mutex

	address     common.Address
	owner       common.Address
	balances    map[common.Address]sdkmath.Int
	totalSupply sdkmath.Int

	approver    *FeeApprover
	distributor common.Address
	liquidVault *LiquidVault

	logger *zap.Logger
}

func NewHardCoreToken(address, owner common.Address, initialSupply sdkmath.Int, logger *zap.Logger) *HardCoreToken {
	t := &HardCoreToken{
		address:     address,
		owner:       owner,
		balances:    make(map[common.Address]sdkmath.Int),
		totalSupply: initialSupply,
		logger:      logger.With(zap.String("module", "hardcore-token")),
	}
	t.balances[owner] = initialSupply
	return t
}

// InitialSetup wires the fee approver, the distributor sink and the vault used
// by TransferGrabLP. Until it runs, transfers are rejected.
func (t *HardCoreToken) InitialSetup(approver *FeeApprover, distributor common.Address, liquidVault *LiquidVault) {
	t.tmu.Lock()
	defer t.tmu.Unlock()

	t.approver = approver
	t.distributor = distributor
	t.liquidVault = liquidVault
}

func (t *HardCoreToken) Address() common.Address { return t.address }

func (t *HardCoreToken) BalanceOf(addr common.Address) sdkmath.Int {
	t.tmu.Lock()
	defer t.tmu.Unlock()
	return t.balance(addr)
}

func (t *HardCoreToken) TotalSupply() sdkmath.Int {
	t.tmu.Lock()
	defer t.tmu.Unlock()
	return t.totalSupply
}

// Transfer moves amount from -> to, routing the approved fee to the
// distributor. Fails atomically: on any error no balance changes.
func (t *HardCoreToken) Transfer(from, to common.Address, amount sdkmath.Int) error {
	_, _, err := t.transfer(from, to, amount)
	return err
}

func (t *HardCoreToken) transfer(from, to common.Address, amount sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	t.tmu.Lock()
	defer t.tmu.Unlock()

	if t.approver == nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("token transfer: %w", types.ErrSystemNotInitialized)
	}

	net, fee, err := t.approver.CalculateAmountsAfterFee(from, to, amount)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	if t.balance(from).LT(amount) {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("token transfer from %s: %w", from, types.ErrInsufficientBalance)
	}

	t.balances[from] = t.balance(from).Sub(amount)
	t.balances[to] = t.balance(to).Add(net)
	t.balances[t.distributor] = t.balance(t.distributor).Add(fee)
	return net, fee, nil
}

// revertTransfer unwinds a settled transfer; the amounts must be the ones the
// transfer reported.
func (t *HardCoreToken) revertTransfer(from, to common.Address, amount, net, fee sdkmath.Int) {
	t.tmu.Lock()
	defer t.tmu.Unlock()

	t.balances[to] = t.balance(to).Sub(net)
	t.balances[t.distributor] = t.balance(t.distributor).Sub(fee)
	t.balances[from] = t.balance(from).Add(amount)
}

// Burn destroys amount from the given holder, reducing total supply.
func (t *HardCoreToken) Burn(from common.Address, amount sdkmath.Int) error {
	t.tmu.Lock()
	defer t.tmu.Unlock()

	if t.balance(from).LT(amount) {
		return fmt.Errorf("token burn from %s: %w", from, types.ErrInsufficientBalance)
	}
	t.balances[from] = t.balance(from).Sub(amount)
	t.totalSupply = t.totalSupply.Sub(amount)
	return nil
}

// TransferGrabLP is the taxed transfer-with-purchase flow: a regular taxed
// transfer of amount from -> to, plus an LP purchase with the attached native
// value, credited to the sender. A failed purchase unwinds the transfer.
func (t *HardCoreToken) TransferGrabLP(from, to common.Address, amount, value sdkmath.Int) error {
	t.tmu.Lock()
	vault := t.liquidVault
	t.tmu.Unlock()

	if vault == nil {
		return fmt.Errorf("transfer grab LP: %w", types.ErrSystemNotInitialized)
	}

	net, fee, err := t.transfer(from, to, amount)
	if err != nil {
		return fmt.Errorf("transfer grab LP: %w", err)
	}

	if _, err := vault.PurchaseLP(from, value); err != nil {
		t.revertTransfer(from, to, amount, net, fee)
		return fmt.Errorf("transfer grab LP: %w", err)
	}
	return nil
}

// balance must be called with tmu held.
func (t *HardCoreToken) balance(addr common.Address) sdkmath.Int {
	bal, ok := t.balances[addr]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}
