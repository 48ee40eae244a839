package types

import (
	errorsmod "cosmossdk.io/errors"
)

// Sentinel errors shared by the vault, fee and rescue components.
var (
	ErrNotOwner             = errorsmod.Register(ModuleName, 2, "caller is not the owner")
	ErrSystemNotInitialized = errorsmod.Register(ModuleName, 3, "system not yet initialized")
	ErrDistributorNotSeeded = errorsmod.Register(ModuleName, 4, "fees cannot be distributed until distributor seeded")
	ErrNotSeeded            = errorsmod.Register(ModuleName, 5, "component not seeded")

	ErrZeroValue   = errorsmod.Register(ModuleName, 6, "eth required to mint Hardcore LP")
	ErrZeroAmount  = errorsmod.Register(ModuleName, 7, "LP amount should not be zero")
	ErrZeroAddress = errorsmod.Register(ModuleName, 8, "address must not be zero")

	ErrInsufficientTokenBalance = errorsmod.Register(ModuleName, 9, "insufficient HardCore in LiquidVault")
	ErrInsufficientBalance      = errorsmod.Register(ModuleName, 10, "insufficient balance")

	ErrStillLocked            = errorsmod.Register(ModuleName, 11, "LP still locked")
	ErrNoLockedLP             = errorsmod.Register(ModuleName, 12, "no locked LP")
	ErrNothingToClaim         = errorsmod.Register(ModuleName, 13, "nothing to claim")
	ErrBatchInsertionDisabled = errorsmod.Register(ModuleName, 14, "manual batch insertion is no longer allowed")

	ErrOwnershipNotTransferred = errorsmod.Register(ModuleName, 15, "transfer ownership of LV first")
	ErrNoEtherProvided         = errorsmod.Register(ModuleName, 16, "flash rescue must have eth")
	ErrConfigNotCaptured       = errorsmod.Register(ModuleName, 17, "LV configuration not captured")
	ErrSequenceExhausted       = errorsmod.Register(ModuleName, 18, "rescue sequence already complete")

	ErrPriceTooHigh = errorsmod.Register(ModuleName, 19, "purchase price deviates from oracle")
)
