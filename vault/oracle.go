package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

// PriceOracle is the optional time-weighted price source consulted during LP
// purchases. A consult failure is advisory, not fatal.
type PriceOracle interface {
	Update(ctx context.Context) error
	// Consult returns the time-weighted token amount a given eth amount buys.
	Consult(ethAmountIn sdkmath.Int) (sdkmath.Int, error)
}

// TWAPOracle accumulates reserve ratios over time. Each Update weighs the
// current pool reserves by the seconds elapsed since the previous sample;
// Consult answers with the accumulated average.
type TWAPOracle struct {
	omu sync.Mutex

	router Router
	now    func() time.Time

	tokenWeighted sdkmath.Int
	ethWeighted   sdkmath.Int
	lastSample    time.Time
}

func NewTWAPOracle(router Router) *TWAPOracle {
	return &TWAPOracle{
		router:        router,
		now:           time.Now,
		tokenWeighted: sdkmath.ZeroInt(),
		ethWeighted:   sdkmath.ZeroInt(),
	}
}

func (o *TWAPOracle) Update(ctx context.Context) error {
	tokenReserve, ethReserve, err := o.router.GetReserves(ctx)
	if err != nil {
		return fmt.Errorf("oracle update: %w", err)
	}

	o.omu.Lock()
	defer o.omu.Unlock()

	now := o.now()
	if o.lastSample.IsZero() {
		// first sample carries unit weight
		o.tokenWeighted = tokenReserve
		o.ethWeighted = ethReserve
		o.lastSample = now
		return nil
	}

	elapsed := int64(now.Sub(o.lastSample) / time.Second)
	if elapsed <= 0 {
		return nil
	}

	o.tokenWeighted = o.tokenWeighted.Add(tokenReserve.MulRaw(elapsed))
	o.ethWeighted = o.ethWeighted.Add(ethReserve.MulRaw(elapsed))
	o.lastSample = now
	return nil
}

func (o *TWAPOracle) Consult(ethAmountIn sdkmath.Int) (sdkmath.Int, error) {
	o.omu.Lock()
	defer o.omu.Unlock()

	if o.ethWeighted.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("oracle has no samples yet")
	}
	return ethAmountIn.Mul(o.tokenWeighted).Quo(o.ethWeighted), nil
}
