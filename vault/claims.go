package vault

import (
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// claimLedger tracks the per-holder queues of locked claims. Appends keep
// insertion order; removal swaps the last entry into the removed slot, so
// after a claim the newest batch moves to the front.
type claimLedger struct {
	cmu    sync.Mutex
	claims map[common.Address][]*LockedClaim
}

func newClaimLedger() *claimLedger {
	return &claimLedger{claims: make(map[common.Address][]*LockedClaim)}
}

func (c *claimLedger) append(claim *LockedClaim) {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	c.claims[claim.Holder] = append(c.claims[claim.Holder], claim)
}

func (c *claimLedger) length(holder common.Address) int {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	return len(c.claims[holder])
}

func (c *claimLedger) get(holder common.Address, i int) (*LockedClaim, bool) {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	q := c.claims[holder]
	if i < 0 || i >= len(q) {
		return nil, false
	}
	return q[i], true
}

func (c *claimLedger) front(holder common.Address) (*LockedClaim, bool) {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	q := c.claims[holder]
	if len(q) == 0 {
		return nil, false
	}
	return q[0], true
}

// removeFront removes the front entry via swap-and-pop.
func (c *claimLedger) removeFront(holder common.Address) {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	q := c.claims[holder]
	if len(q) == 0 {
		return
	}
	q[0] = q[len(q)-1]
	q = q[:len(q)-1]
	if len(q) == 0 {
		delete(c.claims, holder)
		return
	}
	c.claims[holder] = q
}

// totalLocked is the sum of all outstanding claim amounts across holders.
func (c *claimLedger) totalLocked() sdkmath.Int {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	total := sdkmath.ZeroInt()
	for _, q := range c.claims {
		for _, claim := range q {
			total = total.Add(claim.Amount)
		}
	}
	return total
}

func (c *claimLedger) snapshot(holder common.Address) []*LockedClaim {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	q := c.claims[holder]
	out := make([]*LockedClaim, len(q))
	copy(out, q)
	return out
}

func (c *claimLedger) restore(claims []*LockedClaim) {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	c.claims = make(map[common.Address][]*LockedClaim)
	for _, claim := range claims {
		c.claims[claim.Holder] = append(c.claims[claim.Holder], claim)
	}
}
