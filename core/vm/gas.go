package vm

import "github.com/eth2030/evmcore/params"

// Gas is the gas ledger of one activation frame. remaining never exceeds
// limit; refunded may dip below zero inside a frame (EIP-2200 dirty-slot
// adjustments) but is non-negative by the time a frame is settled.
type Gas struct {
	limit     uint64
	remaining uint64
	refunded  int64
}

// NewGas returns a ledger with the whole limit available.
func NewGas(limit uint64) Gas {
	return Gas{limit: limit, remaining: limit}
}

// NewSpentGas returns a ledger whose limit is already fully consumed.
func NewSpentGas(limit uint64) Gas {
	return Gas{limit: limit}
}

// Limit returns the gas limit of the frame.
func (g *Gas) Limit() uint64 { return g.limit }

// Remaining returns the unspent gas.
func (g *Gas) Remaining() uint64 { return g.remaining }

// Refunded returns the accumulated refund counter.
func (g *Gas) Refunded() int64 { return g.refunded }

// Spend returns limit - remaining.
func (g *Gas) Spend() uint64 { return g.limit - g.remaining }

// RecordCost charges cost against the remaining gas. It reports false, and
// leaves the ledger untouched, when the frame cannot afford it; callers turn
// that into an out-of-gas halt.
func (g *Gas) RecordCost(cost uint64) bool {
	if cost > g.remaining {
		return false
	}
	g.remaining -= cost
	return true
}

// EraseCost hands back gas previously charged, e.g. what a finished child
// frame did not use.
func (g *Gas) EraseCost(returned uint64) {
	g.remaining += returned
	if g.remaining > g.limit {
		panic("vm: gas remaining exceeds limit")
	}
}

// SpendAll consumes every remaining unit.
func (g *Gas) SpendAll() {
	g.remaining = 0
}

// RecordRefund adds to the refund counter. Negative values are used by
// SSTORE to take back refunds granted earlier in the same transaction.
func (g *Gas) RecordRefund(refund int64) {
	g.refunded += refund
}

// SetRefund overwrites the refund counter.
func (g *Gas) SetRefund(refund int64) {
	g.refunded = refund
}

// SetFinalRefund caps the refund at Spend()/quotient, where the quotient is
// 2 before London and 5 from London on. With refunds disabled the counter is
// cleared. Reapplying it with the same spend leaves the value unchanged.
func (g *Gas) SetFinalRefund(spec params.SpecID, enabled bool) {
	if !enabled || g.refunded < 0 {
		g.refunded = 0
		return
	}
	max := g.Spend() / spec.RefundQuotient()
	if uint64(g.refunded) > max {
		g.refunded = int64(max)
	}
}
