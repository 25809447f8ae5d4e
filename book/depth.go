package book

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/igrmk/treemap/v2"
)

// ErrSequenceGap is returned by AggregatedBook.Replay when a BookLog's
// sequence number does not directly follow the last one processed: a prior
// event was missed, or this one is a repeat or out of order.
var ErrSequenceGap = errors.New("book: sequence gap detected during replay")

// AggregatedBook maintains a simplified, price→size depth view of a single
// instrument, built purely by replaying BookLog events rather than by
// reading the live SideBooks directly. Downstream consumers (DEBUG ORDERS,
// or an external subscriber reading the async log fan-out) rebuild depth
// this way instead of touching the matching core.
type AggregatedBook struct {
	seqID atomic.Uint64
	bid   *treemap.TreeMap[uint64, uint64]
	ask   *treemap.TreeMap[uint64, uint64]
}

func lessUint64(a, b uint64) bool { return a < b }

// NewAggregatedBook creates an empty depth view.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		bid: treemap.NewWithKeyCompare[uint64, uint64](lessUint64),
		ask: treemap.NewWithKeyCompare[uint64, uint64](lessUint64),
	}
}

// SequenceID returns the last processed BookLog sequence number.
func (ab *AggregatedBook) SequenceID() uint64 {
	return ab.seqID.Load()
}

// Replay applies one BookLog to the depth view. Reject events only advance
// the sequence cursor. Open events add resting size on the order's own
// side/price. Cancel events remove it the same way. A Match event removes
// resting size from the maker's side/price — the opposite side from
// log.Side, at log.Price, since the execution price is always the maker's
// resting price — and, when TakerRestingPrice is non-zero (the taker order
// was itself resting, i.e. a Limit order crossed via drainCrosses), also
// removes resting size from the taker's own side/price, which is not
// log.Price whenever the taker's limit and the execution price differ.
func (ab *AggregatedBook) Replay(log *BookLog) error {
	last := ab.seqID.Load()
	if last != 0 && log.SequenceID != last+1 {
		return errors.Wrapf(ErrSequenceGap, "expected sequence %d, got %d", last+1, log.SequenceID)
	}
	ab.seqID.Store(log.SequenceID)

	switch log.Type {
	case LogTypeReject:
		return nil
	case LogTypeOpen:
		ab.adjust(log.Side, log.Price, int64(log.Qty))
	case LogTypeCancel:
		ab.adjust(log.Side, log.Price, -int64(log.Qty))
	case LogTypeMatch:
		ab.adjust(log.Side.Opposite(), log.Price, -int64(log.Qty))
		if log.TakerRestingPrice != 0 {
			ab.adjust(log.Side, log.TakerRestingPrice, -int64(log.Qty))
		}
	}
	return nil
}

func (ab *AggregatedBook) adjust(side Side, price uint64, delta int64) {
	side_ := ab.sideMap(side)
	cur, _ := side_.Get(price)
	next := int64(cur) + delta
	if next <= 0 {
		side_.Del(price)
		return
	}
	side_.Set(price, uint64(next))
}

func (ab *AggregatedBook) sideMap(side Side) *treemap.TreeMap[uint64, uint64] {
	if side == Buy {
		return ab.bid
	}
	return ab.ask
}

// OnRebuild discards all accumulated depth and resets the sequence cursor,
// for use before replaying a fresh event stream from the beginning.
func (ab *AggregatedBook) OnRebuild() {
	ab.seqID.Store(0)
	ab.bid = treemap.NewWithKeyCompare[uint64, uint64](lessUint64)
	ab.ask = treemap.NewWithKeyCompare[uint64, uint64](lessUint64)
}

// Depth returns the aggregated resting size at price on the given side.
func (ab *AggregatedBook) Depth(side Side, price uint64) uint64 {
	qty, _ := ab.sideMap(side).Get(price)
	return qty
}

// DepthLevel is one row of a top-N depth dump.
type DepthLevel struct {
	Price uint64
	Qty   uint64
}

// Top returns up to n levels from the given side, best price first.
func (ab *AggregatedBook) Top(side Side, n int) []DepthLevel {
	if n <= 0 {
		return nil
	}
	m := ab.sideMap(side)
	out := make([]DepthLevel, 0, n)

	if side == Buy {
		for it := m.Reverse(); it.Valid() && len(out) < n; it.Next() {
			out = append(out, DepthLevel{Price: it.Key(), Qty: it.Value()})
		}
		return out
	}

	for it := m.Iterator(); it.Valid() && len(out) < n; it.Next() {
		out = append(out, DepthLevel{Price: it.Key(), Qty: it.Value()})
	}
	return out
}
