package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func limitOrder(id string, side Side, qty, price uint64) *Order {
	return &Order{
		ID:         id,
		ClientID:   id + "-client",
		Price:      price,
		InitialQty: qty,
		Remaining:  qty,
		Side:       side,
		Type:       Limit,
	}
}

func TestInstrument_EmptyBookResting(t *testing.T) {
	ins := NewInstrument("X")
	logs := ins.Place(limitOrder("a", Buy, 10, 100))

	assert.Len(t, logs, 1)
	assert.Equal(t, LogTypeOpen, logs[0].Type)
	bid, ok := ins.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), bid)
	_, ok = ins.BestAsk()
	assert.False(t, ok)
}

func TestInstrument_ImmediateFullCross(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Buy, 10, 100))
	logs := ins.Place(limitOrder("b", Sell, 10, 100))

	var matches []*BookLog
	for _, l := range logs {
		if l.Type == LogTypeMatch {
			matches = append(matches, l)
		}
	}
	assert.Len(t, matches, 1)
	assert.Equal(t, uint64(10), matches[0].Qty)
	assert.Equal(t, uint64(100), matches[0].Price)
	assert.True(t, ins.Uncrossed())
	_, ok := ins.BestBid()
	assert.False(t, ok)
	_, ok = ins.BestAsk()
	assert.False(t, ok)
}

func TestInstrument_PartialCrossRestsAtMakerPrice(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Buy, 10, 100))
	logs := ins.Place(limitOrder("b", Sell, 4, 95))

	var match *BookLog
	for _, l := range logs {
		if l.Type == LogTypeMatch {
			match = l
		}
	}
	assert.NotNil(t, match)
	assert.Equal(t, uint64(4), match.Qty)
	assert.Equal(t, uint64(100), match.Price)

	bid, ok := ins.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), bid)
	assert.Equal(t, uint64(100), ins.Stats.LastTradePrice)
	assert.Equal(t, uint64(4), ins.Stats.LastTradeQty)
}

func TestInstrument_PricePriority(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Buy, 5, 101))
	ins.Place(limitOrder("b", Buy, 5, 100))

	ins.Place(limitOrder("c", Sell, 8, 99))

	bid, ok := ins.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), bid)
	best := ins.TopBids(1)
	assert.Equal(t, "b", best[0].ID)
	assert.Equal(t, uint64(2), best[0].Remaining)
}

func TestInstrument_TimePriority(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Buy, 5, 100))
	ins.Place(limitOrder("b", Buy, 5, 100))

	ins.Place(limitOrder("c", Sell, 5, 100))

	top := ins.TopBids(1)
	assert.Equal(t, "b", top[0].ID)
	assert.Equal(t, uint64(5), top[0].Remaining)
}

func TestInstrument_MarketOrderWalksLiquidityAndDropsResidual(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Sell, 5, 100))
	ins.Place(limitOrder("b", Sell, 5, 101))

	market := &Order{ID: "taker", ClientID: "taker-client", Side: Buy, Type: Market, InitialQty: 20, Remaining: 20}
	logs := ins.Place(market)

	var filled uint64
	for _, l := range logs {
		if l.Type == LogTypeMatch {
			filled += l.Qty
		}
	}
	assert.Equal(t, uint64(10), filled)
	assert.Equal(t, uint64(10), market.Filled)
	assert.Equal(t, uint64(10), market.Remaining)
	_, ok := ins.BestAsk()
	assert.False(t, ok)
}

func TestInstrument_IOCDropsUnfilledResidual(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Sell, 3, 100))

	ioc := &Order{ID: "taker", ClientID: "taker-client", Side: Buy, Type: IOC, Price: 100, InitialQty: 10, Remaining: 10}
	logs := ins.Place(ioc)

	assert.Equal(t, uint64(3), ioc.Filled)
	assert.Equal(t, uint64(7), ioc.Remaining)
	found := false
	for _, l := range logs {
		if l.Type == LogTypeOpen {
			found = true
		}
	}
	assert.False(t, found, "IOC must never rest")
}

func TestInstrument_FOKRejectsWhenInsufficientLiquidity(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Sell, 3, 100))

	fok := &Order{ID: "taker", ClientID: "taker-client", Side: Buy, Type: FOK, Price: 100, InitialQty: 10, Remaining: 10}
	logs := ins.Place(fok)

	assert.Len(t, logs, 1)
	assert.Equal(t, LogTypeReject, logs[0].Type)
	assert.Equal(t, RejectReasonInsufficient, logs[0].RejectReason)
	assert.Equal(t, uint64(0), fok.Filled)

	ask, ok := ins.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), ask)
}

func TestInstrument_FOKFillsCompletelyWhenLiquiditySuffices(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Sell, 10, 100))

	fok := &Order{ID: "taker", ClientID: "taker-client", Side: Buy, Type: FOK, Price: 100, InitialQty: 10, Remaining: 10}
	logs := ins.Place(fok)

	assert.Equal(t, uint64(10), fok.Filled)
	var matched uint64
	for _, l := range logs {
		if l.Type == LogTypeMatch {
			matched += l.Qty
		}
	}
	assert.Equal(t, uint64(10), matched)
}

func TestInstrument_PostOnlyRejectsWhenItWouldCross(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Sell, 5, 100))

	po := &Order{ID: "taker", ClientID: "taker-client", Side: Buy, Type: PostOnly, Price: 101, InitialQty: 5, Remaining: 5}
	logs := ins.Place(po)

	assert.Len(t, logs, 1)
	assert.Equal(t, LogTypeReject, logs[0].Type)
	assert.Equal(t, RejectReasonWouldCross, logs[0].RejectReason)
	_, ok := ins.BestBid()
	assert.False(t, ok)
}

func TestInstrument_PostOnlyRestsWhenItWouldNotCross(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("a", Sell, 5, 100))

	po := &Order{ID: "taker", ClientID: "taker-client", Side: Buy, Type: PostOnly, Price: 99, InitialQty: 5, Remaining: 5}
	logs := ins.Place(po)

	assert.Len(t, logs, 1)
	assert.Equal(t, LogTypeOpen, logs[0].Type)
	bid, ok := ins.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint64(99), bid)
}

func TestInstrument_CancelNonRestingIsIdempotent(t *testing.T) {
	ins := NewInstrument("X")
	assert.False(t, ins.Cancel(Buy, "missing", ""))
}

func TestInstrument_ConservationOfFillsAcrossSequence(t *testing.T) {
	ins := NewInstrument("X")
	ins.Place(limitOrder("b1", Buy, 5, 101))
	ins.Place(limitOrder("b2", Buy, 5, 100))
	logs := ins.Place(limitOrder("s1", Sell, 8, 99))

	var buyQty, sellQty uint64
	var buyNotional, sellNotional uint64
	for _, l := range logs {
		if l.Type != LogTypeMatch {
			continue
		}
		buyQty += l.Qty
		sellQty += l.Qty
		buyNotional += l.Qty * l.Price
		sellNotional += l.Qty * l.Price
	}
	assert.Equal(t, buyQty, sellQty)
	assert.Equal(t, buyNotional, sellNotional)
}
