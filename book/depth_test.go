package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatedBook_OpenAddsDepth(t *testing.T) {
	ab := NewAggregatedBook()
	err := ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Buy, Price: 100, Qty: 5})
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), ab.Depth(Buy, 100))
}

func TestAggregatedBook_MatchReducesMakerDepthAndClearsAtZero(t *testing.T) {
	ab := NewAggregatedBook()
	ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Buy, Price: 100, Qty: 5})
	// A resting buy at 100 matched by an incoming sell: the log carries the
	// taker's side (Sell) and the execution price (100, the maker's resting
	// price), not an ask. Depth must come off the bid at 100, not a
	// nonexistent ask at 100.
	ab.Replay(&BookLog{SequenceID: 2, Type: LogTypeMatch, Side: Sell, Price: 100, Qty: 5})

	assert.Equal(t, uint64(0), ab.Depth(Buy, 100))
}

func TestAggregatedBook_MatchReducesBothTakerAndMakerDepthWhenTakerRests(t *testing.T) {
	ab := NewAggregatedBook()
	// Resting bids 5@101, 5@100. Incoming sell 8@99 rests first (Open at
	// Sell/99/8), then crosses both levels: 5@101 then 3@100.
	ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Buy, Price: 101, Qty: 5})
	ab.Replay(&BookLog{SequenceID: 2, Type: LogTypeOpen, Side: Buy, Price: 100, Qty: 5})
	ab.Replay(&BookLog{SequenceID: 3, Type: LogTypeOpen, Side: Sell, Price: 99, Qty: 8})
	ab.Replay(&BookLog{SequenceID: 4, Type: LogTypeMatch, Side: Sell, Price: 101, Qty: 5, TakerRestingPrice: 99})
	ab.Replay(&BookLog{SequenceID: 5, Type: LogTypeMatch, Side: Sell, Price: 100, Qty: 3, TakerRestingPrice: 99})

	assert.Equal(t, uint64(0), ab.Depth(Buy, 101))
	assert.Equal(t, uint64(2), ab.Depth(Buy, 100))
	assert.Equal(t, uint64(0), ab.Depth(Sell, 99))
}

func TestAggregatedBook_MatchWithNonRestingTakerOnlyReducesMakerDepth(t *testing.T) {
	ab := NewAggregatedBook()
	ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Sell, Price: 100, Qty: 5})
	// An IOC/Market/FOK taker never rests, so TakerRestingPrice is zero and
	// no taker-side depth exists to remove.
	ab.Replay(&BookLog{SequenceID: 2, Type: LogTypeMatch, Side: Buy, Price: 100, Qty: 5})

	assert.Equal(t, uint64(0), ab.Depth(Sell, 100))
}

func TestAggregatedBook_RejectOnlyAdvancesSequence(t *testing.T) {
	ab := NewAggregatedBook()
	ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeReject, Side: Buy, Price: 100, Qty: 5})
	assert.Equal(t, uint64(0), ab.Depth(Buy, 100))
	assert.Equal(t, uint64(1), ab.SequenceID())
}

func TestAggregatedBook_ReplayDetectsSequenceGap(t *testing.T) {
	ab := NewAggregatedBook()
	ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Buy, Price: 100, Qty: 5})
	err := ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Buy, Price: 100, Qty: 5})
	assert.ErrorIs(t, err, ErrSequenceGap)
}

func TestAggregatedBook_TopOrdersBestFirst(t *testing.T) {
	ab := NewAggregatedBook()
	ab.Replay(&BookLog{SequenceID: 1, Type: LogTypeOpen, Side: Buy, Price: 100, Qty: 5})
	ab.Replay(&BookLog{SequenceID: 2, Type: LogTypeOpen, Side: Buy, Price: 105, Qty: 3})
	ab.Replay(&BookLog{SequenceID: 3, Type: LogTypeOpen, Side: Sell, Price: 110, Qty: 2})
	ab.Replay(&BookLog{SequenceID: 4, Type: LogTypeOpen, Side: Sell, Price: 108, Qty: 4})

	bids := ab.Top(Buy, 10)
	assert.Equal(t, []DepthLevel{{Price: 105, Qty: 3}, {Price: 100, Qty: 5}}, bids)

	asks := ab.Top(Sell, 10)
	assert.Equal(t, []DepthLevel{{Price: 108, Qty: 4}, {Price: 110, Qty: 2}}, asks)
}
