package book

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stats holds the per-instrument market statistics the matching loop
// maintains as trades happen.
type Stats struct {
	LastTradePrice uint64
	LastTradeQty   uint64
	LastTradeTime  time.Time
	Open           uint64
	High           uint64
	Low            uint64
	Close          uint64
	VolumeToday    uint64
	VWAPNumerator  decimal.Decimal
}

// VWAP returns the volume-weighted average trade price for the session, or
// zero if nothing has traded yet.
func (s *Stats) VWAP() decimal.Decimal {
	if s.VolumeToday == 0 {
		return decimal.Zero
	}
	return s.VWAPNumerator.Div(decimal.NewFromInt(int64(s.VolumeToday)))
}

// Instrument holds two SideBooks plus market statistics for one symbol,
// running the price-time-priority matching loop on every placement.
type Instrument struct {
	Symbol string

	buy  *sideBook
	sell *sideBook

	Stats Stats

	seqID   uint64
	tradeID uint64
}

// NewInstrument creates an empty instrument for symbol.
func NewInstrument(symbol string) *Instrument {
	return &Instrument{
		Symbol: symbol,
		buy:    newSideBook(Buy),
		sell:   newSideBook(Sell),
	}
}

func (ins *Instrument) nextSeq() uint64 {
	ins.seqID++
	return ins.seqID
}

func (ins *Instrument) nextTradeID() uint64 {
	ins.tradeID++
	return ins.tradeID
}

func (ins *Instrument) sideBookFor(s Side) (own, opp *sideBook) {
	if s == Buy {
		return ins.buy, ins.sell
	}
	return ins.sell, ins.buy
}

// Place submits order for matching and returns the sequence of BookLog
// events it produced, in the order they happened. The caller (the command
// dispatcher) is responsible for turning these into EXEC/F1 notifications
// and for persisting nothing further — this method's only side effects are
// on the instrument's own two SideBooks and Stats.
func (ins *Instrument) Place(o *Order) []*BookLog {
	if err := ins.validate(o); err != nil {
		logger.Warn("order failed validation", zap.String("order_id", o.ID), zap.Error(err))
		return []*BookLog{ins.reject(o, RejectReasonInvalid)}
	}

	switch o.Type {
	case Limit:
		return ins.placeLimit(o)
	case Market:
		return ins.placeMarket(o)
	case IOC:
		return ins.placeIOC(o)
	case FOK:
		return ins.placeFOK(o)
	case PostOnly:
		return ins.placePostOnly(o)
	default:
		return []*BookLog{ins.reject(o, RejectReasonNone)}
	}
}

// crosses reports whether a buy at buyPrice and a sell at sellPrice would
// match.
func crosses(buyPrice, sellPrice uint64) bool {
	return buyPrice >= sellPrice
}

// validate guards against a malformed Order reaching the matching loop.
// The wire dispatcher already checks qty/price before constructing an
// Order, but Instrument is usable directly as a library, so it checks
// again at its own boundary rather than trusting every caller.
func (ins *Instrument) validate(o *Order) error {
	if o.Remaining == 0 {
		return errors.Wrap(ErrInvalidOrder, "remaining quantity is zero")
	}
	if o.Type != Market && o.Price == 0 {
		return errors.Wrap(ErrInvalidOrder, "price is zero for a price-bearing order")
	}
	return nil
}

// placeLimit implements the core matching loop verbatim: insert into the
// own side first, then drain crosses until the book is uncrossed or one
// side empties.
func (ins *Instrument) placeLimit(o *Order) []*BookLog {
	own, _ := ins.sideBookFor(o.Side)
	own.insert(o)

	logs := []*BookLog{ins.openLog(o)}
	logs = append(logs, ins.drainCrosses(o.Side)...)
	return logs
}

// placeMarket walks the opposite side's best levels until remaining is
// exhausted or liquidity runs out; any unfilled residual is dropped rather
// than rested.
func (ins *Instrument) placeMarket(o *Order) []*BookLog {
	_, opp := ins.sideBookFor(o.Side)
	var logs []*BookLog

	for o.Remaining > 0 {
		maker := opp.best()
		if maker == nil {
			if o.Filled == 0 {
				logs = append(logs, ins.reject(o, RejectReasonNoLiquidity))
			}
			break
		}
		fillQty := min(o.Remaining, maker.Remaining)
		fillPrice := maker.Price
		logs = append(logs, ins.applyFill(o, maker, opp, fillPrice, fillQty))
	}
	return logs
}

// placeIOC matches immediately against crossable liquidity and drops
// whatever remains rather than resting it.
func (ins *Instrument) placeIOC(o *Order) []*BookLog {
	_, opp := ins.sideBookFor(o.Side)
	var logs []*BookLog

	for o.Remaining > 0 {
		maker := opp.best()
		if maker == nil {
			if o.Filled == 0 {
				logs = append(logs, ins.reject(o, RejectReasonNoLiquidity))
			}
			return logs
		}
		if !priceAcceptable(o, maker.Price) {
			if o.Filled == 0 {
				logs = append(logs, ins.reject(o, RejectReasonPriceMismatch))
			}
			return logs
		}
		fillQty := min(o.Remaining, maker.Remaining)
		logs = append(logs, ins.applyFill(o, maker, opp, maker.Price, fillQty))
	}
	return logs
}

// placeFOK first verifies the order can be filled completely without
// mutating anything, then executes identically to IOC if it can.
func (ins *Instrument) placeFOK(o *Order) []*BookLog {
	_, opp := ins.sideBookFor(o.Side)

	if !fokFillable(o, opp) {
		logger.Debug("fill-or-kill order could not be fully filled",
			zap.String("order_id", o.ID), zap.Error(ErrInsufficientFill))
		return []*BookLog{ins.reject(o, RejectReasonInsufficient)}
	}

	var logs []*BookLog
	for o.Remaining > 0 {
		maker := opp.best()
		fillQty := min(o.Remaining, maker.Remaining)
		logs = append(logs, ins.applyFill(o, maker, opp, maker.Price, fillQty))
	}
	return logs
}

// fokFillable walks resting levels on opp (price-acceptable ones only,
// best to worst) summing available quantity, without mutating the book.
func fokFillable(o *Order, opp *sideBook) bool {
	var available uint64
	needed := o.Remaining

	visit := func(price uint64) bool {
		if !priceAcceptable(o, price) {
			return false
		}
		available += opp.levels[price].qty
		return available < needed
	}

	if opp.side == Buy {
		opp.index.ReverseInorder(visit, 0)
	} else {
		opp.index.Inorder(visit, 0)
	}
	return available >= needed
}

// placePostOnly rests the order like Limit, but only if it would not cross
// immediately; otherwise it is rejected without ever entering the book.
func (ins *Instrument) placePostOnly(o *Order) []*BookLog {
	own, opp := ins.sideBookFor(o.Side)

	maker := opp.best()
	if maker != nil && priceAcceptable(o, maker.Price) {
		logger.Debug("post-only order would have crossed the spread",
			zap.String("order_id", o.ID), zap.Error(ErrWouldCrossSpread))
		return []*BookLog{ins.reject(o, RejectReasonWouldCross)}
	}

	own.insert(o)
	return []*BookLog{ins.openLog(o)}
}

// priceAcceptable reports whether a taker with o's side/price would accept
// trading against a maker resting at makerPrice.
func priceAcceptable(o *Order, makerPrice uint64) bool {
	if o.Side == Buy {
		return o.Price >= makerPrice
	}
	return o.Price <= makerPrice
}

// drainCrosses runs the core matching loop after arrivingSide's order has
// already been inserted into its own book: repeatedly match best-buy
// against best-sell until the book is uncrossed or a side empties.
func (ins *Instrument) drainCrosses(arrivingSide Side) []*BookLog {
	var logs []*BookLog

	for {
		b, s := ins.buy.best(), ins.sell.best()
		if b == nil || s == nil {
			break
		}
		if !crosses(b.Price, s.Price) {
			break
		}

		fillQty := min(b.Remaining, s.Remaining)

		// The resting counterparty's price: whichever side is NOT the one
		// the arriving order was inserted into is, by construction, made
		// up entirely of orders that were already resting before this
		// placement, so its best price is the maker's price. Both orders are
		// resting here, so both sides' level state (qty, count, FIFO links)
		// need reducing, not just the maker's.
		taker, maker, takerBook, makerBook, fillPrice := b, s, ins.buy, ins.sell, s.Price
		if arrivingSide == Sell {
			taker, maker, takerBook, makerBook, fillPrice = s, b, ins.sell, ins.buy, b.Price
		}

		logs = append(logs, ins.applyRestingFill(taker, maker, takerBook, makerBook, fillPrice, fillQty))
	}
	return logs
}

// applyFill executes one match where taker never rested in its own book
// (placeMarket/placeIOC/placeFOK): only the maker's resting state needs
// unwinding through makerBook.fill; the taker's Filled/Remaining are
// adjusted directly since no SideBook holds it, and the resulting log
// carries no TakerRestingPrice since no depth was ever added for the
// taker to begin with.
func (ins *Instrument) applyFill(taker, maker *Order, makerBook *sideBook, price, qty uint64) *BookLog {
	taker.Filled += qty
	taker.Remaining -= qty
	makerBook.fill(maker, qty)
	return ins.tradeLog(taker, maker, price, qty, 0)
}

// applyRestingFill executes one match where both taker and maker are
// resting orders on their respective sides (drainCrosses): both books'
// level state (qty, count, FIFO links) must be unwound through fill, and
// the resulting log carries the taker's own resting price so depth can be
// corrected there too, separately from the maker's price.
func (ins *Instrument) applyRestingFill(taker, maker *Order, takerBook, makerBook *sideBook, price, qty uint64) *BookLog {
	takerRestingPrice := taker.Price
	takerBook.fill(taker, qty)
	makerBook.fill(maker, qty)
	return ins.tradeLog(taker, maker, price, qty, takerRestingPrice)
}

func (ins *Instrument) tradeLog(taker, maker *Order, price, qty, takerRestingPrice uint64) *BookLog {
	ins.updateStats(price, qty)

	return &BookLog{
		SequenceID:        ins.nextSeq(),
		TradeID:           ins.nextTradeID(),
		Type:              LogTypeMatch,
		Symbol:            ins.Symbol,
		Side:              taker.Side,
		Price:             price,
		Qty:               qty,
		OrderID:           taker.ID,
		ClientID:          taker.ClientID,
		OrderType:         taker.Type,
		MakerOrderID:      maker.ID,
		MakerClient:       maker.ClientID,
		TakerRestingPrice: takerRestingPrice,
		CreatedAt:         time.Now().UTC(),
	}
}

func (ins *Instrument) updateStats(price, qty uint64) {
	s := &ins.Stats
	s.LastTradePrice = price
	s.LastTradeQty = qty
	s.LastTradeTime = time.Now().UTC()
	if s.Open == 0 {
		s.Open = price
	}
	if s.High == 0 || price > s.High {
		s.High = price
	}
	if s.Low == 0 || price < s.Low {
		s.Low = price
	}
	s.Close = price
	s.VolumeToday += qty
	s.VWAPNumerator = s.VWAPNumerator.Add(decimal.NewFromInt(int64(price)).Mul(decimal.NewFromInt(int64(qty))))
}

func (ins *Instrument) openLog(o *Order) *BookLog {
	return &BookLog{
		SequenceID: ins.nextSeq(),
		Type:       LogTypeOpen,
		Symbol:     ins.Symbol,
		Side:       o.Side,
		Price:      o.Price,
		Qty:        o.Remaining,
		OrderID:    o.ID,
		ClientID:   o.ClientID,
		OrderType:  o.Type,
		CreatedAt:  time.Now().UTC(),
	}
}

func (ins *Instrument) reject(o *Order, reason RejectReason) *BookLog {
	logger.Debug("order rejected",
		zap.String("order_id", o.ID),
		zap.String("symbol", ins.Symbol),
		zap.String("reason", string(reason)),
	)
	return &BookLog{
		SequenceID:   ins.nextSeq(),
		Type:         LogTypeReject,
		Symbol:       ins.Symbol,
		Side:         o.Side,
		Price:        o.Price,
		Qty:          o.Remaining,
		OrderID:      o.ID,
		ClientID:     o.ClientID,
		OrderType:    o.Type,
		RejectReason: reason,
		CreatedAt:    time.Now().UTC(),
	}
}

// Cancel removes order orderID (optionally constrained to clientOrderID)
// from whichever side it rests on. Returns false, mutating nothing, if it
// isn't resting, so a repeated cancel is a no-op rather than an error.
func (ins *Instrument) Cancel(side Side, orderID, clientOrderID string) bool {
	own, _ := ins.sideBookFor(side)
	ok := own.cancel(orderID, clientOrderID)
	if !ok {
		logger.Debug("cancel on non-resting order",
			zap.String("order_id", orderID), zap.Error(ErrOrderNotResting))
	}
	return ok
}

// BestBid returns the best resting buy price, or ok=false if none.
func (ins *Instrument) BestBid() (uint64, bool) { return ins.buy.bestPrice() }

// BestAsk returns the best resting sell price, or ok=false if none.
func (ins *Instrument) BestAsk() (uint64, bool) { return ins.sell.bestPrice() }

// TopBids returns up to n resting head orders on the buy side, best first.
func (ins *Instrument) TopBids(n int) []*Order { return ins.buy.top(n) }

// TopAsks returns up to n resting head orders on the sell side, best first.
func (ins *Instrument) TopAsks(n int) []*Order { return ins.sell.top(n) }

// Uncrossed reports whether the book is currently uncrossed: best-buy is
// strictly below best-sell, or one side is empty.
func (ins *Instrument) Uncrossed() bool {
	b, okB := ins.BestBid()
	s, okS := ins.BestAsk()
	if !okB || !okS {
		return true
	}
	return b < s
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
