package book

import "time"

// Side is the direction of interest for an order or a SideBook.
type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType enumerates the order kinds the matching loop understands.
// Limit and Market are the core two kinds; IOC, FOK and PostOnly are
// variants of the same peek-then-decide matching loop.
type OrderType string

const (
	Limit    OrderType = "limit"
	Market   OrderType = "market"
	IOC      OrderType = "ioc"
	FOK      OrderType = "fok"
	PostOnly OrderType = "post_only"
)

// Order is the mutable unit of book state. Price and quantities are
// unsigned integer ticks, per the data model: filled+remaining always
// equals InitialQty, and both are non-negative.
//
// next/prev are the intrusive FIFO pointers for whichever PriceLevel
// currently holds this order; they are nil for an order that isn't resting.
type Order struct {
	ID            string
	ClientOrderID string
	ClientID      string

	Price      uint64
	InitialQty uint64
	Side       Side
	Type       OrderType

	Filled    uint64
	Remaining uint64

	ArrivedAt time.Time

	next *Order
	prev *Order
}

// Resting reports whether the order still has quantity left to fill.
func (o *Order) Resting() bool {
	return o.Remaining > 0
}

// LogType tags the kind of event a BookLog records.
type LogType string

const (
	LogTypeOpen   LogType = "open"
	LogTypeMatch  LogType = "match"
	LogTypeCancel LogType = "cancel"
	LogTypeReject LogType = "reject"
)

// RejectReason explains why an order produced no book-state change.
type RejectReason string

const (
	RejectReasonNone          RejectReason = ""
	RejectReasonInvalid       RejectReason = "invalid_order"
	RejectReasonNoLiquidity   RejectReason = "no_liquidity"
	RejectReasonPriceMismatch RejectReason = "price_mismatch"
	RejectReasonInsufficient  RejectReason = "insufficient_size"
	RejectReasonWouldCross    RejectReason = "would_cross_spread"
)

// BookLog is an immutable record of one event produced by the matching
// loop. Handlers read it to build notifications; the async audit fan-out
// (see ring.go in the reactor package) reads only copies of it.
//
// For a Match event, Side/Price describe the taker's side and the
// execution price (always the maker's resting price). The maker's resting
// depth sits on the opposite side at that same price. TakerRestingPrice is
// additionally set, to the taker's own resting price, when the taker order
// was itself resting before this match (a Limit order crossed via
// drainCrosses); it is zero for a taker that never rests (Market/IOC/FOK),
// since no depth was ever added for it to remove.
type BookLog struct {
	SequenceID        uint64
	TradeID           uint64
	Type              LogType
	Symbol            string
	Side              Side
	Price             uint64
	Qty               uint64
	OrderID           string
	ClientID          string
	OrderType         OrderType
	MakerOrderID      string
	MakerClient       string
	TakerRestingPrice uint64
	RejectReason      RejectReason
	CreatedAt         time.Time
}
