package book

// sideBook is one side (Buy or Sell) of an instrument's book. It pairs
// the ordered price index with a direct price→level map — the tree gives
// ordered iteration and extrema, the hash gives O(1) level lookup — plus
// a direct order-id→order map so cancel is O(1) end to end.
type sideBook struct {
	side   Side
	index  *priceIndex
	levels map[uint64]*priceLevel
	orders map[string]*Order
	count  int
}

func newSideBook(side Side) *sideBook {
	return &sideBook{
		side:   side,
		index:  newPriceIndex(64),
		levels: make(map[uint64]*priceLevel),
		orders: make(map[string]*Order),
	}
}

// insert rests order at the tail of its price level, creating the level if
// needed. Preconditions (caller's responsibility): order.Side
// matches this book's side, order.Type == Limit (or a resting variant of
// PostOnly), order.Remaining > 0.
func (b *sideBook) insert(o *Order) *priceLevel {
	level, ok := b.levels[o.Price]
	if !ok {
		level = newPriceLevel(o.Price)
		b.levels[o.Price] = level
		b.index.Insert(o.Price)
	}
	level.pushBack(o)
	b.orders[o.ID] = o
	b.count++
	return level
}

// cancel removes the first order resting under orderID, additionally
// requiring clientOrderID to match when it is non-empty. Returns false
// without mutating anything if no such order is resting (idempotent).
func (b *sideBook) cancel(orderID, clientOrderID string) bool {
	o, ok := b.orders[orderID]
	if !ok {
		return false
	}
	if clientOrderID != "" && o.ClientOrderID != clientOrderID {
		return false
	}
	b.removeResting(o)
	return true
}

// removeResting detaches a known-resting order from its level, erasing the
// level (and its price from the index) if it becomes empty, and recomputing
// cached extrema only when the removed price was one of them.
func (b *sideBook) removeResting(o *Order) {
	level := b.levels[o.Price]
	level.reduceQty(o.Remaining)
	level.remove(o)
	delete(b.orders, o.ID)
	b.count--

	if level.empty() {
		delete(b.levels, o.Price)
		b.index.Erase(o.Price)
	}
}

// fill reduces a resting order's remaining quantity by qty and removes it
// if fully consumed. Returns true if the order left the book.
func (b *sideBook) fill(o *Order, qty uint64) (fullyConsumed bool) {
	o.Filled += qty
	o.Remaining -= qty
	level := b.levels[o.Price]
	level.reduceQty(qty)
	if o.Remaining == 0 {
		level.remove(o)
		delete(b.orders, o.ID)
		b.count--
		if level.empty() {
			delete(b.levels, o.Price)
			b.index.Erase(o.Price)
		}
		return true
	}
	return false
}

// best returns the head order of the best price level (highest for Buy,
// lowest for Sell), or nil if the side is empty.
func (b *sideBook) best() *Order {
	price, ok := b.bestPrice()
	if !ok {
		return nil
	}
	return b.levels[price].front()
}

func (b *sideBook) bestPrice() (uint64, bool) {
	if b.side == Buy {
		return b.index.Max()
	}
	return b.index.Min()
}

// top returns up to n head orders, one per level, walking from best to
// worst price.
func (b *sideBook) top(n int) []*Order {
	if n <= 0 {
		return nil
	}
	out := make([]*Order, 0, n)
	visit := func(price uint64) bool {
		out = append(out, b.levels[price].front())
		return len(out) < n
	}
	if b.side == Buy {
		b.index.ReverseInorder(visit, n)
	} else {
		b.index.Inorder(visit, n)
	}
	return out
}

// orderCount returns the number of resting orders on this side.
func (b *sideBook) orderCount() int {
	return b.count
}

// levelCount returns the number of distinct resting prices on this side.
func (b *sideBook) levelCount() int32 {
	return b.index.Count()
}

// empty reports whether the side currently holds no resting orders.
func (b *sideBook) empty() bool {
	return b.count == 0
}
