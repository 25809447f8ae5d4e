package book

// priceLevel is a FIFO queue of resting orders sharing one price, built
// from the intrusive next/prev pointers already carried by Order so that
// append is O(1) and removal given the order pointer is O(1) — no reverse
// scan needed.
type priceLevel struct {
	price uint64
	head  *Order
	tail  *Order
	size  int
	qty   uint64
}

func newPriceLevel(price uint64) *priceLevel {
	return &priceLevel{price: price}
}

// pushBack appends an order at the tail — normal time-priority arrival.
func (l *priceLevel) pushBack(o *Order) {
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	}
	l.tail = o
	if l.head == nil {
		l.head = o
	}
	l.size++
	l.qty += o.Remaining
}

// remove detaches o from the FIFO in O(1) using its own intrusive pointers.
// It does not touch l.qty — callers reduce qty via reduceQty as an order's
// remaining quantity shrinks, whether or not the order is then removed.
func (l *priceLevel) remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	l.size--
}

// reduceQty accounts for a partial fill against an order that remains
// resting in this level.
func (l *priceLevel) reduceQty(amount uint64) {
	l.qty -= amount
}

func (l *priceLevel) front() *Order {
	return l.head
}

func (l *priceLevel) empty() bool {
	return l.size == 0
}
