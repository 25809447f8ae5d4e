package reactor

import "github.com/rs/xid"

// IDGenerator is the external collaborator contract for order-id
// assignment: globally unique opaque strings with negligible collision
// probability over the process lifetime. xid encodes a timestamp, machine
// id, process id and counter, so it needs no shared mutable state across
// calls beyond what the library already serialises internally.
type IDGenerator struct{}

// NewIDGenerator constructs an ID generator. There is no configuration;
// every instance draws from the same xid counter space.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns a new globally-unique order id.
func (g *IDGenerator) Next() string {
	return xid.New().String()
}
