package reactor

import "github.com/cockroachdb/errors"

var (
	ErrListenerClosed = errors.New("reactor: listener closed")
	ErrBindFailed     = errors.New("reactor: failed to bind listener")
	ErrAcceptFailed   = errors.New("reactor: accept failed with unexpected errno")
	errBadSide        = errors.New("reactor: side token is neither BUY nor SELL")
	errBadOrderType   = errors.New("reactor: order type token is not one of LIMIT/MARKET/IOC/FOK/POST_ONLY")
)
