package book

import "github.com/cockroachdb/errors"

// Sentinel errors for the matching core. Each is logged via the package
// logger where the failure is detected (ErrInvalidOrder wrapped with
// call-site context via errors.Wrap first); the exported API reports these
// failures through bools and reject BookLogs, not by returning the errors.
var (
	ErrInvalidOrder     = errors.New("book: order fails basic validation")
	ErrUnknownSymbol    = errors.New("book: unknown instrument symbol")
	ErrSymbolExists     = errors.New("book: instrument already registered")
	ErrEmptySymbol      = errors.New("book: symbol must not be empty")
	ErrOrderNotResting  = errors.New("book: order is not resting")
	ErrWouldCrossSpread = errors.New("book: post-only order would cross the spread")
	ErrInsufficientFill = errors.New("book: fill-or-kill order cannot be fully filled")
)
