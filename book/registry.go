package book

import (
	"sync"

	"github.com/huandu/skiplist"
	"go.uber.org/zap"
)

// Registry tracks every known instrument by symbol. Lookups go through a
// sync.Map for lock-free lookup/create; a skiplist keeps symbols in sorted
// order so DEBUG INSTRUMENTS can walk them deterministically without
// sorting on every call.
type Registry struct {
	instruments sync.Map // symbol -> *Instrument

	mu      sync.Mutex
	symbols *skiplist.SkipList
}

// NewRegistry creates an empty instrument registry.
func NewRegistry() *Registry {
	return &Registry{
		symbols: skiplist.New(skiplist.String),
	}
}

// Create registers a new, empty instrument for symbol. Returns false without
// mutating anything if symbol is empty or already registered.
func (r *Registry) Create(symbol string) (*Instrument, bool) {
	if symbol == "" {
		logger.Warn("refusing to create instrument", zap.Error(ErrEmptySymbol))
		return nil, false
	}

	ins := NewInstrument(symbol)
	if _, loaded := r.instruments.LoadOrStore(symbol, ins); loaded {
		logger.Warn("refusing to create instrument",
			zap.String("symbol", symbol), zap.Error(ErrSymbolExists))
		return nil, false
	}

	r.mu.Lock()
	r.symbols.Set(symbol, struct{}{})
	r.mu.Unlock()
	return ins, true
}

// Get returns the instrument registered under symbol, or ok=false.
func (r *Registry) Get(symbol string) (*Instrument, bool) {
	v, ok := r.instruments.Load(symbol)
	if !ok {
		logger.Debug("symbol lookup miss", zap.String("symbol", symbol), zap.Error(ErrUnknownSymbol))
		return nil, false
	}
	return v.(*Instrument), true
}

// Symbols returns every registered symbol in ascending order.
func (r *Registry) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.symbols.Len())
	for e := r.symbols.Front(); e != nil; e = e.Next() {
		out = append(out, e.Key().(string))
	}
	return out
}

// Len returns the number of registered instruments.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.symbols.Len()
}
