package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_CreateRejectsEmptySymbol(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Create("")
	assert.False(t, ok)
}

func TestRegistry_CreateRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Create("BTCUSD")
	assert.True(t, ok)
	_, ok = r.Create("BTCUSD")
	assert.False(t, ok)
}

func TestRegistry_GetReturnsCreatedInstrument(t *testing.T) {
	r := NewRegistry()
	created, _ := r.Create("BTCUSD")
	got, ok := r.Get("BTCUSD")
	assert.True(t, ok)
	assert.Same(t, created, got)
}

func TestRegistry_SymbolsAreSorted(t *testing.T) {
	r := NewRegistry()
	r.Create("ETHUSD")
	r.Create("BTCUSD")
	r.Create("ADAUSD")

	assert.Equal(t, []string{"ADAUSD", "BTCUSD", "ETHUSD"}, r.Symbols())
	assert.Equal(t, 3, r.Len())
}
