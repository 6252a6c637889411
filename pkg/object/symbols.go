package object

import (
	"sort"
)

// Symbol is an entry of an object's public symbol table.
type Symbol struct {
	Name    string
	Address uint64
	Size    uint64
}

// Contains reports whether addr falls into the symbol. Symbols without a
// size only contain their start address.
func (s Symbol) Contains(addr uint64) bool {
	if s.Size == 0 {
		return addr == s.Address
	}
	return addr >= s.Address && addr < s.Address+s.Size
}

// SymbolMap is an address-ordered symbol table.
type SymbolMap struct {
	symbols []Symbol
}

// NewSymbolMap sorts symbols by address and infers missing sizes from the
// distance to the next symbol.
func NewSymbolMap(symbols []Symbol) SymbolMap {
	sorted := make([]Symbol, len(symbols))
	copy(sorted, symbols)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Address < sorted[j].Address
	})
	for i := range sorted {
		if sorted[i].Size == 0 && i+1 < len(sorted) && sorted[i+1].Address > sorted[i].Address {
			sorted[i].Size = sorted[i+1].Address - sorted[i].Address
		}
	}
	return SymbolMap{symbols: sorted}
}

// Len returns the number of symbols.
func (m SymbolMap) Len() int { return len(m.symbols) }

// Symbols returns the ordered symbols.
func (m SymbolMap) Symbols() []Symbol { return m.symbols }

// Lookup returns the symbol covering addr.
func (m SymbolMap) Lookup(addr uint64) (Symbol, bool) {
	idx := sort.Search(len(m.symbols), func(i int) bool {
		return m.symbols[i].Address > addr
	})
	if idx == 0 {
		return Symbol{}, false
	}
	sym := m.symbols[idx-1]
	if !sym.Contains(addr) {
		return Symbol{}, false
	}
	return sym, true
}
