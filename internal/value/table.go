package value

// Table is the interned byte-sequence store shared between the compiler
// (which interns identifier and string-literal lexemes as it emits
// constants) and the VM (which interns the result of string concatenation).
// The table owns every *Interned it hands out; Values only ever borrow.
type Table struct {
	entries map[string]*Interned
}

// NewTable creates an empty interning table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Interned)}
}

// Intern returns the canonical *Interned for s, creating and storing one on
// first use. intern(s) == intern(s) always holds by construction.
func (t *Table) Intern(s string) *Interned {
	if existing, ok := t.entries[s]; ok {
		return existing
	}
	in := &Interned{bytes: s}
	t.entries[s] = in
	return in
}

// Len reports how many distinct byte sequences have been interned. Used by
// tests to assert that repeated interning of the same text does not grow
// the table.
func (t *Table) Len() int { return len(t.entries) }
