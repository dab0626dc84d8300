package interp

import "github.com/dolthub/swiss"

// SymbolID is a small integer naming an interned identifier (spec
// §3.6). Zero is reserved as "no symbol".
type SymbolID uint32

// symbolEntry is one interned spelling.
type symbolEntry struct {
	text  string
	canon SymbolID // the id of the first spelling seen for this identifier
	alias SymbolID // next entry in the case-variant alias chain, 0 if none
}

// SymbolTable is the process-global (per-Interpreter) identifier
// interning table of spec §3.6. It is backed by a swiss-table
// open-addressing map, the same structure the pack's `mna-nenuphar`
// language uses for its own string interner (see DESIGN.md):
// insertions are rare relative to lookups and the table never shrinks,
// which is exactly the access pattern a swiss table is tuned for.
type SymbolTable struct {
	byText *swiss.Map[string, SymbolID]
	byID   []symbolEntry // index 0 unused
}

func newSymbolTable() *SymbolTable {
	t := &SymbolTable{
		byText: swiss.NewMap[string, SymbolID](1024),
	}
	t.byID = append(t.byID, symbolEntry{}) // reserve id 0
	return t
}

// Intern returns the SymbolID for text, creating it (and chaining it
// onto the canon id's alias list for case variants) if unseen. Case
// variants share a canon id via their alias chain but keep distinct
// ids so the original spelling can still be recovered; two words refer
// to the same binding target index iff their canon ids match (spec
// §3.6).
func (t *SymbolTable) Intern(text string) SymbolID {
	if id, ok := t.byText.Get(text); ok {
		return id
	}
	// The canon index is kept under a NUL-prefixed key so it never
	// collides with a spelling of the same text.
	canonKey := "\x00" + canonicalize(text)
	canon, ok := t.byText.Get(canonKey)
	id := SymbolID(len(t.byID))
	entry := symbolEntry{text: text}
	if ok {
		entry.canon = canon
		// Splice into canon's alias chain.
		head := &t.byID[canon]
		entry.alias = head.alias
		head.alias = id
	} else {
		entry.canon = id
	}
	t.byID = append(t.byID, entry)
	t.byText.Put(text, id)
	if !ok {
		t.byText.Put(canonKey, id)
	}
	return id
}

// Text returns the original spelling for id.
func (t *SymbolTable) Text(id SymbolID) string {
	if int(id) >= len(t.byID) {
		return ""
	}
	return t.byID[id].text
}

// Canon returns id's canon id: the id of the first spelling seen for
// this identifier (spec §3.6).
func (t *SymbolTable) Canon(id SymbolID) SymbolID {
	if int(id) >= len(t.byID) {
		return 0
	}
	return t.byID[id].canon
}

// SameIdentifier reports whether a and b name the same binding slot.
func (t *SymbolTable) SameIdentifier(a, b SymbolID) bool {
	return a != 0 && t.Canon(a) == t.Canon(b)
}

// canonicalize is the case-folding rule symbols alias under. Kept
// deliberately simple (ASCII lower) since the scanner/lexer that would
// feed richer Unicode case rules is an out-of-scope collaborator
// (spec §1).
func canonicalize(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
