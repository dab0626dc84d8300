package interp

// Kind identifies which of the foundational value kinds a Cell holds.
// Values are assigned so that the five ANY-* categories named in the
// data model (word, array, context, string, function) each occupy a
// contiguous range, the same property the original C runtime relies on
// for its range-test category checks (spec §3.1.1). The runtime caps
// itself at 64 live kinds; the Kind byte has room for more, which is
// reserved exactly as spec §3.1 describes.
type Kind uint8

const (
	// KindEnd is not a storable kind: it is read when a cell's
	// not_end header bit is clear (spec §3.2). No cell should ever
	// report this as its Kind() except through IsEnd().
	KindEnd Kind = iota

	// KindVoid is the cell state of an unset variable. It is never
	// stored in a user-visible array (spec §3.1.1).
	KindVoid

	KindBlank
	KindBar
	KindLitBar
	KindLogic
	KindInteger
	KindDecimal
	KindPercent
	KindMoney
	KindChar
	KindPair
	KindTuple
	KindTime
	KindDate

	// ANY-STRING! begins.
	KindBinary
	KindString
	KindFile
	KindEmail
	KindURL
	KindTag
	// ANY-STRING! ends.

	KindBitset
	KindImage

	// ANY-ARRAY! begins.
	KindBlock
	KindGroup
	KindPath
	KindSetPath
	KindGetPath
	KindLitPath
	// ANY-ARRAY! ends.

	// ANY-WORD! begins.
	KindWord
	KindSetWord
	KindGetWord
	KindLitWord
	KindRefinement
	// ANY-WORD! ends.

	KindIssue
	KindDatatype
	KindTypeset
	KindMap

	// ANY-CONTEXT! begins.
	KindObject
	KindModule
	KindError
	KindPort
	KindFrame
	// ANY-CONTEXT! ends.

	KindGob
	KindEvent
	KindHandle
	KindStruct

	// ANY-FUNCTION! begins.
	KindRoutine
	KindFunction
	// ANY-FUNCTION! ends.

	KindVarargs

	kindCount
)

const maxKinds = 64

func init() {
	if kindCount > maxKinds {
		panic("interp: kind table exceeds the 64-kind budget (spec §3.1.1)")
	}
}

var kindNames = [kindCount]string{
	KindEnd:        "end",
	KindVoid:       "void",
	KindBlank:      "blank!",
	KindBar:        "bar!",
	KindLitBar:     "lit-bar!",
	KindLogic:      "logic!",
	KindInteger:    "integer!",
	KindDecimal:    "decimal!",
	KindPercent:    "percent!",
	KindMoney:      "money!",
	KindChar:       "char!",
	KindPair:       "pair!",
	KindTuple:      "tuple!",
	KindTime:       "time!",
	KindDate:       "date!",
	KindBinary:     "binary!",
	KindString:     "string!",
	KindFile:       "file!",
	KindEmail:      "email!",
	KindURL:        "url!",
	KindTag:        "tag!",
	KindBitset:     "bitset!",
	KindImage:      "image!",
	KindBlock:      "block!",
	KindGroup:      "group!",
	KindPath:       "path!",
	KindSetPath:    "set-path!",
	KindGetPath:    "get-path!",
	KindLitPath:    "lit-path!",
	KindWord:       "word!",
	KindSetWord:    "set-word!",
	KindGetWord:    "get-word!",
	KindLitWord:    "lit-word!",
	KindRefinement: "refinement!",
	KindIssue:      "issue!",
	KindDatatype:   "datatype!",
	KindTypeset:    "typeset!",
	KindMap:        "map!",
	KindObject:     "object!",
	KindModule:     "module!",
	KindError:      "error!",
	KindPort:       "port!",
	KindFrame:      "frame!",
	KindGob:        "gob!",
	KindEvent:      "event!",
	KindHandle:     "handle!",
	KindStruct:     "struct!",
	KindRoutine:    "routine!",
	KindFunction:   "function!",
	KindVarargs:    "varargs!",
}

// String renders the Rebol-style datatype name, falling back to a
// diagnostic placeholder for a kind byte outside the name table.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown!"
}

// IsAnyWord reports whether k is in the ANY-WORD! category (spec §3.1.1).
func (k Kind) IsAnyWord() bool { return k >= KindWord && k <= KindRefinement }

// IsAnyArray reports whether k is in the ANY-ARRAY! category.
func (k Kind) IsAnyArray() bool { return k >= KindBlock && k <= KindLitPath }

// IsAnyContext reports whether k is in the ANY-CONTEXT! category.
func (k Kind) IsAnyContext() bool { return k >= KindObject && k <= KindFrame }

// IsAnyString reports whether k is in the ANY-STRING! category.
func (k Kind) IsAnyString() bool { return k >= KindBinary && k <= KindTag }

// IsAnyFunction reports whether k is in the ANY-FUNCTION! category.
func (k Kind) IsAnyFunction() bool { return k >= KindRoutine && k <= KindFunction }

// IsSeriesBacked reports whether a cell of this kind carries a
// SeriesHandle payload (spec §3.1.2 "series-like").
func (k Kind) IsSeriesBacked() bool {
	return k.IsAnyArray() || k.IsAnyString() || k == KindBitset || k == KindImage || k == KindMap
}

// TypesetBitset is a 64-bit membership set over Kind, used by typeset
// cells (spec §3.1.2 "typeset stores {symbol, 64-bit kind-bitset}")
// and by parameter type checking (spec §4.4 step 4).
type TypesetBitset uint64

// Set returns a copy of the bitset with k added.
func (t TypesetBitset) Set(k Kind) TypesetBitset { return t | (1 << uint(k)) }

// Has reports whether k is a member.
func (t TypesetBitset) Has(k Kind) bool { return t&(1<<uint(k)) != 0 }

// AllKinds is a typeset accepting every live kind; used as the default
// for untyped parameters.
func AllKinds() TypesetBitset {
	var t TypesetBitset
	for k := Kind(1); k < kindCount; k++ {
		t = t.Set(k)
	}
	return t
}
