// Package config implements the typed, hierarchical configuration grammar
// that sits on top of the preprocessor: parsing into a Class/Entry tree and
// rapifying that tree to HEMTT's compact binary layout (§4.2).
package config

import "github.com/brettmayson/hemtt-core/internal/token"

// NumberKind tags which of the three rapified numeric encodings an Entry
// uses (string/float/int share one type-tag byte scheme in both the
// property code and the array element tag).
type NumberKind int

const (
	KindString NumberKind = iota
	KindFloat32
	KindInt32
)

// Value is a scalar or array entry value. Exactly one of the fields is set,
// selected by Kind.
type Value struct {
	Kind  NumberKind
	Str   string
	Float float32
	Int   int32
	Array *Array // only meaningful when used via Entry.Array, not here
}

// Array is an ordered, possibly nested sequence of values. A nested array
// element is represented by Elements[i].Array being non-nil.
type Array struct {
	Elements []ArrayElement
}

// ArrayElement is one slot of an Array: either a scalar Value or a nested
// Array, never both.
type ArrayElement struct {
	Value Value
	Nested *Array
}

// EntryKind distinguishes a scalar assignment from an array assignment or
// array-extension (`[] +=`).
type EntryKind int

const (
	EntryScalar EntryKind = iota
	EntryArray
	EntryArrayExpand
)

// Entry is a `name = value;` or `name[] = {...};` property.
type Entry struct {
	Name  string
	Kind  EntryKind
	Value Value // valid when Kind == EntryScalar
	Array *Array // valid when Kind == EntryArray or EntryArrayExpand
	Pos   token.Position
}

// ClassKind distinguishes a class with a body, an external (forward)
// declaration, and a deletion directive (§4.2: "delete" statements remove a
// previously-defined class or entry by name).
type ClassKind int

const (
	ClassDefined ClassKind = iota
	ClassExternal
	ClassDeleted
)

// Class is a `class NAME [: PARENT] { children }` node. An External class
// has no children and is never rapified as a body (it only records that
// the name exists, tag `3`). A Deleted class is a `delete NAME;` statement
// and is likewise never rapified as a body (tag `4`).
type Class struct {
	Name     string
	Parent   string
	Kind     ClassKind
	Children []Property
	Pos      token.Position
}

// PropertyKind tags which of the two branches a Property currently holds.
type PropertyKind int

const (
	PropertyEntry PropertyKind = iota
	PropertyClass
)

// Property is one child of a Class body: either a named Entry or a nested
// Class, preserving declaration order (duplicate detection is
// case-insensitive and happens during parsing, not storage).
type Property struct {
	Name  string
	Kind  PropertyKind
	Entry *Entry
	Class *Class
}

// Config is a whole parsed, preprocessed file: a single implicit root
// class body (HEMTT configs have no enclosing `class {}`, top-level
// properties behave as the root's children).
type Config struct {
	Root []Property
}
