// Package term defines the content-addressed term model: immutable Term
// values, their stable IDs, and the store that interns them.
package term

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is the stable, content-derived identifier of a Term.
//
// Two terms with identical (Sym, Scale, Children) content always produce
// the same ID; the store never allocates a second ID for equal content.
type ID string

// String returns the ID's textual form.
func (id ID) String() string { return string(id) }

// Term is an immutable node in the rewriting graph: a symbol, a
// non-negative scale, and an ordered sequence of child IDs.
//
// Terms are never mutated after insertion into a Store; building a "new"
// term always means constructing a fresh value and interning it.
type Term struct {
	Sym      string
	Scale    int
	Children []ID
}

// Digest computes the deterministic content hash used as a Term's ID.
//
// Fields are length-prefixed before hashing so that no combination of
// symbol bytes, scale digits, or child IDs can be reinterpreted as a
// different encoding that collides by construction.
func Digest(sym string, scale int, children []ID) ID {
	h := sha256.New()

	writeField := func(data []byte) {
		n := uint64(len(data))
		var lenBytes [8]byte
		for i := 0; i < 8; i++ {
			lenBytes[7-i] = byte(n >> (8 * i))
		}
		h.Write(lenBytes[:])
		h.Write(data)
	}

	writeField([]byte(sym))

	var scaleBytes [8]byte
	sv := uint64(scale)
	for i := 0; i < 8; i++ {
		scaleBytes[7-i] = byte(sv >> (8 * i))
	}
	writeField(scaleBytes[:])

	var countBytes [8]byte
	cv := uint64(len(children))
	for i := 0; i < 8; i++ {
		countBytes[7-i] = byte(cv >> (8 * i))
	}
	writeField(countBytes[:])
	for _, c := range children {
		writeField([]byte(c))
	}

	return ID(hex.EncodeToString(h.Sum(nil)))
}
