package model

import (
	"strconv"
	"strings"
)

// IDField is the name of the system-assigned identifier field.
const IDField = "_id"

// SplitPath splits a dotted field path into its segments.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// Lookup resolves a dotted field path. Numeric segments index into arrays.
func (d Document) Lookup(path string) (Value, bool) {
	segs := SplitPath(path)
	cur := Object(d)
	for _, seg := range segs {
		switch cur.Kind() {
		case KindObject:
			next, ok := cur.Object()[seg]
			if !ok {
				return Value{}, false
			}
			cur = next
		case KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.Items()) {
				return Value{}, false
			}
			cur = cur.Items()[idx]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// SetPath stores v at the dotted path, creating intermediate objects.
// An intermediate value that is not an object is replaced.
func (d Document) SetPath(path string, v Value) {
	segs := SplitPath(path)
	cur := d
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok || next.Kind() != KindObject {
			next = Object(Document{})
			cur[seg] = next
		}
		cur = next.Object()
	}
	cur[segs[len(segs)-1]] = v
}

// Merge copies every top-level field of patch into d, overwriting existing
// fields and leaving the others untouched.
func (d Document) Merge(patch Document) {
	for k, v := range patch {
		d[k] = v.clone()
	}
}

// ID returns the display form of the identifier, if present.
func (d Document) ID() string {
	if v, ok := d[IDField]; ok && v.Kind() == KindString {
		return v.Str()
	}
	return ""
}
