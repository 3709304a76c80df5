// Package model contains the domain types shared by every layer: the
// schemaless document value model and the per-request read specification.
package model

// Filter selects documents. Keys are field paths or the logical operators
// $and, $or and $nor; values are match values or operator documents.
type Filter = Document

// Projection lists the field paths to return. A nil Projection returns
// every field. The identifier field is always returned.
type Projection []string

// PageSpec is an offset/limit window.
type PageSpec struct {
	Skip  int64
	Limit int64
}
