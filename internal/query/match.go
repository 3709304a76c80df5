package query

import (
	"strings"

	"entityapi/internal/model"
)

// Match evaluates a validated filter against a document the way a document
// database would: scalar conditions match array fields when any element
// matches, a null condition matches missing fields, and ordering operators
// only compare values of the same family.
func Match(f model.Filter, d model.Document) bool {
	for key, cond := range f {
		if strings.HasPrefix(key, "$") {
			if !matchLogical(key, cond, d) {
				return false
			}
			continue
		}
		if !matchField(d, key, cond) {
			return false
		}
	}
	return true
}

func matchLogical(op string, cond model.Value, d model.Document) bool {
	clauses := cond.Items()
	switch op {
	case OpAnd:
		for _, c := range clauses {
			if !Match(c.Object(), d) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range clauses {
			if Match(c.Object(), d) {
				return true
			}
		}
		return false
	case OpNor:
		for _, c := range clauses {
			if Match(c.Object(), d) {
				return false
			}
		}
		return true
	}
	return false
}

func matchField(d model.Document, path string, cond model.Value) bool {
	val, present := d.Lookup(path)
	if !IsOperatorDocument(cond) {
		return equals(val, present, cond)
	}
	for op, arg := range cond.Object() {
		if !matchOperator(op, arg, val, present) {
			return false
		}
	}
	return true
}

func matchOperator(op string, arg, val model.Value, present bool) bool {
	switch op {
	case OpEq:
		return equals(val, present, arg)
	case OpNe:
		return !equals(val, present, arg)
	case OpGt:
		return present && compares(val, arg, func(c int) bool { return c > 0 })
	case OpGte:
		return present && compares(val, arg, func(c int) bool { return c >= 0 })
	case OpLt:
		return present && compares(val, arg, func(c int) bool { return c < 0 })
	case OpLte:
		return present && compares(val, arg, func(c int) bool { return c <= 0 })
	case OpIn:
		return in(val, present, arg)
	case OpNin:
		return !in(val, present, arg)
	case OpExists:
		return present == arg.Bool()
	}
	return false
}

func equals(val model.Value, present bool, want model.Value) bool {
	if want.IsNull() {
		return !present || val.IsNull()
	}
	if !present {
		return false
	}
	if val.Equal(want) {
		return true
	}
	if val.Kind() == model.KindArray {
		for _, item := range val.Items() {
			if item.Equal(want) {
				return true
			}
		}
	}
	return false
}

func in(val model.Value, present bool, candidates model.Value) bool {
	for _, c := range candidates.Items() {
		if equals(val, present, c) {
			return true
		}
	}
	return false
}

func compares(val, arg model.Value, pred func(int) bool) bool {
	if c, ok := val.Compare(arg); ok && pred(c) {
		return true
	}
	if val.Kind() == model.KindArray {
		for _, item := range val.Items() {
			if c, ok := item.Compare(arg); ok && pred(c) {
				return true
			}
		}
	}
	return false
}
