package postgres

import (
	"encoding/json"
	"strconv"
	"strings"

	"entityapi/internal/model"
	"entityapi/internal/query"
)

// whereBuilder translates a validated filter into a parameterized SQL
// predicate over the JSONB doc column. Every value travels as a bind
// parameter; only field path structure ends up in the SQL text, and that as
// a parameter too.
type whereBuilder struct {
	args []any
}

func newWhereBuilder(args ...any) *whereBuilder {
	return &whereBuilder{args: args}
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) jsonArg(v model.Value) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return b.arg(string(raw)) + "::jsonb", nil
}

// Build returns the predicate for f, or TRUE when f is empty.
func (b *whereBuilder) Build(f model.Filter) (string, error) {
	if len(f) == 0 {
		return "TRUE", nil
	}

	parts := make([]string, 0, len(f))
	for _, key := range f.Keys() {
		cond := f[key]
		var (
			sql string
			err error
		)
		if query.IsLogicalOperator(key) {
			sql, err = b.logical(key, cond)
		} else {
			sql, err = b.field(key, cond)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (b *whereBuilder) logical(op string, cond model.Value) (string, error) {
	parts := make([]string, 0, len(cond.Items()))
	for _, clause := range cond.Items() {
		sql, err := b.Build(clause.Object())
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	switch op {
	case query.OpAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case query.OpOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	default:
		return "NOT COALESCE((" + strings.Join(parts, " OR ") + "), FALSE)", nil
	}
}

func (b *whereBuilder) fieldExpr(path string) string {
	if path == model.IDField {
		return "to_jsonb(id)"
	}
	return "(doc #> " + b.arg(textArray(model.SplitPath(path))) + "::text[])"
}

func (b *whereBuilder) field(path string, cond model.Value) (string, error) {
	expr := b.fieldExpr(path)
	if !query.IsOperatorDocument(cond) {
		return b.eq(expr, cond)
	}

	ops := cond.Object()
	parts := make([]string, 0, len(ops))
	for _, op := range ops.Keys() {
		sql, err := b.operator(expr, op, ops[op])
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (b *whereBuilder) operator(expr, op string, arg model.Value) (string, error) {
	switch op {
	case query.OpEq:
		return b.eq(expr, arg)
	case query.OpNe:
		eq, err := b.eq(expr, arg)
		if err != nil {
			return "", err
		}
		return "NOT COALESCE(" + eq + ", FALSE)", nil
	case query.OpGt:
		return b.compare(expr, ">", arg)
	case query.OpGte:
		return b.compare(expr, ">=", arg)
	case query.OpLt:
		return b.compare(expr, "<", arg)
	case query.OpLte:
		return b.compare(expr, "<=", arg)
	case query.OpIn:
		return b.in(expr, arg)
	case query.OpNin:
		in, err := b.in(expr, arg)
		if err != nil {
			return "", err
		}
		return "NOT COALESCE(" + in + ", FALSE)", nil
	case query.OpExists:
		if arg.Bool() {
			return expr + " IS NOT NULL", nil
		}
		return expr + " IS NULL", nil
	}
	return "FALSE", nil
}

// eq matches the value itself, or an array field holding it as an element.
// A null value also matches a missing field.
func (b *whereBuilder) eq(expr string, v model.Value) (string, error) {
	if v.IsNull() {
		return "(" + expr + " IS NULL OR " + expr + " = 'null'::jsonb)", nil
	}
	val, err := b.jsonArg(v)
	if err != nil {
		return "", err
	}
	elem, err := b.jsonArg(model.Array(v))
	if err != nil {
		return "", err
	}
	return "(" + expr + " = " + val + " OR (jsonb_typeof(" + expr + ") = 'array' AND " + expr + " @> " + elem + "))", nil
}

// compare orders values of the same JSON type only, either the field itself
// or any element of an array field.
func (b *whereBuilder) compare(expr, sqlOp string, v model.Value) (string, error) {
	val, err := b.jsonArg(v)
	if err != nil {
		return "", err
	}
	return "((jsonb_typeof(" + expr + ") = jsonb_typeof(" + val + ") AND " + expr + " " + sqlOp + " " + val + ")" +
		" OR EXISTS (SELECT 1 FROM jsonb_array_elements(CASE WHEN jsonb_typeof(" + expr + ") = 'array' THEN " + expr +
		" ELSE '[]'::jsonb END) AS el WHERE jsonb_typeof(el) = jsonb_typeof(" + val + ") AND el " + sqlOp + " " + val + "))", nil
}

func (b *whereBuilder) in(expr string, candidates model.Value) (string, error) {
	if len(candidates.Items()) == 0 {
		return "FALSE", nil
	}
	parts := make([]string, 0, len(candidates.Items()))
	for _, c := range candidates.Items() {
		sql, err := b.eq(expr, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// textArray renders segments as a PostgreSQL text[] literal.
func textArray(segs []string) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, s := range segs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		sb.WriteString(s)
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}
