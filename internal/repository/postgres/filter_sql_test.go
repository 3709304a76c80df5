package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityapi/internal/query"
)

func TestWhereBuilder(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty filter",
			filter:   `{}`,
			wantSQL:  `TRUE`,
			wantArgs: []any{"users"},
		},
		{
			name:     "scalar equality",
			filter:   `{"name":"Ana"}`,
			wantSQL:  `((doc #> $2::text[]) = $3::jsonb OR (jsonb_typeof((doc #> $2::text[])) = 'array' AND (doc #> $2::text[]) @> $4::jsonb))`,
			wantArgs: []any{"users", `{"name"}`, `"Ana"`, `["Ana"]`},
		},
		{
			name:     "null equality",
			filter:   `{"address.zip":null}`,
			wantSQL:  `((doc #> $2::text[]) IS NULL OR (doc #> $2::text[]) = 'null'::jsonb)`,
			wantArgs: []any{"users", `{"address","zip"}`},
		},
		{
			name:     "identifier",
			filter:   `{"_id":{"$exists":true}}`,
			wantSQL:  `to_jsonb(id) IS NOT NULL`,
			wantArgs: []any{"users"},
		},
		{
			name:     "empty in",
			filter:   `{"a":{"$in":[]}}`,
			wantSQL:  `FALSE`,
			wantArgs: []any{"users", `{"a"}`},
		},
		{
			name:     "nin",
			filter:   `{"a":{"$nin":[1]}}`,
			wantSQL:  `NOT COALESCE(((doc #> $2::text[]) = $3::jsonb OR (jsonb_typeof((doc #> $2::text[])) = 'array' AND (doc #> $2::text[]) @> $4::jsonb)), FALSE)`,
			wantArgs: []any{"users", `{"a"}`, `1`, `[1]`},
		},
		{
			name:     "nor",
			filter:   `{"$nor":[{"a":{"$exists":false}},{"b":{"$exists":true}}]}`,
			wantSQL:  `NOT COALESCE(((doc #> $2::text[]) IS NULL OR (doc #> $3::text[]) IS NOT NULL), FALSE)`,
			wantArgs: []any{"users", `{"a"}`, `{"b"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := query.ParseFilter(tt.filter)
			require.NoError(t, err)

			b := newWhereBuilder("users")
			sql, err := b.Build(f)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, b.args)
		})
	}
}

func TestWhereBuilder_Compare(t *testing.T) {
	f, err := query.ParseFilter(`{"age":{"$gte":18,"$lt":65}}`)
	require.NoError(t, err)

	b := newWhereBuilder("users")
	sql, err := b.Build(f)
	require.NoError(t, err)

	assert.Contains(t, sql, `(doc #> $2::text[]) >= $3::jsonb`)
	assert.Contains(t, sql, `(doc #> $2::text[]) < $4::jsonb`)
	assert.Contains(t, sql, `jsonb_array_elements`)
	assert.Equal(t, []any{"users", `{"age"}`, `18`, `65`}, b.args)
}

func TestTextArray(t *testing.T) {
	assert.Equal(t, `{"a","b"}`, textArray([]string{"a", "b"}))
	assert.Equal(t, `{"we\"ird","back\\slash"}`, textArray([]string{`we"ird`, `back\slash`}))
}
