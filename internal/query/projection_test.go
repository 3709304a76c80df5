package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityapi/internal/model"
)

func TestBuildProjection(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want model.Projection
	}{
		{"absent", "", nil},
		{"blank", "  ", nil},
		{"only commas", ",, ,", nil},
		{"single", "name", model.Projection{"name"}},
		{"multiple", "a,b", model.Projection{"a", "b"}},
		{"whitespace and empty segments", " a , ,b,", model.Projection{"a", "b"}},
		{"duplicates collapse", "a,b,a", model.Projection{"a", "b"}},
		{"dotted", "address.city", model.Projection{"address.city"}},
		{"nested path under selected parent", "a,a.b", model.Projection{"a"}},
		{"parent listed after nested path", "a.b.c,x,a", model.Projection{"x", "a"}},
		{"siblings kept", "a.b,a.c", model.Projection{"a.b", "a.c"}},
		{"shared name prefix is not nesting", "ab,a.b", model.Projection{"ab", "a.b"}},
		{"numeric name inside key", "v2,item1.x", model.Projection{"v2", "item1.x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildProjection(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildProjection_Rejects(t *testing.T) {
	for _, in := range []string{"$where", "a,$b", "a..b", ".a", "tags.0", "a,items.12.name"} {
		_, err := BuildProjection(in)
		var perr *QueryParseError
		require.True(t, errors.As(err, &perr), in)
		assert.Equal(t, ParamFields, perr.Param)
	}
}
