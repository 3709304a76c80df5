package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(`{"s":"x","i":3,"f":1.25,"e":1e3,"b":true,"n":null,"a":[1,"two"],"o":{"k":"v"}}`))
	require.NoError(t, err)

	assert.Equal(t, KindString, doc["s"].Kind())
	assert.Equal(t, KindInt, doc["i"].Kind())
	assert.Equal(t, int64(3), doc["i"].Int())
	assert.Equal(t, KindFloat, doc["f"].Kind())
	assert.Equal(t, KindFloat, doc["e"].Kind())
	assert.Equal(t, 1000.0, doc["e"].Float())
	assert.True(t, doc["b"].Bool())
	assert.True(t, doc["n"].IsNull())
	assert.Len(t, doc["a"].Items(), 2)
	assert.Equal(t, "v", doc["o"].Object()["k"].Str())
}

func TestDecodeDocument_Rejects(t *testing.T) {
	for _, in := range []string{"", "[]", `"x"`, `{"a":1}x`, `{"a":1,"a":2}`, `{"a"}`} {
		_, err := DecodeDocument(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc := Document{
		"b": Int(1),
		"a": Array(String("x"), Null(), Bool(false)),
		"c": Object(Document{"z": Float(0.5)}),
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":["x",null,false],"b":1,"c":{"z":0.5}}`, string(b))
	assert.Equal(t, `{"a":["x",null,false],"b":1,"c":{"z":0.5}}`, string(b))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Int(2).Equal(Float(2)))
	assert.False(t, Int(2).Equal(String("2")))
	assert.True(t, Array(Int(1)).Equal(Array(Float(1))))
	assert.False(t, Array(Int(1)).Equal(Array(Int(1), Int(2))))
	assert.True(t, Object(Document{"a": Null()}).Equal(Object(Document{"a": Null()})))
	assert.False(t, Object(Document{"a": Null()}).Equal(Object(Document{"b": Null()})))
}

func TestValue_Compare(t *testing.T) {
	c, ok := Int(1).Compare(Float(1.5))
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = String("b").Compare(String("a"))
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	_, ok = String("1").Compare(Int(1))
	assert.False(t, ok)
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(map[string]any{"n": int32(4), "l": []any{"x", nil}, "f": float32(0.5)})
	require.NoError(t, err)
	doc := v.Object()
	assert.Equal(t, int64(4), doc["n"].Int())
	assert.Equal(t, KindArray, doc["l"].Kind())
	assert.Equal(t, 0.5, doc["f"].Float())

	_, err = FromInterface(struct{}{})
	assert.Error(t, err)
}

func TestDocument_Paths(t *testing.T) {
	doc := Document{"a": Object(Document{"b": Array(Int(1), Int(2))})}

	v, ok := doc.Lookup("a.b.1")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Int())

	_, ok = doc.Lookup("a.c")
	assert.False(t, ok)

	doc.SetPath("x.y", String("z"))
	v, ok = doc.Lookup("x.y")
	require.True(t, ok)
	assert.Equal(t, "z", v.Str())
}

func TestDocument_MergeAndClone(t *testing.T) {
	orig := Document{"a": Int(1), "b": Object(Document{"c": Int(2)})}
	cp := orig.Clone()
	cp.Merge(Document{"a": Int(9), "d": Bool(true)})

	assert.Equal(t, int64(1), orig["a"].Int())
	assert.Equal(t, int64(9), cp["a"].Int())
	assert.True(t, cp["d"].Bool())
	assert.True(t, cp["b"].Equal(orig["b"]))
}

func TestProjection_Apply(t *testing.T) {
	doc := Document{
		IDField:   String("id1"),
		"a":       Int(1),
		"b":       Int(2),
		"c":       Int(3),
		"address": Object(Document{"city": String("Porto"), "zip": String("4000")}),
	}

	assert.Equal(t, doc, Projection(nil).Apply(doc))

	got := Projection{"a", "b", "missing"}.Apply(doc)
	assert.Equal(t, []string{IDField, "a", "b"}, got.Keys())

	got = Projection{"address.city"}.Apply(doc)
	assert.True(t, Document{
		IDField:   String("id1"),
		"address": Object(Document{"city": String("Porto")}),
	}.Equal(got))
}
