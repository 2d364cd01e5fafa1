package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAccumulatesInOrder(t *testing.T) {
	rec := New()
	rec.Put("/links/forward", 20)
	rec.Put("/links/forward", 40)
	rec.Put("/links/forward", 60)

	assert.Equal(t, []any{20, 40, 60}, rec.Get("/links/forward"))
	assert.Equal(t, 20, rec.GetFirstValue("/links/forward"))
	assert.Equal(t, []string{"/links/forward"}, rec.Fields())
}

func TestGetAbsentField(t *testing.T) {
	rec := New()

	values := rec.Get("missing")
	require.NotNil(t, values)
	assert.Empty(t, values)
	assert.Nil(t, rec.GetFirstValue("missing"))
	assert.False(t, rec.Has("missing"))
}

func TestExplicitNullIsDistinctFromAbsence(t *testing.T) {
	rec := New()
	rec.Put("nullable", nil)

	assert.Equal(t, []any{nil}, rec.Get("nullable"))
	assert.True(t, rec.Has("nullable"))

	rec.RemoveAll("nullable")
	assert.Empty(t, rec.Get("nullable"))
	assert.False(t, rec.Has("nullable"))
	assert.Equal(t, 0, rec.Len())
}

func TestGetResultCannotGrowIntoRecord(t *testing.T) {
	rec := New()
	rec.PutAll("f", "a", "b")

	values := rec.Get("f")
	_ = append(values, "c")
	rec.Put("f", "d")

	assert.Equal(t, []any{"a", "b", "d"}, rec.Get("f"))
	assert.Equal(t, []any{"a", "b"}, values)
}

func TestCopyIsolation(t *testing.T) {
	payload := []byte("shared")
	orig := New()
	orig.PutAll("name", "alpha", "beta")
	orig.Put("body", payload)

	cp := orig.Copy()
	require.True(t, cp.Equal(orig))

	cp.Put("name", "gamma")
	cp.Replace("body", "other")
	cp.Put("added", 1)

	assert.Equal(t, []any{"alpha", "beta"}, orig.Get("name"))
	assert.Equal(t, []any{payload}, orig.Get("body"))
	assert.False(t, orig.Has("added"))

	orig.RemoveAll("name")
	assert.Equal(t, []any{"alpha", "beta", "gamma"}, cp.Get("name"))
	assert.False(t, cp.Equal(orig))
}

func TestCopySharesValues(t *testing.T) {
	payload := map[string]string{"k": "v"}
	orig := New()
	orig.Put("obj", payload)

	cp := orig.Copy()
	got, ok := cp.GetFirstValue("obj").(map[string]string)
	require.True(t, ok)
	got["k"] = "changed"

	assert.Equal(t, "changed", payload["k"])
}

func TestReplaceAndString(t *testing.T) {
	rec := New()
	rec.PutAll("b", 1, 2)
	rec.Put("a", "x")
	rec.Replace("b", 3)

	assert.Equal(t, []any{3}, rec.Get("b"))
	assert.Equal(t, "{a=[x], b=[3]}", rec.String())
	assert.Equal(t, map[string][]any{"a": {"x"}, "b": {3}}, rec.ToMap())
}

func TestEqual(t *testing.T) {
	a := New()
	a.PutAll("f", 1, 2)
	b := New()
	b.PutAll("f", 2, 1)

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	b.RemoveAll("f")
	b.PutAll("f", 1, 2)
	assert.True(t, a.Equal(b))
}
