package types

import "testing"

import "github.com/stretchr/testify/assert"

func TestValueCompareSameType(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Value
		expected Ordering
		ok       bool
	}{
		{"int64 less", NewInt64(1), NewInt64(2), Less, true},
		{"int64 equal", NewInt64(5), NewInt64(5), Equal, true},
		{"int64 greater", NewInt64(9), NewInt64(2), Greater, true},
		{"float64 less", NewFloat64(1.5), NewFloat64(2.5), Less, true},
		{"string less", NewString("a"), NewString("b"), Less, true},
		{"bool less", NewBool(false), NewBool(true), Less, true},
		{"date", NewDate(10), NewDate(5), Greater, true},
		{"timestamp", NewTimestamp(100), NewTimestamp(100), Equal, true},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ord, ok := tt.a.Compare(tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, ord)
		})
	}
}

func TestValueCompareTypeMismatch(t *testing.T) {
	_, ok := NewInt64(1).Compare(NewFloat64(1))
	assert.False(t, ok, "cross-type comparison should not match without promotion")
}

func TestValueCompareNull(t *testing.T) {
	_, ok := Null.Compare(NewInt64(1))
	assert.False(t, ok)
	_, ok = NewInt64(1).Compare(Null)
	assert.False(t, ok)
}

func TestPromoteForComparison(t *testing.T) {
	a, b := PromoteForComparison(NewInt64(3), NewFloat64(3.0))
	ord, ok := a.Compare(b)
	assert.True(t, ok)
	assert.Equal(t, Equal, ord)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewInt64(1).Equal(NewInt64(1)))
	assert.False(t, NewInt64(1).Equal(NewFloat64(1)))
	assert.True(t, Null.Equal(Null))
	assert.False(t, Null.Equal(NewInt64(0)))
}

func TestRowBasics(t *testing.T) {
	row := NewRow()
	row.Set("p.name", NewString("Alice"))
	v, ok := row.Get("p.name")
	assert.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "Alice", s)
	assert.Equal(t, 1, row.Len())
	assert.True(t, row.Contains("p.name"))
	assert.False(t, row.Contains("p.age"))
}

func TestQueryResultImport(t *testing.T) {
	res := ImportResult(10, 2)
	assert.Equal(t, 1, res.RowCount())
	v, _ := res.Rows[0].Get("rows_imported")
	n, _ := v.AsInt64()
	assert.Equal(t, int64(10), n)
}
