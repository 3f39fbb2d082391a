package verify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestCompareBoolMatch(t *testing.T) {
	assert.True(t, Compare(types.NewBool(true), true, Options{}).Match)
	assert.False(t, Compare(types.NewBool(true), false, Options{}).Match)
}

func TestCompareIntAcceptsAnyNumericNativeType(t *testing.T) {
	expected, err := types.NewInt(42, 32)
	assert.NoError(t, err)

	assert.True(t, Compare(expected, int64(42), Options{}).Match)
	assert.True(t, Compare(expected, float64(42), Options{}).Match)
	assert.False(t, Compare(expected, float64(43), Options{}).Match)
}

func TestCompareFloat64WithinTolerance(t *testing.T) {
	expected := types.NewFloat64(1.0000000001)
	assert.True(t, Compare(expected, 1.0000000002, Options{}).Match)
	assert.False(t, Compare(expected, 1.1, Options{}).Match)
}

func TestCompareDecimalToleratesStringOrFloat(t *testing.T) {
	expected, err := types.NewDecimal("12.50", 10, 2)
	assert.NoError(t, err)

	assert.True(t, Compare(expected, "12.50", Options{}).Match)
	assert.True(t, Compare(expected, 12.5, Options{}).Match)
	assert.False(t, Compare(expected, 13.0, Options{}).Match)
}

func TestCompareTextExact(t *testing.T) {
	expected := types.NewText("hello")
	assert.True(t, Compare(expected, "hello", Options{}).Match)
	assert.False(t, Compare(expected, "goodbye", Options{}).Match)
}

func TestCompareUuidAcceptsStringOrNative(t *testing.T) {
	u := uuid.New()
	expected := types.NewUuid(u)

	assert.True(t, Compare(expected, u, Options{}).Match)
	assert.True(t, Compare(expected, u.String(), Options{}).Match)
	assert.False(t, Compare(expected, uuid.New().String(), Options{}).Match)
}

func TestCompareDateTimeAcceptsRFC3339String(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	expected := types.NewLocalDateTime(now)

	assert.True(t, Compare(expected, now, Options{}).Match)
	assert.True(t, Compare(expected, now.Format(time.RFC3339Nano), Options{}).Match)
}

func TestCompareArrayElementwise(t *testing.T) {
	elems := []types.UniversalValue{types.NewText("a"), types.NewText("b")}
	expected, err := types.NewArray(elems, types.Text, func(types.UniversalValue) types.UniversalType { return types.Text })
	assert.NoError(t, err)

	assert.True(t, Compare(expected, []interface{}{"a", "b"}, Options{}).Match)
	assert.False(t, Compare(expected, []interface{}{"a", "c"}, Options{}).Match)
	assert.False(t, Compare(expected, []interface{}{"a"}, Options{}).Match)
}

func TestCompareArrayMissingAsEmptyArray(t *testing.T) {
	expected, err := types.NewArray(nil, types.Text, nil)
	assert.NoError(t, err)

	assert.False(t, Compare(expected, nil, Options{}).Match)
	assert.True(t, Compare(expected, nil, Options{AcceptMissingAsEmptyArray: true}).Match)
}

func TestCompareSetIgnoresOrder(t *testing.T) {
	expected, err := types.NewSet([]string{"a", "b"}, []string{"a", "b", "c"})
	assert.NoError(t, err)

	assert.True(t, Compare(expected, []interface{}{"b", "a"}, Options{}).Match)
	assert.False(t, Compare(expected, []interface{}{"a"}, Options{}).Match)
}

func TestCompareJSONSemanticEquality(t *testing.T) {
	expected := types.NewJson([]byte(`{"a":1,"b":[1,2,3]}`))

	assert.True(t, Compare(expected, map[string]interface{}{"b": []interface{}{1.0, 2.0, 3.0}, "a": 1.0}, Options{}).Match)
	assert.False(t, Compare(expected, map[string]interface{}{"a": 2.0, "b": []interface{}{1.0, 2.0, 3.0}}, Options{}).Match)
}

func TestCompareJSONAcceptsStringEncodedObject(t *testing.T) {
	expected := types.NewJson([]byte(`{"a":1}`))

	assert.False(t, Compare(expected, `{"a":1}`, Options{}).Match)
	assert.True(t, Compare(expected, `{"a":1}`, Options{AcceptObjectAsJSONString: true}).Match)
}

func TestCompareNull(t *testing.T) {
	expected := types.Null(types.Text)
	assert.True(t, Compare(expected, nil, Options{}).Match)
	assert.False(t, Compare(expected, "x", Options{}).Match)
}
