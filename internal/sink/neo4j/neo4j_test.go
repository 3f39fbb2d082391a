package neo4j

import (
	"testing"
	"time"

	"github.com/oklog/ulid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestNullLiteral(t *testing.T) {
	lit, err := ToCypherLiteral(types.Null(types.Text), nil)
	require.NoError(t, err)
	assert.Equal(t, "null", lit)
}

func TestBoolLiteral(t *testing.T) {
	lit, err := ToCypherLiteral(types.NewBool(true), nil)
	require.NoError(t, err)
	assert.Equal(t, "true", lit)
}

func TestNaNFloatRejected(t *testing.T) {
	_, err := ToCypherLiteral(types.NewFloat64(nanFloat()), nil)
	require.Error(t, err)
}

func TestInfiniteFloatRejected(t *testing.T) {
	_, err := ToCypherLiteral(types.NewFloat64(infFloat()), nil)
	require.Error(t, err)
}

func TestStringEscaping(t *testing.T) {
	lit, err := ToCypherLiteral(types.NewText("it's a \"test\"\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, `'it\'s a \"test\"\n'`, lit)
}

func TestBytesAsHex(t *testing.T) {
	lit, err := ToCypherLiteral(types.NewBytes([]byte{0xde, 0xad, 0xbe, 0xef}), nil)
	require.NoError(t, err)
	assert.Equal(t, "'deadbeef'", lit)
}

func TestDurationLiteral(t *testing.T) {
	lit, err := ToCypherLiteral(types.NewDuration(12, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, "duration('PT12S')", lit)

	lit, err = ToCypherLiteral(types.NewDuration(12, 500000000), nil)
	require.NoError(t, err)
	assert.Equal(t, "duration('PT12.500000000S')", lit)
}

func TestDateTimeLiterals(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	lit, err := ToCypherLiteral(types.NewDate(d), nil)
	require.NoError(t, err)
	assert.Equal(t, "date('2024-03-05')", lit)

	lit, err = ToCypherLiteral(types.NewTime(13, 2, 1, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, "time('13:02:01')", lit)
}

func TestThingLiteral(t *testing.T) {
	id := types.NewText("abc123")
	thing, err := types.NewThing("users", id, func(v types.UniversalValue) types.UniversalType { return types.Text })
	require.NoError(t, err)
	lit, err := ToCypherLiteral(thing, nil)
	require.NoError(t, err)
	assert.Equal(t, "'users:abc123'", lit)
}

func TestThingRejectsUnsupportedIDKind(t *testing.T) {
	id := types.NewUlid(ulid.ULID{})
	thing, err := types.NewThing("users", id, func(v types.UniversalValue) types.UniversalType { return types.Ulid })
	require.NoError(t, err)
	_, err = ToCypherLiteral(thing, nil)
	require.Error(t, err)
}

func TestObjectLiteralBacktickEscapesKeys(t *testing.T) {
	i32, err := types.NewInt(3, 32)
	require.NoError(t, err)
	obj := types.NewObject(map[string]types.UniversalValue{
		"a`b": i32,
	})
	lit, err := ToCypherLiteral(obj, nil)
	require.NoError(t, err)
	assert.Equal(t, "{`a``b`: 3}", lit)
}

func TestArrayLiteralRecursesElementType(t *testing.T) {
	elems := []types.UniversalValue{types.NewText("a"), types.NewText("b")}
	arr, err := types.NewArray(elems, types.Text, nil)
	require.NoError(t, err)
	lit, err := ToCypherLiteral(arr, &types.Text)
	require.NoError(t, err)
	assert.Equal(t, "['a', 'b']", lit)
}

func nanFloat() float64 {
	var zero float64
	return zero / zero
}

func infFloat() float64 {
	var zero float64
	one := 1.0
	return one / zero
}
