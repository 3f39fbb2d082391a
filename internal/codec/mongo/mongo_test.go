package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestDecodeObjectIDToText(t *testing.T) {
	oid := primitive.NewObjectID()
	v, err := Decode(oid, types.Text)
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), v.Str)
}

func TestDecodeDecimal128Default(t *testing.T) {
	d, err := primitive.ParseDecimal128("123.4500")
	require.NoError(t, err)
	v, err := Decode(d, types.UniversalType{Tag: types.TagDecimal})
	require.NoError(t, err)
	assert.Equal(t, uint8(38), v.DecimalPrecision)
	assert.Equal(t, "123.4500", v.DecimalValue)
}

func TestDecodeTimestampIncrementAsNanos(t *testing.T) {
	ts := primitive.Timestamp{T: 1700000000, I: 42}
	v, err := Decode(ts, types.ZonedDateTime)
	require.NoError(t, err)
	assert.Equal(t, 42, v.Time.Nanosecond())
}

func TestDecodeDBRefToThing(t *testing.T) {
	oid := primitive.NewObjectID()
	ref := primitive.D{{Key: "$ref", Value: "users"}, {Key: "$id", Value: oid}}
	v, err := Decode(ref, types.Thing)
	require.NoError(t, err)
	assert.Equal(t, "users", v.ThingTable)
	assert.Equal(t, oid.Hex(), v.ThingID.Str)
}

func TestDecodeRegexRewrite(t *testing.T) {
	re := primitive.Regex{Pattern: "^abc", Options: "i"}
	v, err := decodeUntyped(re)
	require.NoError(t, err)
	assert.Equal(t, "(?i)^abc", v.Str)
}

func TestDecodeUUIDBinary(t *testing.T) {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	bin := primitive.Binary{Subtype: 0x04, Data: raw}
	v, err := Decode(bin, types.Uuid)
	require.NoError(t, err)
	assert.Equal(t, raw, v.UUID[:])
}

func TestDecodeArrayOfInts(t *testing.T) {
	arr := primitive.A{int32(1), int32(2), int32(3)}
	v, err := Decode(arr, types.Array(types.Int32))
	require.NoError(t, err)
	require.Len(t, v.Elements, 3)
	assert.Equal(t, int64(2), v.Elements[1].Int)
}

func TestDecodeDateTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	v, err := Decode(primitive.NewDateTimeFromTime(now), types.LocalDateTime)
	require.NoError(t, err)
	assert.True(t, now.Equal(v.Time))
}
