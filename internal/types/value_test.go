package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concrete scenario 1 from spec.md §8: decimal precision preservation.
func TestDecimalPrecisionPreservation(t *testing.T) {
	v, err := NewDecimal("12345678901234567890.12345", 25, 5)
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890.12345", v.DecimalValue)
	assert.Equal(t, uint8(25), v.DecimalPrecision)
	assert.Equal(t, uint8(5), v.DecimalScale)
}

func TestDecimalValueValidation(t *testing.T) {
	cases := []struct {
		value   string
		scale   uint8
		wantErr bool
	}{
		{"123.45", 2, false},
		{"-123.45", 2, false},
		{"+123.45", 2, false},
		{"0.00", 2, false}, // leading zeros permitted (V-3)
		{"123.4", 2, true}, // wrong fractional digit count
		{"123.456", 2, true},
		{"abc", 0, true},
		{"12.3.4", 1, true},
		{"", 0, true},
	}
	for _, c := range cases {
		_, err := NewDecimal(c.value, 20, c.scale)
		if c.wantErr {
			assert.Error(t, err, c.value)
		} else {
			assert.NoError(t, err, c.value)
		}
	}
}

func TestArrayElementTypeConformance(t *testing.T) {
	typeOf := func(v UniversalValue) UniversalType {
		if v.Kind == KindText {
			return Text
		}
		return Int64
	}
	_, err := NewArray([]UniversalValue{NewText("a"), NewText("b")}, Text, typeOf)
	require.NoError(t, err)

	bad, _ := NewInt(1, 64)
	_, err = NewArray([]UniversalValue{NewText("a"), bad}, Text, typeOf)
	assert.Error(t, err, "T-3: element type must conform")
}

func TestArrayEmptyIsNotNull(t *testing.T) {
	v, err := NewArray(nil, Text, nil)
	require.NoError(t, err)
	assert.False(t, v.IsNull())
	assert.Equal(t, KindArray, v.Kind)
	assert.Empty(t, v.Elements)
}

func TestSetMembership(t *testing.T) {
	v, err := NewSet([]string{"technology", "tutorial"},
		[]string{"technology", "tutorial", "news", "opinion"})
	require.NoError(t, err)
	assert.Equal(t, []string{"technology", "tutorial"}, v.SetValues)

	_, err = NewSet([]string{"not-allowed"}, []string{"technology"})
	assert.Error(t, err, "T-4: set elements must be members of values")
}

func TestEnumMembership(t *testing.T) {
	_, err := NewEnum("red", []string{"red", "green", "blue"})
	require.NoError(t, err)

	_, err = NewEnum("purple", []string{"red", "green", "blue"})
	assert.Error(t, err, "T-4: enum value must be a member of values")
}

func TestThingIDAdmissible(t *testing.T) {
	typeOf := func(v UniversalValue) UniversalType {
		switch v.Kind {
		case KindUuid:
			return Uuid
		case KindFloat64:
			return Float64
		default:
			return Text
		}
	}
	id := NewText("user-1")
	_, err := NewThing("users", id, typeOf)
	require.NoError(t, err)

	badID := NewFloat64(1.5)
	_, err = NewThing("users", badID, typeOf)
	assert.Error(t, err, "V-2: Thing.id must be id-admissible")
}

func TestNullCarriesIntendedType(t *testing.T) {
	n := Null(Int64)
	assert.True(t, n.IsNull())
	require.NotNil(t, n.NullType)
	assert.Equal(t, TagInt64, n.NullType.Tag)
}
