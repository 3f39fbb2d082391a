package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalInvariant(t *testing.T) {
	_, err := Decimal(5, 10)
	require.Error(t, err, "precision < scale must fail (T-1)")

	d, err := Decimal(25, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(25), d.Precision)
	assert.Equal(t, uint8(5), d.Scale)
}

func TestCharVarCharInvariant(t *testing.T) {
	_, err := Char(0)
	assert.Error(t, err, "T-2: length must be >= 1")
	_, err = VarChar(0)
	assert.Error(t, err, "T-2: length must be >= 1")

	c, err := Char(10)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), c.Length)
}

func TestParseTypeCompact(t *testing.T) {
	for _, tag := range []string{"uuid", "int64", "text", "bool", "bytes"} {
		data := []byte(`"` + tag + `"`)
		ut, err := ParseType(data)
		require.NoError(t, err, tag)
		assert.Equal(t, Tag(tag), ut.Tag)
	}
}

func TestParseTypeUnknownFails(t *testing.T) {
	_, err := ParseType([]byte(`"not_a_real_type"`))
	assert.Error(t, err, "unknown tags fail, there is no fallback")
}

func TestParseTypeStructuredRoundTrip(t *testing.T) {
	d, err := Decimal(25, 5)
	require.NoError(t, err)
	data, err := d.Serialize()
	require.NoError(t, err)
	parsed, err := ParseType(data)
	require.NoError(t, err)
	assert.True(t, d.Equal(parsed))

	arr := Array(VarCharMust(t, 255))
	data, err = arr.Serialize()
	require.NoError(t, err)
	parsed, err = ParseType(data)
	require.NoError(t, err)
	assert.True(t, arr.Equal(parsed))
}

func VarCharMust(t *testing.T, n uint16) UniversalType {
	t.Helper()
	vc, err := VarChar(n)
	require.NoError(t, err)
	return vc
}

func TestParseTypeAcceptsEitherForm(t *testing.T) {
	// Compact form for a parameterless tag.
	ut, err := ParseType([]byte(`"uuid"`))
	require.NoError(t, err)
	assert.Equal(t, TagUuid, ut.Tag)

	// Structured form for the same parameterless tag is also accepted.
	ut, err = ParseType([]byte(`{"type":"uuid"}`))
	require.NoError(t, err)
	assert.Equal(t, TagUuid, ut.Tag)
}

func TestIDAdmissible(t *testing.T) {
	assert.True(t, Text.IDAdmissible())
	assert.True(t, Int32.IDAdmissible())
	assert.True(t, Int64.IDAdmissible())
	assert.True(t, Uuid.IDAdmissible())
	assert.True(t, Ulid.IDAdmissible())
	assert.False(t, Float64.IDAdmissible())
	assert.False(t, Bool.IDAdmissible())
}

func TestCategoryPredicatesExhaustive(t *testing.T) {
	// Every tag must land in exactly the categories spec.md describes;
	// none should silently fall through to "false" for every predicate
	// (that would indicate a tag the predicates forgot about).
	all := []UniversalType{
		Bool, Int8, Int16, Int32, Int64, Float32, Float64,
		mustDecimal(t), Text, mustChar(t), mustVarChar(t), Blob, Bytes,
		Date, Time, LocalDateTime, LocalDateTimeNano, ZonedDateTime, TimeTz,
		Duration, Uuid, Ulid, Json, Jsonb, Array(Text), Set([]string{"a"}),
		Enum([]string{"a"}), mustGeometry(t), Thing,
	}
	for _, ut := range all {
		categorized := ut.IsNumeric() || ut.IsString() || ut.IsTemporal() ||
			ut.IsBinary() || ut.IsContainer() ||
			ut.Tag == TagBool || ut.Tag == TagUuid || ut.Tag == TagUlid ||
			ut.Tag == TagJson || ut.Tag == TagJsonb || ut.Tag == TagGeometry ||
			ut.Tag == TagThing
		assert.True(t, categorized, "tag %v fell through every predicate", ut.Tag)
	}
}

func mustDecimal(t *testing.T) UniversalType {
	ut, err := Decimal(10, 2)
	require.NoError(t, err)
	return ut
}

func mustChar(t *testing.T) UniversalType {
	ut, err := Char(4)
	require.NoError(t, err)
	return ut
}

func mustVarChar(t *testing.T) UniversalType {
	ut, err := VarChar(4)
	require.NoError(t, err)
	return ut
}

func mustGeometry(t *testing.T) UniversalType {
	ut, err := Geometry(GeometryPoint)
	require.NoError(t, err)
	return ut
}
