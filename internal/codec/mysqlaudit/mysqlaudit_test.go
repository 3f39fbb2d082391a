package mysqlaudit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestDecodeSetFromCommaJoinedString(t *testing.T) {
	v, err := Decode(json.RawMessage(`"technology,tutorial"`),
		types.Set([]string{"technology", "tutorial", "news"}), "posts.tags", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"technology", "tutorial"}, v.SetValues)
}

func TestDecodeBooleanJSONPath(t *testing.T) {
	opts := Options{BooleanJSONPaths: map[string]bool{"users.active": true}}
	v, err := Decode(json.RawMessage(`1`), types.Int8, "users.active", opts)
	require.NoError(t, err)
	assert.Equal(t, types.KindBool, v.Kind)
	assert.True(t, v.Bool)
}

func TestDecodeNull(t *testing.T) {
	v, err := Decode(json.RawMessage(`null`), types.Text, "t.c", Options{})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestDecodeBigIntAsString(t *testing.T) {
	v, err := Decode(json.RawMessage(`"9223372036854775807"`), types.Int64, "t.c", Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), v.Int)
}

func TestDecodeDecimalFromNumber(t *testing.T) {
	ut, err := types.Decimal(10, 2)
	require.NoError(t, err)
	v, err := Decode(json.RawMessage(`123.45`), ut, "t.c", Options{})
	require.NoError(t, err)
	assert.Equal(t, "123.45", v.DecimalValue)
}
