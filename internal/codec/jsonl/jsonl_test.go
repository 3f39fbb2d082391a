package jsonl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestDecodeLineDispatchesBySchema(t *testing.T) {
	schema := map[string]types.UniversalType{
		"id":   types.Int64,
		"name": types.Text,
	}
	out, err := DecodeLine([]byte(`{"id": 7, "name": "alice"}`), schema)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out["id"].Int)
	assert.Equal(t, "alice", out["name"].Str)
}

func TestDecodeLineMissingFieldIsNull(t *testing.T) {
	schema := map[string]types.UniversalType{"id": types.Int64}
	out, err := DecodeLine([]byte(`{}`), schema)
	require.NoError(t, err)
	assert.True(t, out["id"].IsNull())
}

func TestDecodeArrayField(t *testing.T) {
	v, err := DecodeValue(json.RawMessage(`[1,2,3]`), types.Array(types.Int32))
	require.NoError(t, err)
	require.Len(t, v.Elements, 3)
}

func TestDecodeDecimalFromNumber(t *testing.T) {
	ut, err := types.Decimal(10, 2)
	require.NoError(t, err)
	v, err := DecodeValue(json.RawMessage(`9.5`), ut)
	require.NoError(t, err)
	assert.Equal(t, "9.50", v.DecimalValue)
}
