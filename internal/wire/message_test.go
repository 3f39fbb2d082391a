package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func TestEncodeDecodeResolved(t *testing.T) {
	data := EncodeResolved("src-1", 1234567890)

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ResolvedMsg, msg.MsgType)
	assert.Equal(t, "src-1", msg.SourceID)
	assert.Equal(t, int64(1234567890), msg.ResolvedTs)
}

func TestEncodeDecodeRowChange(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	data, err := EncodeRowChange("src-1", RowUpdate, "orders", "42", payload)
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, RowChangeMsg, msg.MsgType)
	assert.Equal(t, RowUpdate, msg.Op)
	assert.Equal(t, "orders", msg.Table)
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, payload, msg.Payload)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 0, 1, 1})
	require.Error(t, err)
}

func TestDecodeRejectsCorruptedPayload(t *testing.T) {
	data, err := EncodeRowChange("src-1", RowCreate, "t", "1", []byte("hello"))
	require.NoError(t, err)

	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = Decode(corrupted)
	require.Error(t, err)
}

func TestRowOpChangeOpRoundTrip(t *testing.T) {
	op, err := rowOpFromChangeOp(types.OpUpdate)
	require.NoError(t, err)
	assert.Equal(t, RowUpdate, op)

	back, err := op.ChangeOp()
	require.NoError(t, err)
	assert.Equal(t, types.OpUpdate, back)
}
