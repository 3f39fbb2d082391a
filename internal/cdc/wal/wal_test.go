package wal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func testSchema() types.Schema {
	return types.NewSchema(1, []types.NamedTableDef{
		{
			Name: "users",
			TableDef: types.TableDef{
				ID: types.ColDef{Name: "id", Type: mustInt32()},
				Columns: []types.ColDef{
					{Name: "id", Type: mustInt32()},
					{Name: "name", Type: types.UniversalType{Tag: types.TagText}},
				},
			},
		},
	})
}

func mustInt32() types.UniversalType {
	return types.UniversalType{Tag: types.TagInt32}
}

func strp(s string) *string { return &s }

type fakeRawFeed struct {
	records []fakeRecord
	i       int
	advance []string
}

type fakeRecord struct {
	raw json.RawMessage
	lsn string
}

func (f *fakeRawFeed) PeekRaw(ctx context.Context) (json.RawMessage, string, bool, error) {
	if f.i >= len(f.records) {
		return nil, "", false, nil
	}
	r := f.records[f.i]
	f.i++
	return r.raw, r.lsn, true, nil
}

func (f *fakeRawFeed) AdvanceRaw(ctx context.Context, lsn string) error {
	f.advance = append(f.advance, lsn)
	return nil
}

func record(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestAdapterDecodesInsertUpdateDelete(t *testing.T) {
	feed := &fakeRawFeed{records: []fakeRecord{
		{lsn: "0/1", raw: record(t, map[string]interface{}{
			"action": "B", "xid": "100",
		})},
		{lsn: "0/2", raw: record(t, map[string]interface{}{
			"action": "I", "table": "users",
			"columns": []walColumn{
				{Name: "id", Type: "int4", Value: strp("1")},
				{Name: "name", Type: "text", Value: strp("ada")},
			},
			"pk": []walColumn{{Name: "id", Type: "int4", Value: strp("1")}},
		})},
		{lsn: "0/3", raw: record(t, map[string]interface{}{
			"action": "U", "table": "users",
			"columns": []walColumn{
				{Name: "id", Type: "int4", Value: strp("1")},
				{Name: "name", Type: "text", Value: strp("ada2")},
			},
			"pk": []walColumn{{Name: "id", Type: "int4", Value: strp("1")}},
		})},
		{lsn: "0/4", raw: record(t, map[string]interface{}{
			"action": "D", "table": "users",
			"identity": []walColumn{{Name: "id", Type: "int4", Value: strp("1")}},
			"pk":       []walColumn{{Name: "id", Type: "int4", Value: strp("1")}},
		})},
		{lsn: "0/5", raw: record(t, map[string]interface{}{
			"action": "C", "xid": "100", "nextlsn": "0/5",
		})},
	}}

	a := New(feed, testSchema(), "slot1", "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, errc := a.Changes(ctx)

	var ops []types.ChangeOp
	for i := 0; i < 5; i++ {
		select {
		case p, ok := <-out:
			require.True(t, ok)
			ops = append(ops, p.Change.Op)
		case err := <-errc:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, []types.ChangeOp{
		types.OpBegin, types.OpCreate, types.OpUpdate, types.OpDelete, types.OpCommit,
	}, ops)

	cursor := a.GetCursor()
	assert.Equal(t, types.CursorWAL, cursor.Kind)
	assert.Equal(t, "0/5", cursor.LSN)
}

func TestAdapterStopsAtTargetLSN(t *testing.T) {
	feed := &fakeRawFeed{records: []fakeRecord{
		{lsn: "0/1", raw: record(t, map[string]interface{}{
			"action": "C", "xid": "1", "nextlsn": "0/1",
		})},
	}}

	a := New(feed, testSchema(), "slot1", "0/1")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, errc := a.Changes(ctx)

	select {
	case <-out:
	case err := <-errc:
		t.Fatalf("unexpected error before commit delivered: %v", err)
	}

	err := <-errc
	assert.True(t, types.IsTargetReached(err))
}

func TestAdapterPropagatesUnknownTableError(t *testing.T) {
	feed := &fakeRawFeed{records: []fakeRecord{
		{lsn: "0/1", raw: record(t, map[string]interface{}{
			"action": "I", "table": "missing",
			"columns": []walColumn{{Name: "id", Type: "int4", Value: strp("1")}},
		})},
	}}

	a := New(feed, testSchema(), "slot1", "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, errc := a.Changes(ctx)
	err := <-errc
	require.Error(t, err)
}

func TestAdapterAdvanceDelegatesToFeed(t *testing.T) {
	feed := &fakeRawFeed{}
	a := New(feed, testSchema(), "slot1", "")
	require.NoError(t, a.Advance(context.Background(), "0/10"))
	assert.Equal(t, []string{"0/10"}, feed.advance)
}
