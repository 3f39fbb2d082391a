package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// fakeQuerier answers FindRecord from a generator, optionally mutating
// or dropping specific rows, to exercise the verifier's missing and
// mismatched paths without a real sink.
type fakeQuerier struct {
	gen     *Generator
	table   string
	drop    map[uint64]bool
	mutate  map[uint64]string
}

func (f *fakeQuerier) FindRecord(ctx context.Context, table string, id interface{}) (map[string]interface{}, bool, error) {
	idStr, ok := id.(string)
	if !ok {
		return nil, false, nil
	}
	for i := uint64(0); i < 1000; i++ {
		row, err := f.gen.Row(f.table, i)
		if err != nil {
			return nil, false, err
		}
		if row.ID.Str != idStr {
			continue
		}
		if f.drop[i] {
			return nil, false, nil
		}
		fields := map[string]interface{}{
			"name":   row.Fields["name"].Str,
			"qty":    row.Fields["qty"].Int,
			"price":  row.Fields["price"].DecimalValue,
			"active": row.Fields["active"].Bool,
		}
		tags := make([]interface{}, 0, len(row.Fields["tags"].SetValues))
		for _, v := range row.Fields["tags"].SetValues {
			tags = append(tags, v)
		}
		fields["tags"] = tags

		rating := make([]interface{}, 0, len(row.Fields["rating"].Elements))
		for _, v := range row.Fields["rating"].Elements {
			rating = append(rating, v.Float64)
		}
		fields["rating"] = rating

		if newName, ok := f.mutate[i]; ok {
			fields["name"] = newName
		}
		return fields, true, nil
	}
	return nil, false, nil
}

func TestVerifyRangeAllMatch(t *testing.T) {
	schema := testVerifySchema()
	gen := NewGenerator(1, schema)
	q := &fakeQuerier{gen: gen, table: "items"}

	v, err := NewVerifier(q, schema, 1, "items")
	require.NoError(t, err)

	report, err := v.VerifyRange(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), report.Expected)
	assert.Equal(t, uint64(10), report.Found)
	assert.Equal(t, uint64(10), report.Matched)
	assert.Zero(t, report.Missing)
	assert.Zero(t, report.Mismatched)
	assert.True(t, report.OK())
}

func TestVerifyRangeReportsMissingRows(t *testing.T) {
	schema := testVerifySchema()
	gen := NewGenerator(1, schema)
	q := &fakeQuerier{gen: gen, table: "items", drop: map[uint64]bool{3: true}}

	v, err := NewVerifier(q, schema, 1, "items")
	require.NoError(t, err)

	report, err := v.VerifyRange(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Missing)
	require.Len(t, report.MissingRows, 1)
	assert.Equal(t, uint64(3), report.MissingRows[0].Index)
	assert.False(t, report.OK())
}

func TestVerifyRangeReportsMismatchedFields(t *testing.T) {
	schema := testVerifySchema()
	gen := NewGenerator(1, schema)
	q := &fakeQuerier{gen: gen, table: "items", mutate: map[uint64]string{2: "corrupted"}}

	v, err := NewVerifier(q, schema, 1, "items")
	require.NoError(t, err)

	report, err := v.VerifyRange(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Mismatched)
	require.Len(t, report.MismatchedRows, 1)
	assert.Equal(t, uint64(2), report.MismatchedRows[0].Index)
	require.Len(t, report.MismatchedRows[0].Fields, 1)
	assert.Equal(t, "name", report.MismatchedRows[0].Fields[0].Field)
}

func TestVerifyRangeStartIndexSkipsEarlierRows(t *testing.T) {
	schema := testVerifySchema()
	gen := NewGenerator(1, schema)
	q := &fakeQuerier{gen: gen, table: "items", drop: map[uint64]bool{1: true}}

	v, err := NewVerifier(q, schema, 1, "items")
	require.NoError(t, err)

	report, err := v.VerifyRange(context.Background(), 5, 5)
	require.NoError(t, err)
	assert.Zero(t, report.Missing)
	assert.Equal(t, uint64(5), report.Matched)
}

func TestNewVerifierRejectsUnknownTable(t *testing.T) {
	schema := testVerifySchema()
	_, err := NewVerifier(&fakeQuerier{}, schema, 1, "missing")
	require.Error(t, err)
	assert.True(t, types.As(err, types.KindSchemaMismatch))
}
