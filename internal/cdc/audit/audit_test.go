package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/codec/mysqlaudit"
	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func testSchema() types.Schema {
	return types.NewSchema(1, []types.NamedTableDef{
		{
			Name: "users",
			TableDef: types.TableDef{
				ID: types.ColDef{Name: "id", Type: types.UniversalType{Tag: types.TagInt32}},
				Columns: []types.ColDef{
					{Name: "id", Type: types.UniversalType{Tag: types.TagInt32}},
					{Name: "name", Type: types.UniversalType{Tag: types.TagText}},
				},
			},
		},
	})
}

func TestBootstrapSQLCreatesTableAndTriggersPerTable(t *testing.T) {
	named := []types.NamedTableDef{
		{Name: "users", TableDef: types.TableDef{
			ID:      types.ColDef{Name: "id", Type: types.UniversalType{Tag: types.TagInt32}},
			Columns: []types.ColDef{{Name: "name", Type: types.UniversalType{Tag: types.TagText}}},
		}},
	}
	stmts := BootstrapSQL(named)
	require.Len(t, stmts, 4) // table + 3 triggers
	assert.Contains(t, stmts[0], TableName)
	assert.Contains(t, stmts[1], "AFTER INSERT ON `users`")
	assert.Contains(t, stmts[2], "AFTER UPDATE ON `users`")
	assert.Contains(t, stmts[3], "AFTER DELETE ON `users`")
	assert.Contains(t, stmts[3], "OLD.`id`")
}

func TestBootstrapExecutesEachStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 4; i++ {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	a := New(db, testSchema(), "testdb", mysqlaudit.Options{})
	require.NoError(t, a.Bootstrap(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentCursorReadsMaxSequenceID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT MAX\\(sequence_id\\) FROM " + TableName).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(42))

	a := New(db, testSchema(), "testdb", mysqlaudit.Options{})
	cursor, err := a.CurrentCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cursor.SequenceID)
	assert.Equal(t, types.CursorAudit, cursor.Kind)
}

func TestCurrentCursorHandlesEmptyAuditTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT MAX\\(sequence_id\\) FROM " + TableName).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	a := New(db, testSchema(), "testdb", mysqlaudit.Options{})
	cursor, err := a.CurrentCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cursor.SequenceID)
}

func TestChangesDecodesInsertUpdateDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT MAX\\(sequence_id\\) FROM " + TableName).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectQuery("SELECT sequence_id, op, table_name, row_id, row_data FROM "+TableName).
		WithArgs(uint64(0), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"sequence_id", "op", "table_name", "row_id", "row_data"}).
			AddRow(1, "I", "users", "1", []byte(`{"id":1,"name":"ada"}`)).
			AddRow(2, "U", "users", "1", []byte(`{"id":1,"name":"ada2"}`)).
			AddRow(3, "D", "users", "1", []byte(`{}`)))
	mock.ExpectQuery("SELECT MAX\\(sequence_id\\) FROM " + TableName).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))

	a := New(db, testSchema(), "testdb", mysqlaudit.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, errc := a.Changes(ctx)

	var ops []types.ChangeOp
	for i := 0; i < 3; i++ {
		select {
		case p, ok := <-out:
			require.True(t, ok)
			ops = append(ops, p.Change.Op)
		case err := <-errc:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, []types.ChangeOp{types.OpCreate, types.OpUpdate, types.OpDelete}, ops)
	assert.Equal(t, uint64(3), a.GetCursor().SequenceID)
}

func TestChangesPropagatesUnknownTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT MAX\\(sequence_id\\) FROM " + TableName).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(1))
	mock.ExpectQuery("SELECT sequence_id, op, table_name, row_id, row_data FROM "+TableName).
		WithArgs(uint64(0), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"sequence_id", "op", "table_name", "row_id", "row_data"}).
			AddRow(1, "I", "missing", "1", []byte(`{}`)))

	a := New(db, testSchema(), "testdb", mysqlaudit.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, errc := a.Changes(ctx)
	err = <-errc
	require.Error(t, err)
}
