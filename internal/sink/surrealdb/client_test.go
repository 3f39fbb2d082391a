package surrealdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func testSchema() types.Schema {
	return types.NewSchema(1, []types.NamedTableDef{
		{
			Name: "users",
			TableDef: types.TableDef{
				ID: types.ColDef{Name: "id", Type: types.Uuid},
				Columns: []types.ColDef{
					{Name: "name", Type: types.Text},
					{Name: "age", Type: types.Int32},
				},
			},
		},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewClient(Config{Endpoint: srv.URL, Namespace: "ns", Database: "db"}, testSchema(), srv.Client())
	return c, srv
}

func TestWriteBatchPostsOneStatementPerRow(t *testing.T) {
	var gotBody string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ns", r.Header.Get("NS"))
		assert.Equal(t, "db", r.Header.Get("DB"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`[{"status":"OK","result":[]},{"status":"OK","result":[]}]`))
	})
	defer srv.Close()

	age30, err := types.NewInt(30, 32)
	require.NoError(t, err)
	age40, err := types.NewInt(40, 32)
	require.NoError(t, err)
	rows := []types.UniversalRow{
		{ID: types.NewText("a"), Fields: map[string]types.UniversalValue{"name": types.NewText("alice"), "age": age30}},
		{ID: types.NewText("b"), Fields: map[string]types.UniversalValue{"name": types.NewText("bob"), "age": age40}},
	}
	err = c.WriteBatch(context.Background(), "users", rows)
	require.NoError(t, err)
	assert.Contains(t, gotBody, "UPDATE users:a CONTENT")
	assert.Contains(t, gotBody, "UPDATE users:b CONTENT")
}

func TestWriteBatchFailsOnStatementError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"status":"ERR","detail":"boom"}]`))
	})
	defer srv.Close()

	age1, err := types.NewInt(1, 32)
	require.NoError(t, err)
	err = c.WriteBatch(context.Background(), "users", []types.UniversalRow{
		{ID: types.NewText("a"), Fields: map[string]types.UniversalValue{"name": types.NewText("x"), "age": age1}},
	})
	require.Error(t, err)
}

func TestApplyChangeDelete(t *testing.T) {
	var gotBody string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`[{"status":"OK","result":[]}]`))
	})
	defer srv.Close()

	err := c.ApplyChange(context.Background(), types.NewDelete("users", types.NewText("a")))
	require.NoError(t, err)
	assert.Contains(t, gotBody, "DELETE users:a")
}

func TestFindRecordFoundAndMissing(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"status":"OK","result":[{"name":"alice","age":30}]}]`))
	})
	defer srv.Close()

	fields, ok, err := c.FindRecord(context.Background(), "users", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", fields["name"])

	var gotFloat float64
	if v, ok := fields["age"].(float64); ok {
		gotFloat = v
	}
	assert.Equal(t, float64(30), gotFloat)
}

func TestFindRecordMissing(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"status":"OK","result":[]}]`))
	})
	defer srv.Close()

	_, ok, err := c.FindRecord(context.Background(), "users", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
