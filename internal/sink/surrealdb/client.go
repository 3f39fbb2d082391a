// Package surrealdb is the one network-attached sink this repo ships:
// a thin client over SurrealDB's HTTP `/sql` endpoint, driving the
// value shaping done by internal/sink/surreal.
package surrealdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/sink/surreal"
	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Config addresses and authenticates against one SurrealDB instance.
type Config struct {
	Endpoint  string // e.g. "http://127.0.0.1:8000"
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Client drives SurrealDB's `/sql` HTTP endpoint: every call is one
// POST of one or more semicolon-joined SurrealQL statements, the
// response a JSON array with one result entry per statement. Encoding
// is schema-driven (schema.Table(table).ColumnType(name)) rather than
// inferred from the already-constructed UniversalValue, since the
// declared width (Int32 vs Int64, Char(n) vs VarChar(n), ...) isn't
// always recoverable from the value alone.
type Client struct {
	cfg    Config
	schema types.Schema
	http   *http.Client
}

// NewClient constructs a Client. No connection is opened eagerly;
// the first Query call is also the first liveness check, matching
// fullsync.Sink/verify.Querier's lazily-connected contract.
func NewClient(cfg Config, schema types.Schema, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, schema: schema, http: httpClient}
}

type statementResult struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Detail string          `json:"detail"`
}

// Query posts sql as the request body and returns one result per
// semicolon-delimited statement SurrealDB reports back.
func (c *Client) Query(ctx context.Context, sql string) ([]statementResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.Endpoint, "/")+"/sql", bytes.NewBufferString(sql))
	if err != nil {
		return nil, errors.Annotate(err, "surrealdb: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("NS", c.cfg.Namespace)
	req.Header.Set("DB", c.cfg.Database)
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewError(types.KindConnect, errors.Annotate(err, "surrealdb: do request"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.KindConnect, errors.Annotate(err, "surrealdb: read response"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.KindConnect, errors.Errorf("surrealdb: %s: %s", resp.Status, body))
	}

	var results []statementResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, types.NewError(types.KindDecode, errors.Annotate(err, "surrealdb: decode response"))
	}
	for _, r := range results {
		if r.Status != "OK" {
			return nil, types.NewError(types.KindEncode, errors.Errorf("surrealdb: statement failed: %s", r.Detail))
		}
	}
	return results, nil
}

// WriteBatch implements fullsync.Sink: one `UPDATE thing CONTENT {...}`
// statement per row, flushed as a single `/sql` request so SurrealDB
// runs the whole batch as one transaction (spec.md §4.4 step 3,
// "flush each full batch ... as an atomic multi-upsert").
func (c *Client) WriteBatch(ctx context.Context, table string, rows []types.UniversalRow) error {
	if len(rows) == 0 {
		return nil
	}

	def, ok := c.schema.Table(table)
	if !ok {
		return types.NewError(types.KindSchemaMismatch, errors.Errorf("surrealdb: no schema for table %q", table))
	}

	var sb strings.Builder
	for _, row := range rows {
		stmt, err := c.upsertStatement(table, def, row.ID, row.Fields)
		if err != nil {
			return errors.Annotatef(err, "surrealdb: build statement for %s", table)
		}
		sb.WriteString(stmt)
		sb.WriteString(";\n")
	}

	if _, err := c.Query(ctx, sb.String()); err != nil {
		return errors.Annotatef(err, "surrealdb: write batch of %d rows to %q", len(rows), table)
	}
	log.Debug("surrealdb: wrote batch", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

// ApplyChange implements replay.Sink: one row change applied as one
// `/sql` request, dispatching on change.Op.
func (c *Client) ApplyChange(ctx context.Context, change types.Change) error {
	if !change.IsRowChange() {
		return nil
	}

	def, ok := c.schema.Table(change.Table)
	if !ok {
		return types.NewError(types.KindSchemaMismatch, errors.Errorf("surrealdb: no schema for table %q", change.Table))
	}

	var stmt string
	var err error
	switch change.Op {
	case types.OpDelete:
		thing, terr := surreal.EncodeThing(change.Table, change.ID, def.ID.Type)
		if terr != nil {
			return errors.Annotate(terr, "surrealdb: encode id for delete")
		}
		stmt = fmt.Sprintf("DELETE %s", thing.String())
	default:
		stmt, err = c.upsertStatement(change.Table, def, change.ID, change.Fields)
		if err != nil {
			return errors.Annotate(err, "surrealdb: build statement for change")
		}
	}

	if _, err := c.Query(ctx, stmt+";"); err != nil {
		return errors.Annotatef(err, "surrealdb: apply %s to %s:%v", change.Op, change.Table, change.ID)
	}
	return nil
}

// FindRecord implements verify.Querier: a `SELECT * FROM table:id`
// whose JSON result, decoded straight into map[string]interface{},
// is exactly the native-value shape internal/verify.Compare expects.
func (c *Client) FindRecord(ctx context.Context, table string, id interface{}) (map[string]interface{}, bool, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s:%s", table, renderIDLiteral(id))
	results, err := c.Query(ctx, stmt)
	if err != nil {
		return nil, false, errors.Annotatef(err, "surrealdb: find %s:%v", table, id)
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(results[0].Result, &rows); err != nil {
		return nil, false, types.NewError(types.KindDecode, errors.Annotate(err, "surrealdb: decode find result"))
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (c *Client) upsertStatement(table string, def types.TableDef, id types.UniversalValue, fields map[string]types.UniversalValue) (string, error) {
	content := make(map[string]interface{}, len(fields))
	for name, v := range fields {
		ut, ok := def.ColumnType(name)
		if !ok {
			return "", errors.Errorf("surrealdb: column %q not in schema for %q", name, table)
		}
		native, err := surreal.Encode(v, ut)
		if err != nil {
			return "", errors.Annotatef(err, "encode field %q", name)
		}
		content[name] = native
	}
	body, err := json.Marshal(content)
	if err != nil {
		return "", errors.Annotate(err, "marshal content")
	}
	thing, err := surreal.EncodeThing(table, id, def.ID.Type)
	if err != nil {
		return "", errors.Annotate(err, "encode thing")
	}
	return fmt.Sprintf("UPDATE %s CONTENT %s", thing.String(), body), nil
}

func renderIDLiteral(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
