// Package mongosource implements fullsync.Source over a MongoDB
// database: one `Find` cursor per collection, decoded field by field
// against the already-loaded schema via internal/codec/mongo.
package mongosource

import (
	"context"
	"sort"

	"github.com/pingcap/errors"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	mongocodec "github.com/surrealdb/surreal-sync-go/internal/codec/mongo"
	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Source streams every collection the schema declares, name-sorted
// for the same reproducibility reason as sqlsource.Source.
type Source struct {
	db     *mongodriver.Database
	schema types.Schema
}

// NewSource constructs a Source reading collections of db, decoding
// documents against schema's declared types.
func NewSource(db *mongodriver.Database, schema types.Schema) *Source {
	return &Source{db: db, schema: schema}
}

// Tables returns every collection name the schema file declared.
func (s *Source) Tables(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.schema.Tables))
	for name := range s.schema.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// OpenCursor opens a `Find` cursor over the named collection.
func (s *Source) OpenCursor(ctx context.Context, table string) (RowCursor, error) {
	def, ok := s.schema.Table(table)
	if !ok {
		return nil, types.NewError(types.KindSchemaMismatch, errors.Errorf("mongosource: no schema for table %q", table))
	}
	cur, err := s.db.Collection(table).Find(ctx, bson.D{})
	if err != nil {
		return nil, types.NewError(types.KindConnect, errors.Annotatef(err, "mongosource: find %q", table))
	}
	return &mongoRowCursor{cur: cur, table: table, def: def}, nil
}

// RowCursor matches fullsync.RowCursor's shape, mirroring
// sqlsource.RowCursor's reasoning for not importing internal/fullsync
// directly.
type RowCursor interface {
	Next(ctx context.Context) (row types.UniversalRow, ok bool, err error)
	Close() error
}

type mongoRowCursor struct {
	cur   *mongodriver.Cursor
	table string
	def   types.TableDef
	index uint64
}

func (c *mongoRowCursor) Next(ctx context.Context) (types.UniversalRow, bool, error) {
	if !c.cur.Next(ctx) {
		if err := c.cur.Err(); err != nil {
			return types.UniversalRow{}, false, types.NewError(types.KindDecode, errors.Annotatef(err, "mongosource: iterate %q", c.table))
		}
		return types.UniversalRow{}, false, nil
	}

	var doc bson.M
	if err := c.cur.Decode(&doc); err != nil {
		return types.UniversalRow{}, false, types.NewError(types.KindDecode, errors.Annotatef(err, "mongosource: decode document in %q", c.table))
	}

	row := types.UniversalRow{Table: c.table, RowIndex: c.index, Fields: make(map[string]types.UniversalValue, len(doc))}
	for name, native := range doc {
		ut, ok := c.def.ColumnType(name)
		if !ok {
			continue // undeclared field, spec.md §3.4 schemas describe only the columns a sync run cares about
		}
		v, err := mongocodec.Decode(native, ut)
		if err != nil {
			return types.UniversalRow{}, false, types.NewError(types.KindDecode, errors.Annotatef(err, "mongosource: decode %q.%q", c.table, name))
		}
		if name == c.def.ID.Name {
			row.ID = v
		} else {
			row.Fields[name] = v
		}
	}
	c.index++
	return row, true, nil
}

func (c *mongoRowCursor) Close() error {
	return c.cur.Close(context.Background())
}
