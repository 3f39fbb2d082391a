// Package changestream implements the document-store CDC adapter of
// spec.md §4.5.3: a MongoDB change stream, resumed by the token
// embedded in each event's own _id.
package changestream

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/cdc"
	mongocodec "github.com/surrealdb/surreal-sync-go/internal/codec/mongo"
	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Adapter is the change-stream CDC adapter (spec.md §4.5.3).
type Adapter struct {
	db       *mongodriver.Database
	schema   types.Schema
	database string
	cursor   *cdc.CursorBox
}

// New constructs a change-stream adapter seeded with initial, which
// must already be a CursorChangeStream cursor - a cursor of the wrong
// variant is a fatal configuration error (spec.md §4.5.3 "corrupt/
// wrong-kind tokens are fatal"), not something to silently reinterpret
// as "start from now".
func New(db *mongodriver.Database, schema types.Schema, database string, initial types.Cursor) (*Adapter, error) {
	if initial.Kind != types.CursorChangeStream {
		return nil, types.NewError(types.KindCursorCorrupt,
			errors.Errorf("changestream: expected a change_stream cursor, got %q", initial.Kind))
	}
	return &Adapter{db: db, schema: schema, database: database, cursor: cdc.NewCursorBox(initial)}, nil
}

// Bootstrap opens a probe stream (spec.md §4.4 step 2: "open a probe
// stream to obtain the initial resume token") and immediately closes
// it again without consuming any event.
func (a *Adapter) Bootstrap(ctx context.Context) error {
	cs, err := a.db.Watch(ctx, mongodriver.Pipeline{})
	if err != nil {
		return errors.Annotate(err, "changestream: probe watch")
	}
	defer cs.Close(ctx)
	a.cursor.Set(types.NewChangeStreamCursor([]byte(cs.ResumeToken()), time.Now()))
	return nil
}

// CurrentCursor returns the adapter's resume position, as last set by
// Bootstrap or by a consumed event.
func (a *Adapter) CurrentCursor(ctx context.Context) (types.Cursor, error) {
	return a.cursor.Get(), nil
}

// Init validates the database is reachable.
func (a *Adapter) Init(ctx context.Context) error {
	return a.db.Client().Ping(ctx, nil)
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	Ns            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey  bson.Raw `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument,omitempty"`
}

// Changes opens a change stream resumed from the adapter's cursor and
// streams decoded changes, persisting the resume token from each
// event's own _id after every event (spec.md §4.5.3). Unsupported
// operation kinds (invalidate, drop, rename, ...) are skipped with a
// warning rather than treated as an error.
func (a *Adapter) Changes(ctx context.Context) (<-chan cdc.Positioned, <-chan error) {
	out := make(chan cdc.Positioned)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		if tok := a.cursor.Get().ResumeToken; len(tok) > 0 {
			opts = opts.SetResumeAfter(bson.Raw(tok))
		}

		cs, err := a.db.Watch(ctx, mongodriver.Pipeline{}, opts)
		if err != nil {
			errc <- errors.Annotate(err, "changestream: watch")
			return
		}
		defer cs.Close(context.Background())

		for cs.Next(ctx) {
			var event changeEvent
			if err := cs.Decode(&event); err != nil {
				errc <- types.NewError(types.KindDecode, errors.Annotate(err, "changestream: decode event"))
				return
			}

			change, skip, err := a.decodeEvent(event)
			if err != nil {
				errc <- types.NewError(types.KindDecode, err)
				return
			}

			a.cursor.Set(types.NewChangeStreamCursor([]byte(cs.ResumeToken()), time.Now()))

			if skip {
				log.Warn("changestream: skipping unsupported operation",
					zap.String("operationType", event.OperationType))
				continue
			}

			select {
			case out <- cdc.Positioned{Change: change, Cursor: a.cursor.Get()}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := cs.Err(); err != nil {
			errc <- types.NewError(types.KindTransient, err)
			return
		}
		if err := ctx.Err(); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

// decodeEvent converts one change-stream event to a Change. skip is
// true for operation kinds the adapter does not translate
// (invalidate/drop/rename/...), in which case change is the zero
// value and must not be emitted.
func (a *Adapter) decodeEvent(event changeEvent) (change types.Change, skip bool, err error) {
	var op types.ChangeOp
	switch event.OperationType {
	case "insert":
		op = types.OpCreate
	case "update", "replace":
		op = types.OpUpdate
	case "delete":
		op = types.OpDelete
	default:
		return types.Change{}, true, nil
	}

	table := event.Ns.Coll
	def, ok := a.schema.Table(table)
	if !ok {
		return types.Change{}, false, errors.Errorf("changestream: no schema for collection %q", table)
	}

	var keyDoc primitive.D
	if err := bson.Unmarshal(event.DocumentKey, &keyDoc); err != nil {
		return types.Change{}, false, errors.Annotate(err, "changestream: decode documentKey")
	}
	idNative, ok := keyDoc.Map()["_id"]
	if !ok {
		return types.Change{}, false, errors.New("changestream: documentKey has no _id")
	}
	id, err := mongocodec.Decode(idNative, def.ID.Type)
	if err != nil {
		return types.Change{}, false, errors.Annotate(err, "changestream: decode _id")
	}

	if op == types.OpDelete {
		return types.NewDelete(table, id), false, nil
	}

	var doc primitive.D
	if err := bson.Unmarshal(event.FullDocument, &doc); err != nil {
		return types.Change{}, false, errors.Annotate(err, "changestream: decode fullDocument")
	}
	fields := make(map[string]types.UniversalValue, len(doc))
	for name, native := range doc.Map() {
		ut, ok := def.ColumnType(name)
		if !ok {
			continue
		}
		v, err := mongocodec.Decode(native, ut)
		if err != nil {
			return types.Change{}, false, errors.Annotatef(err, "changestream: field %q", name)
		}
		fields[name] = v
	}

	if op == types.OpCreate {
		return types.NewCreate(table, id, fields), false, nil
	}
	return types.NewUpdate(table, id, fields), false, nil
}

// GetCursor returns the adapter's current resume position.
func (a *Adapter) GetCursor() types.Cursor { return a.cursor.Get() }

// Cleanup has nothing to release: change streams hold no server-side
// state analogous to a replication slot or a trigger set.
func (a *Adapter) Cleanup(ctx context.Context) error {
	return nil
}
