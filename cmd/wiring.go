package cmd

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/go-sql-driver/mysql" // mysql driver
	"github.com/pingcap/errors"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/surrealdb/surreal-sync-go/internal/cdc"
	"github.com/surrealdb/surreal-sync-go/internal/cdc/audit"
	"github.com/surrealdb/surreal-sync-go/internal/cdc/changestream"
	"github.com/surrealdb/surreal-sync-go/internal/checkpoint"
	"github.com/surrealdb/surreal-sync-go/internal/codec/mysqlaudit"
	"github.com/surrealdb/surreal-sync-go/internal/codec/protobuf"
	"github.com/surrealdb/surreal-sync-go/internal/fullsync"
	"github.com/surrealdb/surreal-sync-go/internal/mq"
	"github.com/surrealdb/surreal-sync-go/internal/schemafile"
	"github.com/surrealdb/surreal-sync-go/internal/sink/surrealdb"
	"github.com/surrealdb/surreal-sync-go/internal/source/filesource"
	"github.com/surrealdb/surreal-sync-go/internal/source/mongosource"
	"github.com/surrealdb/surreal-sync-go/internal/source/sqlsource"
	"github.com/surrealdb/surreal-sync-go/internal/types"
)

const (
	sourceMySQLAudit        = "mysql-audit"
	sourceMongoChangeStream = "mongo-changestream"
	sourceMQ                = "mq"
	sourcePostgresWAL       = "postgres-wal"
	sourceFiles             = "files"
)

func loadSchema(cfg Config) (types.Schema, error) {
	if cfg.SchemaPath == "" {
		return types.Schema{}, errors.New("cmd: schema_path is required")
	}
	return schemafile.Load(cfg.SchemaPath)
}

func openCheckpoints(cfg Config) (*checkpoint.Store, error) {
	return checkpoint.NewStore(cfg.Sync.CheckpointDir)
}

func newSurrealClient(cfg Config, schema types.Schema) *surrealdb.Client {
	return surrealdb.NewClient(surrealdb.Config{
		Endpoint:  cfg.Sink.Endpoint,
		Namespace: cfg.Sink.Namespace,
		Database:  cfg.Sink.Database,
		Username:  cfg.Sink.Username,
		Password:  cfg.Sink.Password,
	}, schema, nil)
}

// fullSyncSource builds the fullsync.Source side for --source kinds
// that support a bulk bootstrap scan. postgres-wal has none - no
// concrete RawFeed exists anywhere in the pack (internal/cdc/wal.go's
// package doc explains why), so full-sync against it fails fast with a
// documented connect error rather than silently skipping the bulk copy.
func fullSyncSource(ctx context.Context, cfg Config, schema types.Schema) (fullsync.Source, func() error, error) {
	switch cfg.Source.Kind {
	case sourceMySQLAudit:
		db, err := sql.Open("mysql", cfg.Source.DSN)
		if err != nil {
			return nil, nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: open mysql"))
		}
		return sqlsource.NewSource(db, schema), db.Close, nil
	case sourceMongoChangeStream:
		client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.Source.DSN))
		if err != nil {
			return nil, nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: connect mongo"))
		}
		db := client.Database(cfg.Source.Database)
		return mongosource.NewSource(db, schema), func() error { return client.Disconnect(ctx) }, nil
	case sourcePostgresWAL:
		return nil, nil, types.NewError(types.KindConnect,
			errors.New("cmd: postgres-wal has no concrete bulk-scan source in this build (no wal2json/pglogrepl client in the dependency set); use mysql-audit or mongo-changestream for full-sync, or supply a RawFeed-backed wal.Adapter programmatically"))
	case sourceFiles:
		src, err := filesSource(ctx, cfg, schema)
		if err != nil {
			return nil, nil, err
		}
		return src, func() error { return nil }, nil
	default:
		return nil, nil, errors.Errorf("cmd: unknown --source %q", cfg.Source.Kind)
	}
}

// filesSource builds the CSV/JSONL file source (spec.md §6's file
// source resolver contract), constructing an S3 client only if at
// least one table spec actually names an s3:// URL.
func filesSource(ctx context.Context, cfg Config, schema types.Schema) (*filesource.Source, error) {
	var s3Client *s3.Client
	needsS3 := false
	for _, spec := range cfg.Source.Files.Tables {
		if strings.HasPrefix(spec, "s3://") {
			needsS3 = true
			break
		}
	}
	if needsS3 {
		client, err := filesource.NewS3Client(ctx, filesource.S3Config{
			Endpoint:     cfg.Source.Files.S3.Endpoint,
			Region:       cfg.Source.Files.S3.Region,
			AccessKey:    cfg.Source.Files.S3.AccessKey,
			SecretKey:    cfg.Source.Files.S3.SecretKey,
			UsePathStyle: cfg.Source.Files.S3.UsePathStyle,
		})
		if err != nil {
			return nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: build s3 client"))
		}
		s3Client = client
	}
	return filesource.NewSource(schema, cfg.Source.Files.Tables, nil, s3Client), nil
}

// bootstrapper builds the CDC bootstrap+cursor-snapshot side of a
// full-sync run for sources whose adapter also implements
// fullsync.Bootstrapper (audit, changestream). mq tracks its own
// partition offsets and has nothing to bootstrap in this sense.
func bootstrapper(ctx context.Context, cfg Config, schema types.Schema) (fullsync.Bootstrapper, error) {
	switch cfg.Source.Kind {
	case sourceMySQLAudit:
		db, err := sql.Open("mysql", cfg.Source.DSN)
		if err != nil {
			return nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: open mysql"))
		}
		return audit.New(db, schema, cfg.Source.Database, mysqlaudit.Options{
			BooleanJSONPaths: boolPathSet(cfg.Source.MySQLAudit.BooleanJSONPaths),
		}), nil
	case sourceMongoChangeStream:
		client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.Source.DSN))
		if err != nil {
			return nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: connect mongo"))
		}
		db := client.Database(cfg.Source.Database)
		probe, err := changestream.New(db, schema, cfg.Source.Database, types.NewChangeStreamCursor(nil, time.Now()))
		if err != nil {
			return nil, err
		}
		return probe, nil
	default:
		return nil, errors.Errorf("cmd: %q has no CDC bootstrap path", cfg.Source.Kind)
	}
}

func boolPathSet(paths []string) map[string]bool {
	m := make(map[string]bool, len(paths))
	for _, p := range paths {
		m[p] = true
	}
	return m
}

// cdcAdapter builds the incremental-replay side for --source kinds
// with a concrete cdc.Adapter. from is the already-parsed starting
// cursor (spec.md §6 `--from`).
func cdcAdapter(ctx context.Context, cfg Config, schema types.Schema, from types.Cursor) (cdc.Adapter, func() error, error) {
	switch cfg.Source.Kind {
	case sourceMySQLAudit:
		db, err := sql.Open("mysql", cfg.Source.DSN)
		if err != nil {
			return nil, nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: open mysql"))
		}
		a := audit.New(db, schema, cfg.Source.Database, mysqlaudit.Options{
			BooleanJSONPaths: boolPathSet(cfg.Source.MySQLAudit.BooleanJSONPaths),
		})
		return a, db.Close, nil
	case sourceMongoChangeStream:
		client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.Source.DSN))
		if err != nil {
			return nil, nil, types.NewError(types.KindConnect, errors.Annotate(err, "cmd: connect mongo"))
		}
		db := client.Database(cfg.Source.Database)
		a, err := changestream.New(db, schema, cfg.Source.Database, from)
		if err != nil {
			return nil, nil, err
		}
		return a, func() error { return client.Disconnect(ctx) }, nil
	case sourcePostgresWAL:
		return nil, nil, types.NewError(types.KindConnect,
			errors.New("cmd: postgres-wal has no concrete RawFeed in this build (no wal2json/pglogrepl client in the dependency set)"))
	default:
		return nil, nil, errors.Errorf("cmd: unknown --source %q", cfg.Source.Kind)
	}
}

// mqSource builds the standalone message-queue reader - it is not a
// cdc.Adapter (internal/mq's package doc explains why a Kafka
// partition+offset position isn't a fourth types.Cursor variant).
func mqSource(cfg Config, schema types.Schema) (*mq.Source, error) {
	descriptor, err := os.ReadFile(cfg.Source.MQ.ProtoDescriptorPath)
	if err != nil {
		return nil, errors.Annotate(err, "cmd: read proto descriptor set")
	}
	protoSchema, err := protobuf.LoadFileDescriptorSet(descriptor)
	if err != nil {
		return nil, err
	}
	tables := make(map[string]mq.TableMapping, len(cfg.Source.MQ.Tables))
	for name, t := range cfg.Source.MQ.Tables {
		tables[name] = mq.TableMapping{MessageName: t.MessageName, IDField: t.IDField}
	}
	return mq.NewSource(mq.Config{
		Brokers: cfg.Source.MQ.Brokers,
		Topic:   cfg.Source.MQ.Topic,
		Schema:  schema,
		Proto:   protoSchema,
		Tables:  tables,
	})
}
