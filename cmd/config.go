package cmd

import (
	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// Config is the CLI's sync configuration file (spec.md §6's "Config
// loader" collaborator, given a concrete shape): source/sink
// connection info, credentials, batch size, schema path, dry-run, and
// per-CDC slot/table names.
type Config struct {
	SchemaPath string `toml:"schema_path"`

	Source SourceConfig `toml:"source"`
	Sink   SinkConfig   `toml:"sink"`
	Sync   SyncSettings `toml:"sync"`
}

// SourceConfig addresses one of the five source kinds. Only the
// fields relevant to Kind need be set; the rest are ignored.
type SourceConfig struct {
	Kind     string `toml:"kind"` // "mysql-audit" | "mongo-changestream" | "mq" | "postgres-wal" | "files"
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`

	MySQLAudit MySQLAuditConfig `toml:"mysql_audit"`
	MQ         MQConfig         `toml:"mq"`
	Files      FilesConfig      `toml:"files"`
}

// FilesConfig configures internal/source/filesource. Tables maps table
// name to a file spec: a local path, an "s3://bucket/key" URL, or an
// "http(s)://" URL, any of which may name a directory/prefix to
// expand (spec.md §6's file source resolver contract).
type FilesConfig struct {
	Tables map[string]string `toml:"tables"`
	S3     FilesS3Config     `toml:"s3"`
}

// FilesS3Config configures the S3 client backing any "s3://" table
// spec; left zero-valued when no table spec uses S3.
type FilesS3Config struct {
	Endpoint     string `toml:"endpoint"`
	Region       string `toml:"region"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// MySQLAuditConfig configures internal/cdc/audit's decode options.
type MySQLAuditConfig struct {
	BooleanJSONPaths []string `toml:"boolean_json_paths"`
}

// MQConfig configures internal/mq.Source.
type MQConfig struct {
	Brokers             []string           `toml:"brokers"`
	Topic               string             `toml:"topic"`
	ProtoDescriptorPath string             `toml:"proto_descriptor_path"`
	Tables              map[string]MQTable `toml:"tables"`
}

// MQTable maps a table name to its protobuf message mapping.
type MQTable struct {
	MessageName string `toml:"message_name"`
	IDField     string `toml:"id_field"`
}

// SinkConfig addresses the SurrealDB sink.
type SinkConfig struct {
	Endpoint  string `toml:"endpoint"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// SyncSettings configures batching, dry-run accounting, and where
// checkpoints are persisted.
type SyncSettings struct {
	BatchSize     int    `toml:"batch_size"`
	DryRun        bool   `toml:"dry_run"`
	CheckpointDir string `toml:"checkpoint_dir"`
}

// LoadConfig reads and parses the TOML sync config at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Annotatef(err, "cmd: load config %q", path)
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = 1000
	}
	if cfg.Sync.CheckpointDir == "" {
		cfg.Sync.CheckpointDir = "./checkpoints"
	}
	return cfg, nil
}
