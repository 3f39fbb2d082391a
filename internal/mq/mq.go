// Package mq implements the message-queue source of SPEC_FULL.md's
// domain-stack table: a Kafka topic carrying internal/wire-framed
// messages, each wrapping either a resolved-timestamp marker or one
// row change whose field values are protobuf-encoded per
// internal/codec/protobuf's ProtoSchema.
//
// Position in the topic is Kafka's own partition+offset, not one of
// the three types.Cursor variants (spec.md §3.5 closes that sum to
// relational-WAL, relational-audit, and document-store cursors) - a
// message queue is a fourth transport, not a fourth cursor kind, so
// Source tracks offsets itself and never constructs a types.Cursor.
package mq

import (
	"context"

	"github.com/Shopify/sarama"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/codec/protobuf"
	"github.com/surrealdb/surreal-sync-go/internal/types"
	"github.com/surrealdb/surreal-sync-go/internal/wire"
)

// TableMapping tells Source which proto message decodes a table's row
// payload and which decoded field is the row ID.
type TableMapping struct {
	MessageName string
	IDField     string
}

// Config configures a Source.
type Config struct {
	Brokers  []string
	Topic    string
	Schema   types.Schema
	Proto    *protobuf.ProtoSchema
	Tables   map[string]TableMapping
	Offset   int64 // sarama.OffsetOldest or sarama.OffsetNewest
	Partition int32
}

// Source reads framed, protobuf-encoded row changes off a single
// Kafka partition.
type Source struct {
	cfg      Config
	consumer sarama.Consumer
	part     sarama.PartitionConsumer

	lastResolvedTs int64
}

// NewSource dials brokers and opens a consumer for cfg.Partition of
// cfg.Topic, starting at cfg.Offset.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Proto == nil {
		return nil, errors.New("mq: Config.Proto is required")
	}
	scfg := sarama.NewConfig()
	scfg.Consumer.Return.Errors = true

	client, err := sarama.NewConsumer(cfg.Brokers, scfg)
	if err != nil {
		return nil, types.NewError(types.KindConnect, errors.Annotate(err, "mq: connect to brokers"))
	}
	offset := cfg.Offset
	if offset == 0 {
		offset = sarama.OffsetOldest
	}
	part, err := client.ConsumePartition(cfg.Topic, cfg.Partition, offset)
	if err != nil {
		_ = client.Close()
		return nil, types.NewError(types.KindConnect, errors.Annotatef(err, "mq: consume partition %d of %q", cfg.Partition, cfg.Topic))
	}

	return &Source{cfg: cfg, consumer: client, part: part}, nil
}

// Next blocks until the next row change is available, skipping
// resolved-timestamp markers (tracked for LastResolvedTs but not
// themselves returned), or returns ctx's error.
func (s *Source) Next(ctx context.Context) (types.Change, error) {
	for {
		select {
		case <-ctx.Done():
			return types.Change{}, ctx.Err()
		case err := <-s.part.Errors():
			return types.Change{}, types.NewError(types.KindTransient, errors.Annotate(err, "mq: consume"))
		case msg, ok := <-s.part.Messages():
			if !ok {
				return types.Change{}, errors.New("mq: partition consumer closed")
			}
			change, handled, err := s.decode(msg)
			if err != nil {
				return types.Change{}, err
			}
			if handled {
				return change, nil
			}
			// resolved-timestamp marker, keep polling
		}
	}
}

// LastResolvedTs returns the most recently observed resolved
// timestamp, or 0 if none has been seen yet.
func (s *Source) LastResolvedTs() int64 { return s.lastResolvedTs }

func (s *Source) decode(msg *sarama.ConsumerMessage) (types.Change, bool, error) {
	m, err := wire.Decode(msg.Value)
	if err != nil {
		return types.Change{}, false, types.NewError(types.KindDecode, errors.Annotate(err, "mq: decode frame"))
	}

	if m.MsgType == wire.ResolvedMsg {
		s.lastResolvedTs = m.ResolvedTs
		return types.Change{}, false, nil
	}

	mapping, ok := s.cfg.Tables[m.Table]
	if !ok {
		return types.Change{}, false, types.NewError(types.KindSchemaMismatch, errors.Errorf("mq: no proto mapping configured for table %q", m.Table))
	}
	md, err := s.cfg.Proto.Message(mapping.MessageName)
	if err != nil {
		return types.Change{}, false, err
	}
	row, err := protobuf.DecodeMessage(m.Payload, md)
	if err != nil {
		return types.Change{}, false, types.NewError(types.KindDecode, errors.Annotatef(err, "mq: decode payload for %q", m.Table))
	}

	idField := mapping.IDField
	if idField == "" {
		idField = "id"
	}
	idValue, ok := row.Object[idField]
	if !ok {
		return types.Change{}, false, types.NewError(types.KindSchemaMismatch, errors.Errorf("mq: row for %q has no %q field", m.Table, idField))
	}

	op, err := m.Op.ChangeOp()
	if err != nil {
		return types.Change{}, false, err
	}

	switch op {
	case types.OpDelete:
		return types.NewDelete(m.Table, idValue), true, nil
	case types.OpCreate:
		return types.NewCreate(m.Table, idValue, row.Object), true, nil
	default:
		return types.NewUpdate(m.Table, idValue, row.Object), true, nil
	}
}

// Close releases the partition consumer and the underlying client.
func (s *Source) Close() error {
	perr := s.part.Close()
	cerr := s.consumer.Close()
	if perr != nil {
		return errors.Annotate(perr, "mq: close partition consumer")
	}
	if cerr != nil {
		return errors.Annotate(cerr, "mq: close consumer")
	}
	log.Debug("mq: source closed", zap.String("topic", s.cfg.Topic))
	return nil
}
