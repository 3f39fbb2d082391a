// Package verify implements the streaming verifier of spec.md §4.7:
// a seeded row generator plus a field-by-field comparator that checks
// a sink's contents against what the generator produced.
package verify

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// genBaseTime anchors the generator's temporal fields so rows stay
// deterministic across machines and process restarts.
var genBaseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator produces the same sequence of rows for a given (seed,
// table, index) regardless of call order or generation history,
// matching the seed -> row-index determinism contract of
// crates/loadtest-distributed/src/worker.rs: with_start_index can jump
// straight to any index without replaying the rows before it.
type Generator struct {
	seed   uint64
	schema types.Schema
}

// NewGenerator constructs a Generator over schema, seeded by seed.
func NewGenerator(seed uint64, schema types.Schema) *Generator {
	return &Generator{seed: seed, schema: schema}
}

// Row generates the index-th row of table deterministically.
func (g *Generator) Row(table string, index uint64) (types.UniversalRow, error) {
	def, ok := g.schema.Table(table)
	if !ok {
		return types.UniversalRow{}, types.NewError(types.KindSchemaMismatch, errors.Errorf("verify: no schema for table %q", table))
	}

	rng := rand.New(rand.NewSource(rowSeed(g.seed, table, index)))

	id, err := generateValue(rng, def.ID.Type, index, table)
	if err != nil {
		return types.UniversalRow{}, errors.Annotatef(err, "verify: generate id for %q", table)
	}

	fields := make(map[string]types.UniversalValue, len(def.Columns))
	for _, col := range def.Columns {
		v, err := generateValue(rng, col.Type, index, col.Name)
		if err != nil {
			return types.UniversalRow{}, errors.Annotatef(err, "verify: generate field %q", col.Name)
		}
		fields[col.Name] = v
	}

	return types.UniversalRow{Table: table, RowIndex: index, ID: id, Fields: fields}, nil
}

// rowSeed mixes the generator's seed with the table name and row
// index into a single deterministic source, so every row is a pure
// function of its coordinates rather than of generation order.
func rowSeed(seed uint64, table string, index uint64) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(table))
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], index)
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

func generateValue(rng *rand.Rand, ut types.UniversalType, index uint64, name string) (types.UniversalValue, error) {
	switch ut.Tag {
	case types.TagBool:
		return types.NewBool(rng.Intn(2) == 1), nil

	case types.TagInt8:
		return types.NewInt(int64(int8(rng.Intn(256)-128)), 8)
	case types.TagInt16:
		return types.NewInt(int64(int16(rng.Intn(65536)-32768)), 16)
	case types.TagInt32:
		return types.NewInt(int64(rng.Int31()), 32)
	case types.TagInt64:
		return types.NewInt(rng.Int63(), 64)

	case types.TagFloat32:
		return types.NewFloat32(rng.Float32() * 1000), nil
	case types.TagFloat64:
		return types.NewFloat64(rng.Float64() * 1000), nil

	case types.TagDecimal:
		return generateDecimal(rng, ut)

	case types.TagChar:
		n := ut.Length
		if n == 0 {
			n = 8
		}
		return types.NewChar(randomString(rng, int(n)), ut.Length), nil
	case types.TagVarChar:
		s := fmt.Sprintf("%s_%d", name, index)
		if ut.Length > 0 && uint16(len(s)) > ut.Length {
			s = s[:ut.Length]
		}
		return types.NewVarChar(s, ut.Length), nil
	case types.TagText:
		return types.NewText(fmt.Sprintf("%s_%d", name, index)), nil

	case types.TagBlob:
		return types.NewBlob(randomBytes(rng, 16)), nil
	case types.TagBytes:
		return types.NewBytes(randomBytes(rng, 16)), nil

	case types.TagDate:
		return types.NewDate(genBaseTime.AddDate(0, 0, int(index))), nil
	case types.TagTime:
		return types.NewTime(rng.Intn(24), rng.Intn(60), rng.Intn(60), 0), nil
	case types.TagLocalDateTime:
		return types.NewLocalDateTime(genBaseTime.Add(time.Duration(index) * time.Hour)), nil
	case types.TagLocalDateTimeNano:
		return types.NewLocalDateTimeNano(genBaseTime.Add(time.Duration(index)*time.Hour + time.Duration(rng.Intn(1000)))), nil
	case types.TagZonedDateTime:
		return types.NewZonedDateTime(genBaseTime.Add(time.Duration(index) * time.Hour)), nil
	case types.TagTimeTz:
		return types.NewTimeTz(fmt.Sprintf("%02d:%02d:%02d+00", rng.Intn(24), rng.Intn(60), rng.Intn(60))), nil
	case types.TagDuration:
		return types.NewDuration(rng.Int63n(3600), 0), nil

	case types.TagUuid:
		var b [16]byte
		if _, err := rng.Read(b[:]); err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "verify: generate uuid")
		}
		var u uuid.UUID
		copy(u[:], b[:])
		return types.NewUuid(u), nil

	case types.TagUlid:
		ms := uint64(genBaseTime.Add(time.Duration(index) * time.Second).UnixMilli())
		id, err := ulid.New(ms, rng)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "verify: generate ulid")
		}
		return types.NewUlid(id), nil

	case types.TagJson:
		doc, _ := json.Marshal(map[string]interface{}{"index": index, "name": name})
		return types.NewJson(doc), nil
	case types.TagJsonb:
		doc, _ := json.Marshal(map[string]interface{}{"index": index, "name": name})
		return types.NewJsonb(doc), nil

	case types.TagArray:
		n := rng.Intn(3)
		elems := make([]types.UniversalValue, 0, n)
		for i := 0; i < n; i++ {
			ev, err := generateValue(rng, *ut.Elem, index, name)
			if err != nil {
				return types.UniversalValue{}, err
			}
			elems = append(elems, ev)
		}
		elemType := *ut.Elem
		return types.NewArray(elems, elemType, func(types.UniversalValue) types.UniversalType { return elemType })

	case types.TagSet:
		if len(ut.Values) == 0 {
			return types.NewSet(nil, ut.Values)
		}
		k := 1 + rng.Intn(len(ut.Values))
		perm := rng.Perm(len(ut.Values))[:k]
		chosen := make([]string, 0, k)
		for _, i := range perm {
			chosen = append(chosen, ut.Values[i])
		}
		return types.NewSet(chosen, ut.Values)

	case types.TagEnum:
		if len(ut.Values) == 0 {
			return types.UniversalValue{}, errors.New("verify: enum type declares no values")
		}
		return types.NewEnum(ut.Values[rng.Intn(len(ut.Values))], ut.Values)

	case types.TagGeometry:
		gt := ut.GeometryType
		if gt == "" {
			gt = types.GeometryPoint
		}
		lon := rng.Float64()*360 - 180
		lat := rng.Float64()*180 - 90
		doc, _ := json.Marshal(map[string]interface{}{"type": string(gt), "coordinates": []float64{lon, lat}})
		return types.NewGeometry(doc, gt), nil

	default:
		return types.UniversalValue{}, errors.Errorf("verify: generator has no support for type tag %q", ut.Tag)
	}
}

func generateDecimal(rng *rand.Rand, ut types.UniversalType) (types.UniversalValue, error) {
	intPart := rng.Int63n(100000)
	scale := int(ut.Scale)
	if scale == 0 {
		return types.NewDecimal(fmt.Sprintf("%d", intPart), ut.Precision, ut.Scale)
	}
	frac := rng.Int63n(pow10(ut.Scale))
	value := fmt.Sprintf("%d.%0*d", intPart, scale, frac)
	return types.NewDecimal(value, ut.Precision, ut.Scale)
}

func pow10(n uint8) int64 {
	p := int64(1)
	for i := uint8(0); i < n; i++ {
		p *= 10
	}
	return p
}

const stringAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = stringAlphabet[rng.Intn(len(stringAlphabet))]
	}
	return string(b)
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	_, _ = rng.Read(b)
	return b
}
