// Package mongo implements the MongoDB document-store decoder of
// spec.md §4.2.2: a BSON value (as produced by the mongo-driver's
// generic primitive decoding) paired with its declared UniversalType
// decodes into a UniversalValue.
package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Decode converts a BSON value, decoded against ut, to a
// UniversalValue. native is whatever the mongo-driver's generic bson
// unmarshal produces: primitive.D/primitive.A for documents/arrays,
// primitive.Binary/ObjectID/Decimal128/DateTime/Timestamp/Regex and the
// Go scalar types for everything else.
func Decode(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	if native == nil {
		return types.Null(ut), nil
	}
	if _, ok := native.(primitive.Undefined); ok {
		return types.Null(ut), nil
	}

	switch ut.Tag {
	case types.TagBool:
		b, ok := native.(bool)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected bool, got %T", native)
		}
		return types.NewBool(b), nil

	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		width := map[types.Tag]int{
			types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
		}[ut.Tag]
		var v int64
		switch n := native.(type) {
		case int32:
			v = int64(n)
		case int64:
			v = n
		default:
			return types.UniversalValue{}, errors.Errorf("mongo: expected int, got %T", native)
		}
		return types.NewInt(v, width)

	case types.TagFloat32:
		f, ok := native.(float64)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected double, got %T", native)
		}
		return types.NewFloat32(float32(f)), nil

	case types.TagFloat64:
		f, ok := native.(float64)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected double, got %T", native)
		}
		return types.NewFloat64(f), nil

	case types.TagDecimal:
		return decodeDecimal(native, ut)

	case types.TagText:
		return decodeObjectIDOrText(native, func(s string) types.UniversalValue { return types.NewText(s) })

	case types.TagChar:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected string, got %T", native)
		}
		return types.NewChar(s, ut.Length), nil

	case types.TagVarChar:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected string, got %T", native)
		}
		return types.NewVarChar(s, ut.Length), nil

	case types.TagBytes, types.TagBlob:
		return decodeBinaryBytes(native, ut)

	case types.TagUuid:
		return decodeUUID(native)

	case types.TagDate:
		t, err := asTimeOf(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewDate(t), nil

	case types.TagLocalDateTime:
		t, err := asTimeOf(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewLocalDateTime(t), nil

	case types.TagLocalDateTimeNano:
		t, err := asTimeOf(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewLocalDateTimeNano(t), nil

	case types.TagZonedDateTime:
		return decodeZonedDateTime(native)

	case types.TagJson, types.TagJsonb:
		return decodeJSON(native, ut)

	case types.TagArray:
		return decodeArray(native, ut)

	case types.TagSet:
		return decodeSet(native, ut)

	case types.TagEnum:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected string for enum, got %T", native)
		}
		return types.NewEnum(s, ut.Values)

	case types.TagGeometry:
		return decodeGeometry(native, ut)

	case types.TagThing:
		return decodeDBRef(native)

	default:
		return types.UniversalValue{}, errors.Errorf("mongo: unsupported target type %v", ut.Tag)
	}
}

func decodeObjectIDOrText(native interface{}, wrap func(string) types.UniversalValue) (types.UniversalValue, error) {
	switch n := native.(type) {
	case string:
		return wrap(n), nil
	case primitive.ObjectID:
		return wrap(n.Hex()), nil
	case primitive.Regex:
		return wrap(fmt.Sprintf("(?%s)%s", n.Options, n.Pattern)), nil
	case primitive.JavaScript:
		return wrap(string(n)), nil
	case primitive.Symbol:
		return wrap(string(n)), nil
	default:
		return types.UniversalValue{}, errors.Errorf("mongo: expected string, ObjectID, regex, JavaScript or symbol, got %T", native)
	}
}

// decodeDecimal handles Decimal128 and the pre-rendered string form
// (spec.md §4.2.2: "Decimal128 → Decimal{..., precision: 38, scale: 10}
// unless the schema specifies different").
func decodeDecimal(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	precision, scale := ut.Precision, ut.Scale
	if precision == 0 {
		precision, scale = 38, 10
	}
	switch n := native.(type) {
	case primitive.Decimal128:
		return types.NewDecimal(n.String(), precision, scale)
	case string:
		return types.NewDecimal(n, precision, scale)
	default:
		return types.UniversalValue{}, errors.Errorf("mongo: expected Decimal128, got %T", native)
	}
}

// decodeBinaryBytes handles primitive.Binary, dispatching UUID-subtype
// binaries elsewhere when the declared type is Uuid; here it's reached
// only for Bytes/Blob targets.
func decodeBinaryBytes(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	bin, ok := native.(primitive.Binary)
	if !ok {
		return types.UniversalValue{}, errors.Errorf("mongo: expected Binary, got %T", native)
	}
	if ut.Tag == types.TagBlob {
		return types.NewBlob(bin.Data), nil
	}
	return types.NewBytes(bin.Data), nil
}

// decodeUUID handles a Binary with UUID subtype and a pre-rendered
// string form of the UUID.
func decodeUUID(native interface{}) (types.UniversalValue, error) {
	switch n := native.(type) {
	case primitive.Binary:
		if n.Subtype != 0x03 && n.Subtype != 0x04 {
			return types.UniversalValue{}, errors.Errorf("mongo: binary subtype %d is not UUID", n.Subtype)
		}
		u, err := uuid.FromBytes(n.Data)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "mongo: decode uuid binary")
		}
		return types.NewUuid(u), nil
	case string:
		u, err := uuid.Parse(n)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "mongo: parse uuid string")
		}
		return types.NewUuid(u), nil
	default:
		return types.UniversalValue{}, errors.Errorf("mongo: expected uuid binary or string, got %T", native)
	}
}

func asTimeOf(native interface{}) (time.Time, error) {
	dt, ok := native.(primitive.DateTime)
	if !ok {
		return time.Time{}, errors.Errorf("mongo: expected DateTime, got %T", native)
	}
	return dt.Time(), nil
}

// decodeZonedDateTime handles BSON DateTime and Timestamp. A
// Timestamp's `increment` component is preserved as nanoseconds to
// keep ordering across events within the same second (spec.md §4.2.2).
func decodeZonedDateTime(native interface{}) (types.UniversalValue, error) {
	switch n := native.(type) {
	case primitive.DateTime:
		return types.NewZonedDateTime(n.Time()), nil
	case primitive.Timestamp:
		t := time.Unix(int64(n.T), int64(n.I)).UTC()
		return types.NewZonedDateTime(t), nil
	default:
		return types.UniversalValue{}, errors.Errorf("mongo: expected DateTime or Timestamp, got %T", native)
	}
}

func decodeJSON(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	var doc interface{}
	switch n := native.(type) {
	case primitive.D:
		doc = n.Map()
	case primitive.M:
		doc = n
	case primitive.MinKey:
		doc = map[string]interface{}{"$minKey": 1}
	case primitive.MaxKey:
		doc = map[string]interface{}{"$maxKey": 1}
	case primitive.CodeWithScope:
		doc = map[string]interface{}{"$code": n.Code, "$scope": n.Scope}
	default:
		doc = n
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return types.UniversalValue{}, errors.Annotate(err, "mongo: marshal document to json")
	}
	if ut.Tag == types.TagJsonb {
		return types.NewJsonb(b), nil
	}
	return types.NewJson(b), nil
}

func decodeArray(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	arr, ok := native.(primitive.A)
	if !ok {
		return types.UniversalValue{}, errors.Errorf("mongo: expected array, got %T", native)
	}
	elemType := *ut.Elem
	vals := make([]types.UniversalValue, 0, len(arr))
	for _, e := range arr {
		v, err := Decode(e, elemType)
		if err != nil {
			return types.UniversalValue{}, err
		}
		vals = append(vals, v)
	}
	return types.NewArray(vals, elemType, nil)
}

// decodeSet handles a Set stored as a BSON array of strings (spec.md
// §4.2.2 carries no explicit Set rule; grounded on the MySQL SET
// mapping reused here for any source that stores a set as an array).
func decodeSet(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	arr, ok := native.(primitive.A)
	if !ok {
		return types.UniversalValue{}, errors.Errorf("mongo: expected array for set, got %T", native)
	}
	elems := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: set element %T is not a string", e)
		}
		elems = append(elems, s)
	}
	return types.NewSet(elems, ut.Values)
}

func decodeGeometry(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	doc, ok := native.(primitive.D)
	if !ok {
		m, ok := native.(primitive.M)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("mongo: expected document for geometry, got %T", native)
		}
		b, err := json.Marshal(m)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewGeometry(b, ut.GeometryType), nil
	}
	b, err := json.Marshal(doc.Map())
	if err != nil {
		return types.UniversalValue{}, err
	}
	return types.NewGeometry(b, ut.GeometryType), nil
}

// decodeDBRef converts a BSON document with `$ref`/`$id` fields to a
// Thing (spec.md §4.2.2).
func decodeDBRef(native interface{}) (types.UniversalValue, error) {
	doc, ok := native.(primitive.D)
	if !ok {
		return types.UniversalValue{}, errors.Errorf("mongo: expected DBRef document, got %T", native)
	}
	m := doc.Map()
	ref, ok := m["$ref"].(string)
	if !ok {
		return types.UniversalValue{}, errors.New("mongo: DBRef missing $ref")
	}
	id := renderDBRefID(m["$id"])
	return types.NewThing(ref, types.NewText(id), func(v types.UniversalValue) types.UniversalType { return types.Text })
}

func renderDBRefID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func decodeObject(native interface{}) (types.UniversalValue, error) {
	switch n := native.(type) {
	case primitive.D:
		m := n.Map()
		out := make(map[string]types.UniversalValue, len(m))
		for k, v := range m {
			uv, err := decodeUntyped(v)
			if err != nil {
				return types.UniversalValue{}, err
			}
			out[k] = uv
		}
		return types.NewObject(out), nil
	default:
		return types.UniversalValue{}, errors.Errorf("mongo: expected document for object, got %T", native)
	}
}

// decodeUntyped decodes a BSON value without a declared UniversalType,
// used for Object map values (spec.md §4.2.2 MinKey/MaxKey/CodeWithScope
// all land in an untyped Object).
func decodeUntyped(v interface{}) (types.UniversalValue, error) {
	switch n := v.(type) {
	case nil:
		return types.Null(types.Text), nil
	case bool:
		return types.NewBool(n), nil
	case int32:
		return types.NewInt(int64(n), 32)
	case int64:
		return types.NewInt(n, 64)
	case float64:
		return types.NewFloat64(n), nil
	case string:
		return types.NewText(n), nil
	case primitive.MinKey:
		return types.NewInt(1, 64)
	case primitive.MaxKey:
		return types.NewInt(1, 64)
	case primitive.JavaScript:
		return types.NewText(string(n)), nil
	case primitive.Symbol:
		return types.NewText(string(n)), nil
	case primitive.Regex:
		return types.NewText(fmt.Sprintf("(?%s)%s", n.Options, n.Pattern)), nil
	case primitive.CodeWithScope:
		b, err := json.Marshal(map[string]interface{}{"$code": n.Code, "$scope": n.Scope})
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewText(string(b)), nil
	default:
		return types.NewText(fmt.Sprintf("%v", n)), nil
	}
}
