// Package surreal implements the general sink codec of spec.md §4.3:
// UniversalValue <-> a schemaless, JSON-shaped Go representation
// suitable for a SurrealQL query body, plus the narrower inverse used
// by the verifier to read sink data back against a known schema.
package surreal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/shopspring/decimal"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// RecordID is the sink-native record identifier `table:id` (spec.md
// §4.3 "Record IDs"). Only Text, Int32, Int64, Uuid, Ulid may back ID.
type RecordID struct {
	Table string
	ID    interface{}
}

func (r RecordID) String() string {
	return fmt.Sprintf("%s:%v", r.Table, r.ID)
}

// durationPattern matches the ISO-8601-derived `PT<secs>(.<nanos>)?S`
// form that upstream Interval types are surfaced as after transiting
// an intermediate string representation.
var durationPattern = regexp.MustCompile(`^PT(\d+)(?:\.(\d{1,9}))?S$`)

// EncodeThing builds a RecordID from a table name and an ID-admissible
// UniversalValue (spec.md §4.3 "Record IDs"): any other type fails
// outright rather than falling back to a random ID.
func EncodeThing(table string, id types.UniversalValue, idType types.UniversalType) (RecordID, error) {
	if !idType.IDAdmissible() {
		return RecordID{}, errors.Errorf("surreal: type %v is not id-admissible", idType.Tag)
	}
	switch id.Kind {
	case types.KindText, types.KindVarChar, types.KindChar:
		return RecordID{Table: table, ID: id.Str}, nil
	case types.KindInt:
		return RecordID{Table: table, ID: id.Int}, nil
	case types.KindUuid:
		return RecordID{Table: table, ID: id.UUID.String()}, nil
	case types.KindUlid:
		return RecordID{Table: table, ID: id.ULID.String()}, nil
	default:
		return RecordID{}, errors.Errorf("surreal: id value kind %v is not id-admissible", id.Kind)
	}
}

// Encode converts a UniversalValue into a sink-native Go value per
// spec.md §4.3. The returned value is shaped for json.Marshal (maps,
// slices, strings, numbers, decimal.Decimal, RecordID) so the caller
// can feed it straight into a query body.
func Encode(v types.UniversalValue, ut types.UniversalType) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}

	switch v.Kind {
	case types.KindBool:
		return v.Bool, nil

	case types.KindInt:
		return v.Int, nil

	case types.KindFloat32:
		return float64(v.Float32), nil

	case types.KindFloat64:
		return v.Float64, nil

	case types.KindDecimal:
		if v.DecimalPrecision <= 38 {
			if d, err := decimal.NewFromString(v.DecimalValue); err == nil {
				return d, nil
			}
		}
		return v.DecimalValue, nil

	case types.KindChar, types.KindVarChar, types.KindText:
		if d, ok := matchDurationString(v.Str); ok {
			return d, nil
		}
		return v.Str, nil

	case types.KindBlob, types.KindBytes:
		return append([]byte(nil), v.Bytes...), nil

	case types.KindDate:
		return v.Time.Format("2006-01-02"), nil

	case types.KindTime:
		s := v.Time.Format("15:04:05")
		if v.Time.Nanosecond() != 0 {
			s = v.Time.Format("15:04:05.999999999")
		}
		return s, nil

	case types.KindLocalDT, types.KindLocalDTN, types.KindZonedDT:
		return v.Time, nil

	case types.KindTimeTz:
		return v.TimeTzStr, nil

	case types.KindDuration:
		return time.Duration(v.DurationSecs)*time.Second + time.Duration(v.DurationNanos), nil

	case types.KindUuid:
		return v.UUID.String(), nil

	case types.KindUlid:
		return v.ULID.String(), nil

	case types.KindJson, types.KindJsonb:
		var obj interface{}
		if err := json.Unmarshal(v.JSONDoc, &obj); err != nil {
			return string(v.JSONDoc), nil
		}
		return obj, nil

	case types.KindArray:
		out := make([]interface{}, 0, len(v.Elements))
		elemType := ut
		if ut.Elem != nil {
			elemType = *ut.Elem
		}
		for _, e := range v.Elements {
			ev, err := Encode(e, elemType)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil

	case types.KindSet:
		out := make([]interface{}, 0, len(v.SetValues))
		for _, s := range v.SetValues {
			out = append(out, s)
		}
		return out, nil

	case types.KindEnum:
		return v.EnumValue, nil

	case types.KindGeometry:
		var obj interface{}
		if err := json.Unmarshal(v.GeometryData, &obj); err != nil {
			return nil, errors.Annotate(err, "surreal: decode geometry GeoJSON")
		}
		return obj, nil

	case types.KindThing:
		idType := inferIDType(*v.ThingID)
		return EncodeThing(v.ThingTable, *v.ThingID, idType)

	case types.KindObject:
		out := make(map[string]interface{}, len(v.Object))
		for k, fv := range v.Object {
			ev, err := Encode(fv, impliedType(fv))
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil

	default:
		return nil, errors.Errorf("surreal: unsupported value kind %v", v.Kind)
	}
}

// matchDurationString recognizes the PT<secs>(.<nanos>)?S auto-coercion
// rule (spec.md §4.3 "Strings").
func matchDurationString(s string) (time.Duration, bool) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	var nanos int64
	if m[2] != "" {
		frac := m[2]
		for len(frac) < 9 {
			frac += "0"
		}
		nanos, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false
		}
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), true
}

// inferIDType recovers a best-effort UniversalType for a Thing's
// already-constructed id value, since UniversalValue alone does not
// carry width-disambiguated type information.
func inferIDType(id types.UniversalValue) types.UniversalType {
	switch id.Kind {
	case types.KindText:
		return types.Text
	case types.KindInt:
		if id.Width == 64 {
			return types.Int64
		}
		return types.Int32
	case types.KindUuid:
		return types.Uuid
	case types.KindUlid:
		return types.Ulid
	default:
		return types.Text
	}
}

// impliedType is used for nested Object fields, whose static schema
// is not tracked alongside the map - best-effort, used only to steer
// Array/Decimal element encoding for ad-hoc JSON-shaped documents.
func impliedType(v types.UniversalValue) types.UniversalType {
	switch v.Kind {
	case types.KindArray:
		if v.ElementType != nil {
			return types.Array(*v.ElementType)
		}
		return types.Array(types.Text)
	case types.KindDecimal:
		p, s := v.DecimalPrecision, v.DecimalScale
		ut, err := types.Decimal(p, s)
		if err != nil {
			return types.Text
		}
		return ut
	default:
		return types.Text
	}
}

// DecodeBack is the inverse of Encode: it interprets a value already
// read back from the sink (e.g. over the verifier's read path)
// against a known schema UniversalType, applying the integer
// promotion/narrowing rule of spec.md §4.3 ("narrower requires the
// schema to declare the smaller width").
func DecodeBack(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	if native == nil {
		return types.Null(ut), nil
	}

	switch ut.Tag {
	case types.TagBool:
		b, ok := native.(bool)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("surreal: expected bool, got %T", native)
		}
		return types.NewBool(b), nil

	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		n, err := asInt64(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		width := map[types.Tag]int{
			types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
		}[ut.Tag]
		return types.NewInt(n, width)

	case types.TagFloat32:
		f, err := asFloat64(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewFloat32(float32(f)), nil

	case types.TagFloat64:
		f, err := asFloat64(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewFloat64(f), nil

	case types.TagDecimal:
		switch n := native.(type) {
		case decimal.Decimal:
			return types.NewDecimal(n.StringFixed(int32(ut.Scale)), ut.Precision, ut.Scale)
		case string:
			return types.NewDecimal(n, ut.Precision, ut.Scale)
		case float64:
			return types.NewDecimal(strconv.FormatFloat(n, 'f', int(ut.Scale), 64), ut.Precision, ut.Scale)
		default:
			return types.UniversalValue{}, errors.Errorf("surreal: expected decimal, got %T", native)
		}

	case types.TagText:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("surreal: expected string, got %T", native)
		}
		return types.NewText(s), nil

	case types.TagUuid:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("surreal: expected uuid string, got %T", native)
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "surreal: parse uuid")
		}
		return types.NewUuid(u), nil

	default:
		return types.UniversalValue{}, errors.Errorf("surreal: unsupported decode-back tag %v", ut.Tag)
	}
}

func asInt64(native interface{}) (int64, error) {
	switch n := native.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, errors.Errorf("surreal: expected integer, got %T", native)
	}
}

func asFloat64(native interface{}) (float64, error) {
	switch n := native.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, errors.Errorf("surreal: expected float, got %T", native)
	}
}
