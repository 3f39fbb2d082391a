package postgres

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// DecodeWALString decodes a wal2json-rendered column value - every
// value arrives as a string regardless of its native type - against
// its declared UniversalType (spec.md §4.5.1: "arrays parse {a,b,c}
// syntax; bytea is hex without \x; JSON/JSONB values arrive as strings
// and are reparsed; interval is parsed to Duration").
func DecodeWALString(s *string, ut types.UniversalType) (types.UniversalValue, error) {
	if s == nil {
		return types.Null(ut), nil
	}
	v := *s

	switch ut.Tag {
	case types.TagBool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "wal: parse bool")
		}
		return types.NewBool(b), nil

	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		width := map[types.Tag]int{
			types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
		}[ut.Tag]
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "wal: parse int")
		}
		return types.NewInt(n, width)

	case types.TagFloat32:
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "wal: parse float4")
		}
		return types.NewFloat32(float32(f)), nil

	case types.TagFloat64:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "wal: parse float8")
		}
		return types.NewFloat64(f), nil

	case types.TagDecimal:
		return decodeDecimal(v, ut)

	case types.TagText:
		return types.NewText(v), nil
	case types.TagChar:
		return types.NewChar(v, ut.Length), nil
	case types.TagVarChar:
		return types.NewVarChar(v, ut.Length), nil

	case types.TagBytes:
		b, err := hex.DecodeString(v)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "wal: decode bytea hex")
		}
		return types.NewBytes(b), nil

	case types.TagUuid:
		return decodeUUID(v)

	case types.TagDate, types.TagTime, types.TagLocalDateTime, types.TagZonedDateTime:
		return decodeTemporalString(v, ut)

	case types.TagTimeTz:
		return types.NewTimeTz(v), nil

	case types.TagJson, types.TagJsonb:
		return decodeJSON([]byte(v), ut)

	case types.TagDuration:
		return decodeInterval(v)

	case types.TagArray:
		elems, err := parsePGArrayLiteral(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		elemType := *ut.Elem
		vals := make([]types.UniversalValue, 0, len(elems))
		for _, e := range elems {
			var ev types.UniversalValue
			var err error
			if e == nil {
				ev = types.Null(elemType)
			} else {
				str := e.(string)
				ev, err = DecodeWALString(&str, elemType)
			}
			if err != nil {
				return types.UniversalValue{}, err
			}
			vals = append(vals, ev)
		}
		return types.NewArray(vals, elemType, nil)

	default:
		return types.UniversalValue{}, errors.Errorf("wal: unsupported target type %v", ut.Tag)
	}
}

func decodeTemporalString(v string, ut types.UniversalType) (types.UniversalValue, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
		"15:04:05.999999999",
	}
	var t time.Time
	var parsed bool
	for _, layout := range layouts {
		if tm, err := time.Parse(layout, v); err == nil {
			t = tm
			parsed = true
			break
		}
	}
	if !parsed {
		return types.UniversalValue{}, errors.Errorf("wal: unparseable temporal value %q", v)
	}

	switch ut.Tag {
	case types.TagDate:
		return types.NewDate(t), nil
	case types.TagTime:
		return types.NewTime(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil
	case types.TagLocalDateTime:
		return types.NewLocalDateTime(t), nil
	case types.TagZonedDateTime:
		return types.NewZonedDateTime(t), nil
	default:
		return types.UniversalValue{}, errors.Errorf("wal: unsupported temporal tag %v", ut.Tag)
	}
}
