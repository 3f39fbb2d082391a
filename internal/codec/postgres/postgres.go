// Package postgres implements the PostgreSQL relational decoder of
// spec.md §4.2.1: native pgx values, paired with the UniversalType the
// schema declares for the column, decode into UniversalValue.
package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Decode converts a pgx-native column value, decoded against its
// declared UniversalType, to a UniversalValue. native is whatever pgx
// hands back for the row's column: nil for SQL NULL, or one of the Go
// types pgx's default type map produces for the wire format ut names.
func Decode(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	if native == nil {
		return types.Null(ut), nil
	}

	switch ut.Tag {
	case types.TagBool:
		b, ok := native.(bool)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: expected bool, got %T", native)
		}
		return types.NewBool(b), nil

	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		return decodeInt(native, ut)

	case types.TagFloat32:
		f, ok := native.(float32)
		if !ok {
			f64, ok := native.(float64)
			if !ok {
				return types.UniversalValue{}, errors.Errorf("postgres: expected float4, got %T", native)
			}
			return types.NewFloat32(float32(f64)), nil
		}
		return types.NewFloat32(f), nil

	case types.TagFloat64:
		f, ok := native.(float64)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: expected float8, got %T", native)
		}
		return types.NewFloat64(f), nil

	case types.TagDecimal:
		return decodeDecimal(native, ut)

	case types.TagText:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: expected text, got %T", native)
		}
		return types.NewText(s), nil

	case types.TagChar:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: expected bpchar, got %T", native)
		}
		return types.NewChar(s, ut.Length), nil

	case types.TagVarChar:
		s, ok := native.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: expected varchar, got %T", native)
		}
		return types.NewVarChar(s, ut.Length), nil

	case types.TagBytes:
		b, ok := native.([]byte)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: expected bytea, got %T", native)
		}
		return types.NewBytes(b), nil

	case types.TagUuid:
		return decodeUUID(native)

	case types.TagDate:
		t, err := asTime(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewDate(t), nil

	case types.TagTime:
		t, err := asTime(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewTime(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()), nil

	case types.TagLocalDateTime:
		t, err := asTime(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewLocalDateTime(t), nil

	case types.TagZonedDateTime:
		t, err := asTime(native)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewZonedDateTime(t), nil

	case types.TagJson, types.TagJsonb:
		return decodeJSON(native, ut)

	case types.TagArray:
		return decodeArray(native, ut)

	case types.TagGeometry:
		return decodeGeometry(native, ut)

	default:
		return types.UniversalValue{}, errors.Errorf("postgres: unsupported target type %v", ut.Tag)
	}
}

func decodeInt(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	width := map[types.Tag]int{
		types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
	}[ut.Tag]
	var v int64
	switch n := native.(type) {
	case int16:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case int:
		v = int64(n)
	default:
		return types.UniversalValue{}, errors.Errorf("postgres: expected integer, got %T", native)
	}
	return types.NewInt(v, width)
}

// decodeDecimal handles both a pgx pgtype.Numeric (the default decode
// target for NUMERIC) and a pre-rendered string, per spec.md §4.2.1
// "if native value is a string, store verbatim; if a library decimal
// type, render to decimal string".
func decodeDecimal(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	var s string
	switch n := native.(type) {
	case string:
		s = n
	case pgtype.Numeric:
		text, err := n.Value()
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "postgres: render numeric")
		}
		str, ok := text.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("postgres: numeric rendered as %T", text)
		}
		s = str
	default:
		return types.UniversalValue{}, errors.Errorf("postgres: expected numeric, got %T", native)
	}

	precision := ut.Precision
	scale := ut.Scale
	if precision == 0 {
		digits := len(strings.Map(func(r rune) rune {
			if r == '-' || r == '+' || r == '.' {
				return -1
			}
			return r
		}, s))
		precision = uint8(digits)
	}
	return types.NewDecimal(s, precision, scale)
}

func decodeUUID(native interface{}) (types.UniversalValue, error) {
	switch n := native.(type) {
	case [16]byte:
		return types.NewUuid(uuid.UUID(n)), nil
	case string:
		u, err := uuid.Parse(n)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "postgres: parse uuid")
		}
		return types.NewUuid(u), nil
	default:
		return types.UniversalValue{}, errors.Errorf("postgres: expected uuid, got %T", native)
	}
}

func asTime(native interface{}) (time.Time, error) {
	t, ok := native.(time.Time)
	if !ok {
		return time.Time{}, errors.Errorf("postgres: expected time.Time, got %T", native)
	}
	return t, nil
}

func decodeJSON(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	var raw json.RawMessage
	switch n := native.(type) {
	case []byte:
		raw = json.RawMessage(n)
	case string:
		raw = json.RawMessage(n)
	default:
		b, err := json.Marshal(n)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "postgres: re-marshal json")
		}
		raw = b
	}
	if ut.Tag == types.TagJsonb {
		return types.NewJsonb(raw), nil
	}
	return types.NewJson(raw), nil
}

// decodeArray handles PostgreSQL's `{a,b,c}` array literal syntax when
// the driver surfaces it as a string (text-mode protocol), and native
// Go slices when the driver decodes binary arrays directly.
func decodeArray(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	elemType := *ut.Elem
	var elems []interface{}
	switch n := native.(type) {
	case string:
		parsed, err := parsePGArrayLiteral(n)
		if err != nil {
			return types.UniversalValue{}, err
		}
		elems = parsed
	case []interface{}:
		elems = n
	case []string:
		for _, s := range n {
			elems = append(elems, s)
		}
	case []int32:
		for _, v := range n {
			elems = append(elems, v)
		}
	case []int64:
		for _, v := range n {
			elems = append(elems, v)
		}
	case []float64:
		for _, v := range n {
			elems = append(elems, v)
		}
	case []bool:
		for _, v := range n {
			elems = append(elems, v)
		}
	default:
		return types.UniversalValue{}, errors.Errorf("postgres: unsupported array native type %T", native)
	}

	vals := make([]types.UniversalValue, 0, len(elems))
	for _, e := range elems {
		v, err := Decode(e, elemType)
		if err != nil {
			return types.UniversalValue{}, err
		}
		vals = append(vals, v)
	}
	return types.NewArray(vals, elemType, nil)
}

// parsePGArrayLiteral splits the `{a,b,c}` form into its raw element
// strings. Quoted elements and NULL markers are handled; nested arrays
// are not (this sync tool targets one-dimensional arrays, per
// spec.md §4.2.1).
func parsePGArrayLiteral(s string) ([]interface{}, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, errors.Errorf("postgres: malformed array literal %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return []interface{}{}, nil
	}
	var out []interface{}
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '"' && (i == 0 || inner[i-1] != '\\'):
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			out = append(out, elemOrNil(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, elemOrNil(cur.String()))
	return out, nil
}

func parsePointFloats(xs, ys string) (float64, float64, error) {
	var x, y float64
	if _, err := fmt.Sscanf(strings.TrimSpace(xs), "%g", &x); err != nil {
		return 0, 0, errors.Annotate(err, "postgres: parse point x")
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(ys), "%g", &y); err != nil {
		return 0, 0, errors.Annotate(err, "postgres: parse point y")
	}
	return x, y, nil
}

func elemOrNil(s string) interface{} {
	if s == "NULL" {
		return nil
	}
	return strings.Trim(s, `"`)
}

// decodeGeometry handles POINT, surfaced by pgx as a pgtype.Point or
// as the `(x,y)` text form.
func decodeGeometry(native interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	if ut.GeometryType != types.GeometryPoint {
		return types.UniversalValue{}, errors.Errorf("postgres: geometry type %v not supported", ut.GeometryType)
	}
	var x, y float64
	switch n := native.(type) {
	case pgtype.Point:
		x, y = n.P.X, n.P.Y
	case string:
		trimmed := strings.Trim(n, "()")
		parts := strings.SplitN(trimmed, ",", 2)
		if len(parts) != 2 {
			return types.UniversalValue{}, errors.Errorf("postgres: malformed point literal %q", n)
		}
		var err error
		x, y, err = parsePointFloats(parts[0], parts[1])
		if err != nil {
			return types.UniversalValue{}, err
		}
	default:
		return types.UniversalValue{}, errors.Errorf("postgres: unsupported point native type %T", native)
	}

	doc, err := json.Marshal(map[string]interface{}{
		"type":        "Point",
		"coordinates": []float64{x, y},
	})
	if err != nil {
		return types.UniversalValue{}, err
	}
	return types.NewGeometry(doc, types.GeometryPoint), nil
}

// decodeInterval parses a PostgreSQL `interval` rendered as Postgres's
// default text form (`HH:MM:SS[.ffffff]`, the common case for
// sub-day intervals surfaced via wal2json) into Duration.
func decodeInterval(s string) (types.UniversalValue, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return types.UniversalValue{}, errors.Errorf("postgres: malformed interval %q", s)
	}
	t, err := time.Parse("15:04:05.999999999", strings.Join(parts, ":"))
	if err != nil {
		return types.UniversalValue{}, errors.Annotate(err, "postgres: parse interval")
	}
	secs := int64(t.Hour())*3600 + int64(t.Minute())*60 + int64(t.Second())
	return types.NewDuration(secs, int32(t.Nanosecond())), nil
}
