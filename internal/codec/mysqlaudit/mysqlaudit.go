// Package mysqlaudit implements the MySQL relational decode variant of
// spec.md §4.2.1, sourced from the audit table's row_data JSON column
// (§4.5.2) rather than a live column cursor: the same mapping table as
// the PostgreSQL decoder, applied to JSON-rendered cell values, plus
// MySQL's SET type and the boolean-as-tinyint(1) workaround.
package mysqlaudit

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Options configures decode behavior for upstream quirks that cannot
// be inferred from the JSON rendering alone.
type Options struct {
	// BooleanJSONPaths lists dotted field paths (table.column) whose
	// JSON-rendered 0/1 tinyint should decode as Bool rather than Int8.
	// MySQL's JSON row export has no native boolean; this set tells the
	// decoder which numeric columns are really BOOL (spec.md §6).
	BooleanJSONPaths map[string]bool
}

// Decode converts one field of an audit row_data JSON document to a
// UniversalValue, given its declared UniversalType and its table-
// qualified column path (used to consult BooleanJSONPaths).
func Decode(raw json.RawMessage, ut types.UniversalType, path string, opts Options) (types.UniversalValue, error) {
	var v interface{}
	if len(raw) == 0 || string(raw) == "null" {
		return types.Null(ut), nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return types.UniversalValue{}, errors.Annotate(err, "mysqlaudit: unmarshal field")
	}
	if v == nil {
		return types.Null(ut), nil
	}

	if ut.Tag == types.TagBool {
		return decodeBool(v)
	}
	if opts.BooleanJSONPaths[path] {
		if _, ok := v.(float64); ok {
			return decodeBool(v)
		}
	}

	switch ut.Tag {
	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		return decodeInt(v, ut)
	case types.TagFloat32:
		f, err := asFloat(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewFloat32(float32(f)), nil
	case types.TagFloat64:
		f, err := asFloat(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewFloat64(f), nil
	case types.TagDecimal:
		return decodeDecimal(v, ut)
	case types.TagText:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewText(s), nil
	case types.TagChar:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewChar(s, ut.Length), nil
	case types.TagVarChar:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewVarChar(s, ut.Length), nil
	case types.TagBytes:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "mysqlaudit: decode base64 bytes")
		}
		return types.NewBytes(b), nil
	case types.TagUuid:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "mysqlaudit: parse uuid")
		}
		return types.NewUuid(u), nil
	case types.TagDate, types.TagLocalDateTime, types.TagZonedDateTime, types.TagTime:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return decodeTemporal(s, ut)
	case types.TagJson, types.TagJsonb:
		b, err := json.Marshal(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		if ut.Tag == types.TagJsonb {
			return types.NewJsonb(b), nil
		}
		return types.NewJson(b), nil
	case types.TagSet:
		return decodeSet(v, ut)
	case types.TagEnum:
		s, err := asString(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewEnum(s, ut.Values)
	case types.TagArray:
		return decodeArray(v, ut, path, opts)
	default:
		return types.UniversalValue{}, errors.Errorf("mysqlaudit: unsupported target type %v", ut.Tag)
	}
}

func decodeBool(v interface{}) (types.UniversalValue, error) {
	switch n := v.(type) {
	case bool:
		return types.NewBool(n), nil
	case float64:
		return types.NewBool(n != 0), nil
	default:
		return types.UniversalValue{}, errors.Errorf("mysqlaudit: expected bool-ish, got %T", v)
	}
}

func decodeInt(v interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	width := map[types.Tag]int{
		types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
	}[ut.Tag]
	switch n := v.(type) {
	case float64:
		return types.NewInt(int64(n), width)
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "mysqlaudit: parse int string (bigint overflow path)")
		}
		return types.NewInt(i, width)
	default:
		return types.UniversalValue{}, errors.Errorf("mysqlaudit: expected number, got %T", v)
	}
}

func asFloat(v interface{}) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("mysqlaudit: expected number, got %T", v)
	}
	return f, nil
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("mysqlaudit: expected string, got %T", v)
	}
	return s, nil
}

func decodeDecimal(v interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	s, err := asString(v)
	if err != nil {
		// MySQL's JSON_OBJECT renders DECIMAL as a JSON number when the
		// trigger body doesn't CAST it explicitly; fall back to that.
		f, ferr := asFloat(v)
		if ferr != nil {
			return types.UniversalValue{}, err
		}
		s = strconv.FormatFloat(f, 'f', int(ut.Scale), 64)
	}
	precision := ut.Precision
	if precision == 0 {
		precision = uint8(len(strings.Map(func(r rune) rune {
			if r == '-' || r == '.' {
				return -1
			}
			return r
		}, s)))
	}
	return types.NewDecimal(s, precision, ut.Scale)
}

func decodeTemporal(s string, ut types.UniversalType) (types.UniversalValue, error) {
	layouts := []string{"2006-01-02 15:04:05.999999", "2006-01-02", "15:04:05.999999"}
	var t time.Time
	var err error
	for _, l := range layouts {
		t, err = time.Parse(l, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return types.UniversalValue{}, errors.Annotatef(err, "mysqlaudit: unparseable temporal %q", s)
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
		return types.UniversalValue{}, errors.Errorf("mysqlaudit: unsupported temporal tag %v", ut.Tag)
	}
}

// decodeSet handles MySQL's SET column, rendered by JSON_OBJECT as a
// single comma-joined string (e.g. "technology,tutorial") - testable
// scenario 3.
func decodeSet(v interface{}, ut types.UniversalType) (types.UniversalValue, error) {
	s, err := asString(v)
	if err != nil {
		return types.UniversalValue{}, err
	}
	if s == "" {
		return types.NewSet(nil, ut.Values)
	}
	return types.NewSet(strings.Split(s, ","), ut.Values)
}

func decodeArray(v interface{}, ut types.UniversalType, path string, opts Options) (types.UniversalValue, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return types.UniversalValue{}, errors.Errorf("mysqlaudit: expected json array, got %T", v)
	}
	elemType := *ut.Elem
	vals := make([]types.UniversalValue, 0, len(arr))
	for _, e := range arr {
		b, err := json.Marshal(e)
		if err != nil {
			return types.UniversalValue{}, err
		}
		ev, err := Decode(b, elemType, path, opts)
		if err != nil {
			return types.UniversalValue{}, err
		}
		vals = append(vals, ev)
	}
	return types.NewArray(vals, elemType, nil)
}
