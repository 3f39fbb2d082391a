// Package neo4j implements the Cypher-literal sink codec of spec.md
// §4.3: UniversalValue -> a Cypher literal string for use directly in
// CREATE/SET query text, diverging from the general sink codec's
// native-value approach because Cypher has no parameter slot for most
// of these shapes.
package neo4j

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// ToCypherLiteral converts a UniversalValue into a Cypher literal
// string. parentElem supplies the declared element type for Array
// values, mirroring the Rust source's `parent_type` parameter; pass
// nil when there is none.
func ToCypherLiteral(v types.UniversalValue, parentElem *types.UniversalType) (string, error) {
	if v.IsNull() {
		return "null", nil
	}

	switch v.Kind {
	case types.KindBool:
		return strconv.FormatBool(v.Bool), nil

	case types.KindInt:
		return strconv.FormatInt(v.Int, 10), nil

	case types.KindFloat32:
		f := float64(v.Float32)
		if err := rejectNonFinite(f); err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 32), nil

	case types.KindFloat64:
		if err := rejectNonFinite(v.Float64); err != nil {
			return "", err
		}
		return strconv.FormatFloat(v.Float64, 'g', -1, 64), nil

	case types.KindDecimal:
		return v.DecimalValue, nil

	case types.KindText, types.KindChar, types.KindVarChar:
		return escapeString(v.Str), nil

	case types.KindUuid:
		return escapeString(v.UUID.String()), nil

	case types.KindUlid:
		return escapeString(v.ULID.String()), nil

	case types.KindLocalDT, types.KindLocalDTN, types.KindZonedDT:
		return fmt.Sprintf("datetime('%s')", v.Time.UTC().Format("2006-01-02T15:04:05.999999999Z")), nil

	case types.KindDate:
		return fmt.Sprintf("date('%s')", v.Time.Format("2006-01-02")), nil

	case types.KindTime:
		return fmt.Sprintf("time('%s')", v.Time.Format("15:04:05.999999999")), nil

	case types.KindTimeTz:
		return escapeString(v.TimeTzStr), nil

	case types.KindBlob, types.KindBytes:
		return escapeString(hexEncode(v.Bytes)), nil

	case types.KindJson, types.KindJsonb:
		return escapeString(string(v.JSONDoc)), nil

	case types.KindEnum:
		return escapeString(v.EnumValue), nil

	case types.KindSet:
		parts := make([]string, 0, len(v.SetValues))
		for _, s := range v.SetValues {
			parts = append(parts, escapeString(s))
		}
		return "[" + strings.Join(parts, ", ") + "]", nil

	case types.KindGeometry:
		return escapeString(string(v.GeometryData)), nil

	case types.KindArray:
		var elemType *types.UniversalType
		if parentElem != nil {
			elemType = parentElem
		} else if v.ElementType != nil {
			elemType = v.ElementType
		}
		parts := make([]string, 0, len(v.Elements))
		for _, e := range v.Elements {
			lit, err := ToCypherLiteral(e, elemType)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil

	case types.KindDuration:
		if v.DurationNanos == 0 {
			return fmt.Sprintf("duration('PT%dS')", v.DurationSecs), nil
		}
		return fmt.Sprintf("duration('PT%d.%09dS')", v.DurationSecs, v.DurationNanos), nil

	case types.KindThing:
		idStr, err := thingIDString(*v.ThingID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("'%s:%s'", v.ThingTable, idStr), nil

	case types.KindObject:
		parts := make([]string, 0, len(v.Object))
		for k, fv := range v.Object {
			lit, err := ToCypherLiteral(fv, nil)
			if err != nil {
				lit = "null"
			}
			parts = append(parts, fmt.Sprintf("`%s`: %s", strings.ReplaceAll(k, "`", "``"), lit))
		}
		return "{" + strings.Join(parts, ", ") + "}", nil

	default:
		return "", errors.Errorf("neo4j: unsupported value kind %v", v.Kind)
	}
}

func rejectNonFinite(f float64) error {
	if math.IsNaN(f) {
		return errors.New("neo4j: NaN float values are rejected")
	}
	if math.IsInf(f, 0) {
		return errors.New("neo4j: infinite float values are rejected")
	}
	return nil
}

// escapeString quotes and escapes s for inclusion in Cypher text,
// matching escape_neo4j_string's handling of quotes, backslashes, and
// control characters.
func escapeString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return "'" + r.Replace(s) + "'"
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

func thingIDString(id types.UniversalValue) (string, error) {
	switch id.Kind {
	case types.KindText, types.KindVarChar, types.KindChar:
		return id.Str, nil
	case types.KindInt:
		return strconv.FormatInt(id.Int, 10), nil
	case types.KindUuid:
		return id.UUID.String(), nil
	default:
		return "", errors.Errorf("neo4j: unsupported Thing id kind %v, want Text, Int32, Int64, or Uuid", id.Kind)
	}
}
