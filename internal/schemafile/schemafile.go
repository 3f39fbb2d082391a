// Package schemafile loads the YAML schema file of spec.md §6:
//
//	version: 1
//	tables:
//	  - name: users
//	    id:   { name: id, type: uuid }
//	    columns:
//	      - { name: email, type: { type: var_char, length: 255 } }
//	      - { name: age,   type: int }
//
// A column's type is either a bare scalar (a parameterless tag, or the
// "int" alias) or a nested mapping carrying the tag plus its
// parameters. internal/types has no YAML awareness of its own - this
// package is the boundary that turns the file's untyped shape into
// types.UniversalType values through its ordinary constructors.
package schemafile

import (
	"os"

	"github.com/pingcap/errors"
	"gopkg.in/yaml.v2"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

type rawSchema struct {
	Version int        `yaml:"version"`
	Tables  []rawTable `yaml:"tables"`
}

type rawTable struct {
	Name    string   `yaml:"name"`
	ID      rawCol   `yaml:"id"`
	Columns []rawCol `yaml:"columns"`
}

type rawCol struct {
	Name string      `yaml:"name"`
	Type interface{} `yaml:"type"`
}

// Load reads and parses the schema file at path.
func Load(path string) (types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Schema{}, errors.Annotatef(err, "schemafile: read %q", path)
	}
	return Parse(data)
}

// Parse parses schema YAML already read into memory.
func Parse(data []byte) (types.Schema, error) {
	var raw rawSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return types.Schema{}, errors.Annotate(err, "schemafile: unmarshal yaml")
	}

	tables := make([]types.NamedTableDef, 0, len(raw.Tables))
	for _, t := range raw.Tables {
		id, err := resolveCol(t.ID)
		if err != nil {
			return types.Schema{}, errors.Annotatef(err, "schemafile: table %q id", t.Name)
		}
		cols := make([]types.ColDef, 0, len(t.Columns))
		for _, c := range t.Columns {
			col, err := resolveCol(c)
			if err != nil {
				return types.Schema{}, errors.Annotatef(err, "schemafile: table %q column %q", t.Name, c.Name)
			}
			cols = append(cols, col)
		}
		tables = append(tables, types.NamedTableDef{
			Name: t.Name,
			TableDef: types.TableDef{
				ID:      id,
				Columns: cols,
			},
		})
	}

	return types.NewSchema(raw.Version, tables), nil
}

func resolveCol(c rawCol) (types.ColDef, error) {
	ut, err := resolveType(c.Type)
	if err != nil {
		return types.ColDef{}, err
	}
	return types.ColDef{Name: c.Name, Type: ut}, nil
}

func resolveType(raw interface{}) (types.UniversalType, error) {
	switch v := raw.(type) {
	case string:
		return parameterlessType(v)
	case map[interface{}]interface{}:
		return parameterizedType(v)
	case map[string]interface{}:
		m := make(map[interface{}]interface{}, len(v))
		for k, val := range v {
			m[k] = val
		}
		return parameterizedType(m)
	default:
		return types.UniversalType{}, errors.Errorf("schemafile: unsupported type shape %T", raw)
	}
}

// parameterlessType resolves a bare scalar tag. "int" is a friendly
// alias for int32, the default integer width when a schema author
// doesn't care to be precise (there is no bare "int" UniversalType
// tag).
func parameterlessType(tag string) (types.UniversalType, error) {
	switch types.Tag(tag) {
	case types.TagBool:
		return types.Bool, nil
	case "int":
		return types.Int32, nil
	case types.TagInt8:
		return types.Int8, nil
	case types.TagInt16:
		return types.Int16, nil
	case types.TagInt32:
		return types.Int32, nil
	case types.TagInt64:
		return types.Int64, nil
	case types.TagFloat32:
		return types.Float32, nil
	case types.TagFloat64:
		return types.Float64, nil
	case types.TagText:
		return types.Text, nil
	case types.TagBlob:
		return types.Blob, nil
	case types.TagBytes:
		return types.Bytes, nil
	case types.TagDate:
		return types.Date, nil
	case types.TagTime:
		return types.Time, nil
	case types.TagLocalDateTime:
		return types.LocalDateTime, nil
	case types.TagLocalDateTimeNano:
		return types.LocalDateTimeNano, nil
	case types.TagZonedDateTime:
		return types.ZonedDateTime, nil
	case types.TagTimeTz:
		return types.TimeTz, nil
	case types.TagDuration:
		return types.Duration, nil
	case types.TagUuid:
		return types.Uuid, nil
	case types.TagUlid:
		return types.Ulid, nil
	case types.TagJson:
		return types.Json, nil
	case types.TagJsonb:
		return types.Jsonb, nil
	case types.TagThing:
		return types.Thing, nil
	default:
		return types.UniversalType{}, errors.Errorf("schemafile: %q requires parameters (precision/scale, length, values, element, or geometry_type)", tag)
	}
}

func parameterizedType(m map[interface{}]interface{}) (types.UniversalType, error) {
	tagRaw, ok := m["type"]
	if !ok {
		return types.UniversalType{}, errors.New("schemafile: type mapping missing \"type\" key")
	}
	tag, ok := tagRaw.(string)
	if !ok {
		return types.UniversalType{}, errors.New("schemafile: \"type\" key must be a string")
	}

	switch types.Tag(tag) {
	case types.TagDecimal:
		precision, err := intField(m, "precision")
		if err != nil {
			return types.UniversalType{}, err
		}
		scale, err := intField(m, "scale")
		if err != nil {
			return types.UniversalType{}, err
		}
		return types.Decimal(uint8(precision), uint8(scale))
	case types.TagChar:
		length, err := intField(m, "length")
		if err != nil {
			return types.UniversalType{}, err
		}
		return types.Char(uint16(length))
	case types.TagVarChar:
		length, err := intField(m, "length")
		if err != nil {
			return types.UniversalType{}, err
		}
		return types.VarChar(uint16(length))
	case types.TagArray:
		elemRaw, ok := m["element"]
		if !ok {
			return types.UniversalType{}, errors.New("schemafile: array type missing \"element\"")
		}
		elem, err := resolveType(elemRaw)
		if err != nil {
			return types.UniversalType{}, errors.Annotate(err, "schemafile: array element")
		}
		return types.Array(elem), nil
	case types.TagSet:
		values, err := stringListField(m, "values")
		if err != nil {
			return types.UniversalType{}, err
		}
		return types.Set(values), nil
	case types.TagEnum:
		values, err := stringListField(m, "values")
		if err != nil {
			return types.UniversalType{}, err
		}
		return types.Enum(values), nil
	case types.TagGeometry:
		gtRaw, ok := m["geometry_type"]
		if !ok {
			return types.UniversalType{}, errors.New("schemafile: geometry type missing \"geometry_type\"")
		}
		gt, ok := gtRaw.(string)
		if !ok {
			return types.UniversalType{}, errors.New("schemafile: \"geometry_type\" must be a string")
		}
		return types.Geometry(types.GeometryType(gt))
	default:
		// fall back to the parameterless form, in case a schema author
		// wrote `type: { type: uuid }` instead of a bare scalar.
		return parameterlessType(tag)
	}
}

func intField(m map[interface{}]interface{}, key string) (int, error) {
	v, ok := m[key]
	if !ok {
		return 0, errors.Errorf("schemafile: missing %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, errors.Errorf("schemafile: %q must be an integer", key)
	}
}

func stringListField(m map[interface{}]interface{}, key string) ([]string, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.Errorf("schemafile: missing %q", key)
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("schemafile: %q must be a list", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, errors.Errorf("schemafile: %q entries must be strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
