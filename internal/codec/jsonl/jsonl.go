// Package jsonl implements the JSONL decoder of spec.md §4.2.3:
// each line parses as JSON, then JsonValueWithSchema dispatches each
// field's parsed value against its declared UniversalType.
package jsonl

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeLine parses one JSONL line into a map of field name to decoded
// UniversalValue, given the table's column schema.
func DecodeLine(line []byte, schema map[string]types.UniversalType) (map[string]types.UniversalValue, error) {
	var raw map[string]json.RawMessage
	if err := jsonAPI.Unmarshal(line, &raw); err != nil {
		return nil, errors.Annotate(err, "jsonl: parse line")
	}
	out := make(map[string]types.UniversalValue, len(schema))
	for field, ut := range schema {
		r, ok := raw[field]
		if !ok {
			out[field] = types.Null(ut)
			continue
		}
		v, err := DecodeValue(r, ut)
		if err != nil {
			return nil, errors.Annotatef(err, "jsonl: field %q", field)
		}
		out[field] = v
	}
	return out, nil
}

// DecodeValue applies JsonValueWithSchema to one already-parsed JSON
// value against its declared UniversalType.
func DecodeValue(raw json.RawMessage, ut types.UniversalType) (types.UniversalValue, error) {
	var v interface{}
	if len(raw) == 0 || string(raw) == "null" {
		return types.Null(ut), nil
	}
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return types.UniversalValue{}, errors.Annotate(err, "jsonl: unmarshal value")
	}
	if v == nil {
		return types.Null(ut), nil
	}

	switch ut.Tag {
	case types.TagBool:
		b, ok := v.(bool)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected bool, got %T", v)
		}
		return types.NewBool(b), nil

	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		width := map[types.Tag]int{
			types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
		}[ut.Tag]
		n, ok := v.(float64)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected number, got %T", v)
		}
		return types.NewInt(int64(n), width)

	case types.TagFloat32:
		n, ok := v.(float64)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected number, got %T", v)
		}
		return types.NewFloat32(float32(n)), nil

	case types.TagFloat64:
		n, ok := v.(float64)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected number, got %T", v)
		}
		return types.NewFloat64(n), nil

	case types.TagDecimal:
		switch n := v.(type) {
		case string:
			return types.NewDecimal(n, ut.Precision, ut.Scale)
		case float64:
			return types.NewDecimal(formatDecimal(n, ut.Scale), ut.Precision, ut.Scale)
		default:
			return types.UniversalValue{}, errors.Errorf("jsonl: expected decimal string or number, got %T", v)
		}

	case types.TagText:
		s, ok := v.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected string, got %T", v)
		}
		return types.NewText(s), nil

	case types.TagChar:
		s, ok := v.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected string, got %T", v)
		}
		return types.NewChar(s, ut.Length), nil

	case types.TagVarChar:
		s, ok := v.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected string, got %T", v)
		}
		return types.NewVarChar(s, ut.Length), nil

	case types.TagUuid:
		s, ok := v.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected uuid string, got %T", v)
		}
		u, err := uuid.Parse(s)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "jsonl: parse uuid")
		}
		return types.NewUuid(u), nil

	case types.TagBytes:
		s, ok := v.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected base64 string, got %T", v)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "jsonl: decode base64")
		}
		return types.NewBytes(b), nil

	case types.TagDate, types.TagTime, types.TagLocalDateTime, types.TagZonedDateTime:
		s, ok := v.(string)
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected temporal string, got %T", v)
		}
		return decodeTemporalRFC3339(s, ut)

	case types.TagJson, types.TagJsonb:
		b, err := jsonAPI.Marshal(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		if ut.Tag == types.TagJsonb {
			return types.NewJsonb(b), nil
		}
		return types.NewJson(b), nil

	case types.TagGeometry:
		b, err := jsonAPI.Marshal(v)
		if err != nil {
			return types.UniversalValue{}, err
		}
		return types.NewGeometry(b, ut.GeometryType), nil

	case types.TagArray:
		arr, ok := v.([]interface{})
		if !ok {
			return types.UniversalValue{}, errors.Errorf("jsonl: expected array, got %T", v)
		}
		elemType := *ut.Elem
		vals := make([]types.UniversalValue, 0, len(arr))
		for _, e := range arr {
			eb, err := jsonAPI.Marshal(e)
			if err != nil {
				return types.UniversalValue{}, err
			}
			ev, err := DecodeValue(eb, elemType)
			if err != nil {
				return types.UniversalValue{}, err
			}
			vals = append(vals, ev)
		}
		return types.NewArray(vals, elemType, nil)

	default:
		return types.UniversalValue{}, errors.Errorf("jsonl: unsupported target type %v", ut.Tag)
	}
}
