package types

import (
	"encoding/json"

	"github.com/pingcap/errors"
)

// structuredType is the map-form wire representation used for tags
// that carry parameters. Parameterless tags serialize to a plain
// string instead (spec.md §3.1 "Serialization form").
type structuredType struct {
	Type      string   `json:"type"`
	Precision uint8    `json:"precision,omitempty"`
	Scale     uint8    `json:"scale,omitempty"`
	Length    uint16   `json:"length,omitempty"`
	Element   *json.RawMessage `json:"element_type,omitempty"`
	Values    []string `json:"values,omitempty"`
	Geometry  string   `json:"geometry_type,omitempty"`
}

func hasParams(tag Tag) bool {
	switch tag {
	case TagDecimal, TagChar, TagVarChar, TagArray, TagSet, TagEnum, TagGeometry:
		return true
	default:
		return false
	}
}

// Serialize renders t in its compact form if it carries no parameters,
// otherwise in its structured (map) form.
func (t UniversalType) Serialize() ([]byte, error) {
	if !hasParams(t.Tag) {
		return json.Marshal(string(t.Tag))
	}

	st := structuredType{Type: string(t.Tag)}
	switch t.Tag {
	case TagDecimal:
		st.Precision = t.Precision
		st.Scale = t.Scale
	case TagChar, TagVarChar:
		st.Length = t.Length
	case TagArray:
		if t.Elem == nil {
			return nil, errors.New("array type missing element type")
		}
		raw, err := t.Elem.Serialize()
		if err != nil {
			return nil, err
		}
		rm := json.RawMessage(raw)
		st.Element = &rm
	case TagSet, TagEnum:
		st.Values = t.Values
	case TagGeometry:
		st.Geometry = string(t.GeometryType)
	}
	return json.Marshal(st)
}

// MarshalJSON implements json.Marshaler.
func (t UniversalType) MarshalJSON() ([]byte, error) {
	return t.Serialize()
}

// UnmarshalJSON implements json.Unmarshaler, accepting either the
// compact (string) or structured (map) forms, per spec.md §3.1.
func (t *UniversalType) UnmarshalJSON(data []byte) error {
	parsed, err := ParseType(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType parses either the compact string form or the structured
// map form of a UniversalType. Unknown tags fail - there is no
// fallback (spec.md §4.1).
func ParseType(data []byte) (UniversalType, error) {
	var compact string
	if err := json.Unmarshal(data, &compact); err == nil {
		return parseCompact(Tag(compact))
	}

	var st structuredType
	if err := json.Unmarshal(data, &st); err != nil {
		return UniversalType{}, errors.Annotate(err, "parse universal type")
	}
	return parseStructured(st)
}

func parseCompact(tag Tag) (UniversalType, error) {
	switch tag {
	case TagBool, TagInt8, TagInt16, TagInt32, TagInt64, TagFloat32, TagFloat64,
		TagText, TagBlob, TagBytes, TagDate, TagTime, TagLocalDateTime,
		TagLocalDateTimeNano, TagZonedDateTime, TagTimeTz, TagDuration,
		TagUuid, TagUlid, TagJson, TagJsonb, TagThing:
		return UniversalType{Tag: tag}, nil
	default:
		return UniversalType{}, errors.Errorf("unknown or non-compact universal type tag %q", tag)
	}
}

func parseStructured(st structuredType) (UniversalType, error) {
	switch Tag(st.Type) {
	case TagDecimal:
		return Decimal(st.Precision, st.Scale)
	case TagChar:
		return Char(st.Length)
	case TagVarChar:
		return VarChar(st.Length)
	case TagArray:
		if st.Element == nil {
			return UniversalType{}, errors.New("array type missing element_type")
		}
		elem, err := ParseType(*st.Element)
		if err != nil {
			return UniversalType{}, errors.Annotate(err, "array element type")
		}
		return Array(elem), nil
	case TagSet:
		return Set(st.Values), nil
	case TagEnum:
		return Enum(st.Values), nil
	case TagGeometry:
		return Geometry(GeometryType(st.Geometry))
	default:
		// Parameterless tags are also accepted in structured form,
		// e.g. {"type": "uuid"}.
		return parseCompact(Tag(st.Type))
	}
}
