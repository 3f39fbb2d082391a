package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"github.com/pingcap/errors"
)

// Kind identifies which arm of UniversalValue is populated.
type Kind string

const (
	KindNull     Kind = "null"
	KindBool     Kind = "bool"
	KindInt      Kind = "int"
	KindFloat32  Kind = "float32"
	KindFloat64  Kind = "float64"
	KindDecimal  Kind = "decimal"
	KindChar     Kind = "char"
	KindVarChar  Kind = "var_char"
	KindText     Kind = "text"
	KindBlob     Kind = "blob"
	KindBytes    Kind = "bytes"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindLocalDT  Kind = "local_date_time"
	KindLocalDTN Kind = "local_date_time_nano"
	KindZonedDT  Kind = "zoned_date_time"
	KindTimeTz   Kind = "time_tz"
	KindDuration Kind = "duration"
	KindUuid     Kind = "uuid"
	KindUlid     Kind = "ulid"
	KindJson     Kind = "json"
	KindJsonb    Kind = "jsonb"
	KindArray    Kind = "array"
	KindSet      Kind = "set"
	KindEnum     Kind = "enum"
	KindGeometry Kind = "geometry"
	KindThing    Kind = "thing"
	KindObject   Kind = "object"
)

// UniversalValue is the runtime value counterpart of UniversalType
// (spec.md §3.2). Exactly one of the typed fields is meaningful,
// selected by Kind. UniversalValue is immutable once constructed
// (spec.md §3.6): all constructors return values, never pointers to
// mutable state shared across call sites.
type UniversalValue struct {
	Kind Kind

	// NullType carries the intended type when Kind == KindNull (V-1).
	NullType *UniversalType

	Bool bool

	// Int carries any sized-integer variant; Width records which.
	Int   int64
	Width int // 8, 16, 32, 64

	Float32 float32
	Float64 float64

	// Decimal: value is the verbatim decimal numeral string (V-3).
	DecimalValue     string
	DecimalPrecision uint8
	DecimalScale     uint8

	// Char/VarChar/Text
	Str       string
	StrLength uint16 // Char/VarChar only

	Bytes []byte // Blob/Bytes, selected by Kind

	Time time.Time // Date/Time/LocalDateTime(Nano)/ZonedDateTime

	TimeTzStr string // TimeTz, serialized verbatim to preserve offset

	DurationSecs  int64
	DurationNanos int32

	UUID uuid.UUID
	ULID ulid.ULID

	JSONDoc json.RawMessage // Json/Jsonb

	Elements    []UniversalValue // Array/Set(as strings, see SetValues)/elements
	ElementType *UniversalType   // Array only

	SetValues []string // Set: the chosen elements (runtime strings)
	EnumValue string    // Enum: the chosen element
	Values    []string  // Set/Enum: the declared admissible values

	GeometryData json.RawMessage // GeoJSON
	GeometryType GeometryType

	ThingTable string
	ThingID    *UniversalValue

	Object map[string]UniversalValue
}

// Null constructs Null carrying the intended type (V-1).
func Null(t UniversalType) UniversalValue {
	tt := t
	return UniversalValue{Kind: KindNull, NullType: &tt}
}

// IsNull reports whether v is Null.
func (v UniversalValue) IsNull() bool { return v.Kind == KindNull }

// NewBool constructs Bool(b).
func NewBool(b bool) UniversalValue { return UniversalValue{Kind: KindBool, Bool: b} }

// NewInt constructs a sized integer value. width must be 8, 16, 32, or 64.
func NewInt(v int64, width int) (UniversalValue, error) {
	switch width {
	case 8, 16, 32, 64:
		return UniversalValue{Kind: KindInt, Int: v, Width: width}, nil
	default:
		return UniversalValue{}, errors.Errorf("int: unsupported width %d", width)
	}
}

// NewFloat32 constructs Float32(f).
func NewFloat32(f float32) UniversalValue { return UniversalValue{Kind: KindFloat32, Float32: f} }

// NewFloat64 constructs Float64(f).
func NewFloat64(f float64) UniversalValue { return UniversalValue{Kind: KindFloat64, Float64: f} }

// NewDecimal constructs Decimal{value, precision, scale}.
//
// V-3: value must parse as a signed decimal numeral with exactly scale
// fractional digits (leading zeros permitted). This is validated here
// because it is a value-level invariant, distinct from the T-1
// type-level invariant enforced by the Decimal type constructor.
func NewDecimal(value string, precision, scale uint8) (UniversalValue, error) {
	if err := validateDecimalString(value, scale); err != nil {
		return UniversalValue{}, err
	}
	return UniversalValue{
		Kind:             KindDecimal,
		DecimalValue:     value,
		DecimalPrecision: precision,
		DecimalScale:     scale,
	}, nil
}

func validateDecimalString(value string, scale uint8) error {
	s := value
	if len(s) == 0 {
		return errors.New("decimal: empty value string")
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if len(s) == 0 {
		return errors.Errorf("decimal: value %q has no digits", value)
	}
	dot := -1
	for i, r := range s {
		if r == '.' {
			if dot != -1 {
				return errors.Errorf("decimal: value %q has multiple decimal points", value)
			}
			dot = i
			continue
		}
		if r < '0' || r > '9' {
			return errors.Errorf("decimal: value %q is not a signed decimal numeral", value)
		}
	}
	fracDigits := 0
	if dot != -1 {
		fracDigits = len(s) - dot - 1
	}
	if fracDigits != int(scale) {
		return errors.Errorf("decimal: value %q has %d fractional digits, want %d", value, fracDigits, scale)
	}
	return nil
}

// NewChar constructs Char{value, length}.
func NewChar(value string, length uint16) UniversalValue {
	return UniversalValue{Kind: KindChar, Str: value, StrLength: length}
}

// NewVarChar constructs VarChar{value, length}.
func NewVarChar(value string, length uint16) UniversalValue {
	return UniversalValue{Kind: KindVarChar, Str: value, StrLength: length}
}

// NewText constructs Text(s).
func NewText(s string) UniversalValue { return UniversalValue{Kind: KindText, Str: s} }

// NewBlob constructs Blob(bytes).
func NewBlob(b []byte) UniversalValue { return UniversalValue{Kind: KindBlob, Bytes: b} }

// NewBytes constructs Bytes(bytes).
func NewBytes(b []byte) UniversalValue { return UniversalValue{Kind: KindBytes, Bytes: b} }

// NewDate constructs Date at UTC midnight for the given calendar date.
func NewDate(t time.Time) UniversalValue {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return UniversalValue{Kind: KindDate, Time: midnight}
}

// epoch is the date onto which a bare Time-of-day is projected, per
// spec.md §3.2 "Time(utc-epoch-date + time)".
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// NewTime constructs Time on the epoch date at UTC.
func NewTime(hour, min, sec, nsec int) UniversalValue {
	t := time.Date(1970, 1, 1, hour, min, sec, nsec, time.UTC)
	return UniversalValue{Kind: KindTime, Time: t}
}

// NewLocalDateTime constructs LocalDateTime (microsecond precision,
// naive wall-clock value interpreted as UTC).
func NewLocalDateTime(t time.Time) UniversalValue {
	trunc := t.UTC().Truncate(time.Microsecond)
	return UniversalValue{Kind: KindLocalDT, Time: trunc}
}

// NewLocalDateTimeNano constructs LocalDateTimeNano (nanosecond
// precision).
func NewLocalDateTimeNano(t time.Time) UniversalValue {
	return UniversalValue{Kind: KindLocalDTN, Time: t.UTC()}
}

// NewZonedDateTime constructs ZonedDateTime, preserving t's offset.
func NewZonedDateTime(t time.Time) UniversalValue {
	return UniversalValue{Kind: KindZonedDT, Time: t}
}

// NewTimeTz constructs TimeTz(s) - stored verbatim as a string, never
// coerced to a point in time (spec.md §4.2.1).
func NewTimeTz(s string) UniversalValue { return UniversalValue{Kind: KindTimeTz, TimeTzStr: s} }

// NewDuration constructs Duration(secs, nanos).
func NewDuration(secs int64, nanos int32) UniversalValue {
	return UniversalValue{Kind: KindDuration, DurationSecs: secs, DurationNanos: nanos}
}

// NewUuid constructs Uuid(u).
func NewUuid(u uuid.UUID) UniversalValue { return UniversalValue{Kind: KindUuid, UUID: u} }

// NewUlid constructs Ulid(u).
func NewUlid(u ulid.ULID) UniversalValue { return UniversalValue{Kind: KindUlid, ULID: u} }

// NewJson constructs Json(doc).
func NewJson(doc json.RawMessage) UniversalValue { return UniversalValue{Kind: KindJson, JSONDoc: doc} }

// NewJsonb constructs Jsonb(doc).
func NewJsonb(doc json.RawMessage) UniversalValue {
	return UniversalValue{Kind: KindJsonb, JSONDoc: doc}
}

// NewArray constructs Array{elements, element_type}.
//
// T-3: every element's runtime type must conform to elemType. Empty
// slices are accepted (spec.md §4.2.1 "Empty array literals map to an
// empty array, never to null").
func NewArray(elements []UniversalValue, elemType UniversalType, typeOf func(UniversalValue) UniversalType) (UniversalValue, error) {
	for i, e := range elements {
		if e.IsNull() {
			continue
		}
		if typeOf != nil && !typeOf(e).Equal(elemType) {
			return UniversalValue{}, errors.Errorf("array: element %d has type %v, want %v", i, typeOf(e), elemType)
		}
	}
	et := elemType
	return UniversalValue{Kind: KindArray, Elements: append([]UniversalValue(nil), elements...), ElementType: &et}, nil
}

// NewSet constructs Set{elements, values}. T-4: every element of
// elements must be a member of values.
func NewSet(elements []string, values []string) (UniversalValue, error) {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	for _, e := range elements {
		if _, ok := allowed[e]; !ok {
			return UniversalValue{}, errors.Errorf("set: element %q is not in values %v", e, values)
		}
	}
	return UniversalValue{
		Kind:      KindSet,
		SetValues: append([]string(nil), elements...),
		Values:    append([]string(nil), values...),
	}, nil
}

// NewEnum constructs Enum{value, values}. T-4: value must be a member
// of values.
func NewEnum(value string, values []string) (UniversalValue, error) {
	for _, v := range values {
		if v == value {
			return UniversalValue{Kind: KindEnum, EnumValue: value, Values: append([]string(nil), values...)}, nil
		}
	}
	return UniversalValue{}, errors.Errorf("enum: value %q is not in values %v", value, values)
}

// NewGeometry constructs Geometry{data, geometry_type}.
func NewGeometry(data json.RawMessage, gt GeometryType) UniversalValue {
	return UniversalValue{Kind: KindGeometry, GeometryData: data, GeometryType: gt}
}

// NewThing constructs Thing{table, id}.
//
// V-2: id must be of an ID-admissible type (Text, Int32, Int64, Uuid,
// Ulid). The caller supplies typeOf since UniversalValue alone does not
// carry width-disambiguated type information for every kind.
func NewThing(table string, id UniversalValue, typeOf func(UniversalValue) UniversalType) (UniversalValue, error) {
	if typeOf != nil && !typeOf(id).IDAdmissible() {
		return UniversalValue{}, errors.Errorf("thing: id of type %v is not id-admissible", typeOf(id))
	}
	idCopy := id
	return UniversalValue{Kind: KindThing, ThingTable: table, ThingID: &idCopy}, nil
}

// NewObject constructs Object(fields).
func NewObject(fields map[string]UniversalValue) UniversalValue {
	m := make(map[string]UniversalValue, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return UniversalValue{Kind: KindObject, Object: m}
}
