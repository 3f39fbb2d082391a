// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package types implements the universal type model (UniversalType /
// UniversalValue) that every source codec decodes into and every sink
// codec encodes from.
package types

import (
	"github.com/pingcap/errors"
)

// Tag identifies a UniversalType variant.
type Tag string

// The closed set of UniversalType tags.
const (
	TagBool              Tag = "bool"
	TagInt8               Tag = "int8"
	TagInt16              Tag = "int16"
	TagInt32              Tag = "int32"
	TagInt64              Tag = "int64"
	TagFloat32            Tag = "float32"
	TagFloat64            Tag = "float64"
	TagDecimal            Tag = "decimal"
	TagChar               Tag = "char"
	TagVarChar            Tag = "var_char"
	TagText               Tag = "text"
	TagBlob               Tag = "blob"
	TagBytes              Tag = "bytes"
	TagDate               Tag = "date"
	TagTime               Tag = "time"
	TagLocalDateTime      Tag = "local_date_time"
	TagLocalDateTimeNano  Tag = "local_date_time_nano"
	TagZonedDateTime      Tag = "zoned_date_time"
	TagTimeTz             Tag = "time_tz"
	TagDuration           Tag = "duration"
	TagUuid               Tag = "uuid"
	TagUlid               Tag = "ulid"
	TagJson               Tag = "json"
	TagJsonb              Tag = "jsonb"
	TagArray              Tag = "array"
	TagSet                Tag = "set"
	TagEnum               Tag = "enum"
	TagGeometry           Tag = "geometry"
	TagThing              Tag = "thing"
)

// GeometryType is the closed set of geometry sub-kinds (spec.md §3.1).
type GeometryType string

const (
	GeometryPoint              GeometryType = "Point"
	GeometryLineString         GeometryType = "LineString"
	GeometryPolygon            GeometryType = "Polygon"
	GeometryMultiPoint         GeometryType = "MultiPoint"
	GeometryMultiLineString    GeometryType = "MultiLineString"
	GeometryMultiPolygon       GeometryType = "MultiPolygon"
	GeometryGeometryCollection GeometryType = "GeometryCollection"
)

// UniversalType is the closed sum over scalar, temporal, binary,
// container, and geometric type tags (spec.md §3.1). The zero value is
// not a valid UniversalType; always construct through the helpers
// below or through ParseType.
type UniversalType struct {
	Tag Tag

	// Decimal{precision, scale}
	Precision uint8
	Scale     uint8

	// Char{length} / VarChar{length}
	Length uint16

	// Array{element_type}
	Elem *UniversalType

	// Set{values} / Enum{values}
	Values []string

	// Geometry{geometry_type}
	GeometryType GeometryType
}

// Bool, Int8, ..., Text, Blob, Bytes, Date, Time, ... are the
// parameterless type constructors.
var (
	Bool              = UniversalType{Tag: TagBool}
	Int8              = UniversalType{Tag: TagInt8}
	Int16             = UniversalType{Tag: TagInt16}
	Int32             = UniversalType{Tag: TagInt32}
	Int64             = UniversalType{Tag: TagInt64}
	Float32           = UniversalType{Tag: TagFloat32}
	Float64           = UniversalType{Tag: TagFloat64}
	Text              = UniversalType{Tag: TagText}
	Blob              = UniversalType{Tag: TagBlob}
	Bytes             = UniversalType{Tag: TagBytes}
	Date              = UniversalType{Tag: TagDate}
	Time              = UniversalType{Tag: TagTime}
	LocalDateTime     = UniversalType{Tag: TagLocalDateTime}
	LocalDateTimeNano = UniversalType{Tag: TagLocalDateTimeNano}
	ZonedDateTime     = UniversalType{Tag: TagZonedDateTime}
	TimeTz            = UniversalType{Tag: TagTimeTz}
	Duration          = UniversalType{Tag: TagDuration}
	Uuid              = UniversalType{Tag: TagUuid}
	Ulid              = UniversalType{Tag: TagUlid}
	Json              = UniversalType{Tag: TagJson}
	Jsonb             = UniversalType{Tag: TagJsonb}
	Thing             = UniversalType{Tag: TagThing}
)

// Decimal constructs a Decimal{precision, scale} type.
//
// T-1: precision must be >= scale. Construction does not validate any
// value string against precision/scale - that is a codec-level check
// (spec.md §4.1).
func Decimal(precision, scale uint8) (UniversalType, error) {
	if precision < scale {
		return UniversalType{}, errors.Errorf("decimal: precision %d must be >= scale %d", precision, scale)
	}
	return UniversalType{Tag: TagDecimal, Precision: precision, Scale: scale}, nil
}

// Char constructs a Char{length} type. T-2: length must be >= 1.
func Char(length uint16) (UniversalType, error) {
	if length < 1 {
		return UniversalType{}, errors.New("char: length must be >= 1")
	}
	return UniversalType{Tag: TagChar, Length: length}, nil
}

// VarChar constructs a VarChar{length} type. T-2: length must be >= 1.
func VarChar(length uint16) (UniversalType, error) {
	if length < 1 {
		return UniversalType{}, errors.New("var_char: length must be >= 1")
	}
	return UniversalType{Tag: TagVarChar, Length: length}, nil
}

// Array constructs an Array{element_type} type. Recursive by
// construction (T-3 is enforced at value-construction time, not here).
func Array(elem UniversalType) UniversalType {
	e := elem
	return UniversalType{Tag: TagArray, Elem: &e}
}

// Set constructs a Set{values} type (MySQL-style enumerated set).
func Set(values []string) UniversalType {
	return UniversalType{Tag: TagSet, Values: append([]string(nil), values...)}
}

// Enum constructs an Enum{values} type.
func Enum(values []string) UniversalType {
	return UniversalType{Tag: TagEnum, Values: append([]string(nil), values...)}
}

// Geometry constructs a Geometry{geometry_type} type.
func Geometry(gt GeometryType) (UniversalType, error) {
	switch gt {
	case GeometryPoint, GeometryLineString, GeometryPolygon, GeometryMultiPoint,
		GeometryMultiLineString, GeometryMultiPolygon, GeometryGeometryCollection:
		return UniversalType{Tag: TagGeometry, GeometryType: gt}, nil
	default:
		return UniversalType{}, errors.Errorf("geometry: unknown geometry type %q", gt)
	}
}

// IsNumeric reports whether the type is a bool-excluded numeric kind:
// any sized integer, float, or decimal.
func (t UniversalType) IsNumeric() bool {
	switch t.Tag {
	case TagInt8, TagInt16, TagInt32, TagInt64, TagFloat32, TagFloat64, TagDecimal:
		return true
	default:
		return false
	}
}

// IsString reports whether the type stores textual content.
func (t UniversalType) IsString() bool {
	switch t.Tag {
	case TagChar, TagVarChar, TagText, TagTimeTz:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether the type carries a point or span in time.
func (t UniversalType) IsTemporal() bool {
	switch t.Tag {
	case TagDate, TagTime, TagLocalDateTime, TagLocalDateTimeNano,
		TagZonedDateTime, TagTimeTz, TagDuration:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the type stores an opaque byte sequence.
func (t UniversalType) IsBinary() bool {
	switch t.Tag {
	case TagBlob, TagBytes:
		return true
	default:
		return false
	}
}

// IsContainer reports whether the type is Array, Set, or Enum.
func (t UniversalType) IsContainer() bool {
	switch t.Tag {
	case TagArray, TagSet, TagEnum:
		return true
	default:
		return false
	}
}

// Equal reports structural equality between two UniversalTypes.
func (t UniversalType) Equal(o UniversalType) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case TagDecimal:
		return t.Precision == o.Precision && t.Scale == o.Scale
	case TagChar, TagVarChar:
		return t.Length == o.Length
	case TagArray:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case TagSet, TagEnum:
		return stringSliceEqual(t.Values, o.Values)
	case TagGeometry:
		return t.GeometryType == o.GeometryType
	default:
		return true
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IDAdmissible reports whether a value of this type may be used as a
// Thing's id (spec.md §3.2 V-2): Text, Int32, Int64, Uuid, Ulid.
func (t UniversalType) IDAdmissible() bool {
	switch t.Tag {
	case TagText, TagInt32, TagInt64, TagUuid, TagUlid:
		return true
	default:
		return false
	}
}
