// Package csv implements the CSV decoder of spec.md §4.2.3:
// schema-guided when a UniversalType is supplied, otherwise inferred
// in priority order Int64, Float64, Bool, Text.
package csv

import (
	"strconv"

	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Decode parses a single CSV cell against an optional declared type.
// A nil ut triggers inference. Empty-string cells never become null
// (spec.md §4.2.3: "no implicit nulls from empty strings").
func Decode(cell string, ut *types.UniversalType) (types.UniversalValue, error) {
	if ut == nil {
		return infer(cell), nil
	}
	return decodeTyped(cell, *ut)
}

func infer(cell string) types.UniversalValue {
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		v, _ := types.NewInt(i, 64)
		return v
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return types.NewFloat64(f)
	}
	if b, err := strconv.ParseBool(cell); err == nil {
		return types.NewBool(b)
	}
	return types.NewText(cell)
}

func decodeTyped(cell string, ut types.UniversalType) (types.UniversalValue, error) {
	switch ut.Tag {
	case types.TagBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "csv: parse bool")
		}
		return types.NewBool(b), nil
	case types.TagInt8, types.TagInt16, types.TagInt32, types.TagInt64:
		width := map[types.Tag]int{
			types.TagInt8: 8, types.TagInt16: 16, types.TagInt32: 32, types.TagInt64: 64,
		}[ut.Tag]
		i, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "csv: parse int")
		}
		return types.NewInt(i, width)
	case types.TagFloat32:
		f, err := strconv.ParseFloat(cell, 32)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "csv: parse float32")
		}
		return types.NewFloat32(float32(f)), nil
	case types.TagFloat64:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return types.UniversalValue{}, errors.Annotate(err, "csv: parse float64")
		}
		return types.NewFloat64(f), nil
	case types.TagDecimal:
		return types.NewDecimal(cell, ut.Precision, ut.Scale)
	case types.TagText:
		return types.NewText(cell), nil
	case types.TagChar:
		return types.NewChar(cell, ut.Length), nil
	case types.TagVarChar:
		return types.NewVarChar(cell, ut.Length), nil
	default:
		return types.UniversalValue{}, errors.Errorf("csv: unsupported target type %v in cell mode", ut.Tag)
	}
}
