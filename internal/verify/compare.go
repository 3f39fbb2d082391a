package verify

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// Options relaxes comparison for specific sink limitations (spec.md
// §4.7.1). Both are opt-in workarounds for representational gaps in a
// given sink's query path, not general-purpose slack.
type Options struct {
	// AcceptObjectAsJSONString treats an actual string holding valid
	// JSON as equal to an expected Json/Jsonb/Geometry document, for
	// sinks whose query path can only return JSON documents as text.
	AcceptObjectAsJSONString bool
	// AcceptMissingAsEmptyArray treats a field absent from the actual
	// row as equal to an expected empty Array.
	AcceptMissingAsEmptyArray bool
}

// Result is the outcome of comparing one field's expected and actual
// values (spec.md §4.7.1).
type Result struct {
	Match    bool
	Expected string
	Actual   string
}

func match() Result { return Result{Match: true} }

func mismatch(expected, actual string) Result {
	return Result{Match: false, Expected: expected, Actual: actual}
}

// Compare checks actual, a native value decoded from a sink's query
// response, against expected, the UniversalValue the generator
// produced, using the comparison table of spec.md §4.7.1.
func Compare(expected types.UniversalValue, actual interface{}, opts Options) Result {
	if expected.IsNull() {
		if actual == nil {
			return match()
		}
		return mismatch("null", render(actual))
	}

	switch expected.Kind {
	case types.KindBool:
		a, ok := actual.(bool)
		if !ok {
			return mismatch(fmt.Sprintf("%v", expected.Bool), render(actual))
		}
		if expected.Bool == a {
			return match()
		}
		return mismatch(fmt.Sprintf("%v", expected.Bool), fmt.Sprintf("%v", a))

	case types.KindInt:
		a, ok := asInt64(actual)
		if !ok {
			return mismatch(fmt.Sprintf("%d", expected.Int), render(actual))
		}
		if expected.Int == a {
			return match()
		}
		return mismatch(fmt.Sprintf("%d", expected.Int), fmt.Sprintf("%d", a))

	case types.KindFloat32:
		a, ok := asFloat64(actual)
		if !ok {
			return mismatch(fmt.Sprintf("%v", expected.Float32), render(actual))
		}
		if math.Abs(float64(expected.Float32)-a) < 1e-6 {
			return match()
		}
		return mismatch(fmt.Sprintf("%v", expected.Float32), fmt.Sprintf("%v", a))

	case types.KindFloat64:
		a, ok := asFloat64(actual)
		if !ok {
			return mismatch(fmt.Sprintf("%v", expected.Float64), render(actual))
		}
		if math.Abs(expected.Float64-a) < 1e-10 {
			return match()
		}
		return mismatch(fmt.Sprintf("%v", expected.Float64), fmt.Sprintf("%v", a))

	case types.KindDecimal:
		return compareDecimal(expected, actual)

	case types.KindChar, types.KindVarChar, types.KindText:
		a, ok := actual.(string)
		if !ok {
			return mismatch(expected.Str, render(actual))
		}
		if expected.Str == a {
			return match()
		}
		return mismatch(expected.Str, a)

	case types.KindBlob, types.KindBytes:
		a, ok := actual.([]byte)
		if !ok {
			if s, ok := actual.(string); ok {
				a = []byte(s)
			} else {
				return mismatch(fmt.Sprintf("%x", expected.Bytes), render(actual))
			}
		}
		if string(expected.Bytes) == string(a) {
			return match()
		}
		return mismatch(fmt.Sprintf("%x", expected.Bytes), fmt.Sprintf("%x", a))

	case types.KindUuid:
		return compareUUID(expected, actual)

	case types.KindDate:
		return compareExactDay(expected.Time, actual)

	case types.KindTime:
		return compareTimeOfDay(expected.Time, actual)

	case types.KindLocalDT, types.KindLocalDTN, types.KindZonedDT:
		return compareDateTime(expected.Time, actual)

	case types.KindTimeTz:
		a, ok := actual.(string)
		if !ok {
			return mismatch(expected.TimeTzStr, render(actual))
		}
		if expected.TimeTzStr == a {
			return match()
		}
		return mismatch(expected.TimeTzStr, a)

	case types.KindDuration:
		return compareDuration(expected, actual)

	case types.KindArray:
		return compareArray(expected, actual, opts)

	case types.KindSet:
		return compareSet(expected, actual)

	case types.KindEnum:
		a, ok := actual.(string)
		if !ok {
			return mismatch(expected.EnumValue, render(actual))
		}
		if expected.EnumValue == a {
			return match()
		}
		return mismatch(expected.EnumValue, a)

	case types.KindJson, types.KindJsonb:
		return compareJSON(expected.JSONDoc, actual, opts)

	case types.KindGeometry:
		return compareJSON(expected.GeometryData, actual, opts)

	case types.KindThing:
		a, ok := actual.(string)
		if !ok {
			return mismatch(fmt.Sprintf("%s:%v", expected.ThingTable, expected.ThingID), render(actual))
		}
		want := fmt.Sprintf("%s:%s", expected.ThingTable, renderID(expected.ThingID))
		if want == a {
			return match()
		}
		return mismatch(want, a)

	default:
		return mismatch(render(expected), render(actual))
	}
}

func renderID(id *types.UniversalValue) string {
	if id == nil {
		return ""
	}
	return render(*id)
}

func render(v interface{}) string {
	return fmt.Sprintf("%+v", v)
}

func asInt64(actual interface{}) (int64, bool) {
	switch a := actual.(type) {
	case int64:
		return a, true
	case int:
		return int64(a), true
	case int32:
		return int64(a), true
	case int16:
		return int64(a), true
	case int8:
		return int64(a), true
	case uint64:
		return int64(a), true
	case uint32:
		return int64(a), true
	case float64:
		return int64(a), true
	case float32:
		return int64(a), true
	case json.Number:
		n, err := a.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func asFloat64(actual interface{}) (float64, bool) {
	switch a := actual.(type) {
	case float64:
		return a, true
	case float32:
		return float64(a), true
	case int64:
		return float64(a), true
	case int:
		return float64(a), true
	case json.Number:
		f, err := a.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func compareDecimal(expected types.UniversalValue, actual interface{}) Result {
	ev, err := parseDecimalString(expected.DecimalValue)
	if err != nil {
		return mismatch(expected.DecimalValue, render(actual))
	}
	var av float64
	switch a := actual.(type) {
	case string:
		v, err := parseDecimalString(a)
		if err != nil {
			return mismatch(expected.DecimalValue, a)
		}
		av = v
	default:
		v, ok := asFloat64(actual)
		if !ok {
			return mismatch(expected.DecimalValue, render(actual))
		}
		av = v
	}
	if math.Abs(ev-av) < 0.001 {
		return match()
	}
	return mismatch(expected.DecimalValue, render(actual))
}

func parseDecimalString(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

func compareUUID(expected types.UniversalValue, actual interface{}) Result {
	want := expected.UUID.String()
	switch a := actual.(type) {
	case string:
		if a == want {
			return match()
		}
		if u, err := uuid.Parse(a); err == nil && u == expected.UUID {
			return match()
		}
		return mismatch(want, a)
	case uuid.UUID:
		if a == expected.UUID {
			return match()
		}
		return mismatch(want, a.String())
	case []byte:
		if len(a) == 16 {
			var u uuid.UUID
			copy(u[:], a)
			if u == expected.UUID {
				return match()
			}
			return mismatch(want, u.String())
		}
		return mismatch(want, render(actual))
	default:
		return mismatch(want, render(actual))
	}
}

func compareExactDay(expected time.Time, actual interface{}) Result {
	want := expected.Format("2006-01-02")
	switch a := actual.(type) {
	case time.Time:
		if a.Format("2006-01-02") == want {
			return match()
		}
		return mismatch(want, a.Format("2006-01-02"))
	case string:
		if t, err := time.Parse(time.RFC3339, a); err == nil {
			if t.Format("2006-01-02") == want {
				return match()
			}
			return mismatch(want, t.Format("2006-01-02"))
		}
		if a == want {
			return match()
		}
		return mismatch(want, a)
	default:
		return mismatch(want, render(actual))
	}
}

func compareTimeOfDay(expected time.Time, actual interface{}) Result {
	want := expected.Format("15:04:05")
	switch a := actual.(type) {
	case time.Time:
		if a.Format("15:04:05") == want {
			return match()
		}
		return mismatch(want, a.Format("15:04:05"))
	case string:
		if t, err := time.Parse("15:04:05.999999999", a); err == nil && t.Format("15:04:05") == want {
			return match()
		}
		if a == want {
			return match()
		}
		return mismatch(want, a)
	default:
		return mismatch(want, render(actual))
	}
}

func compareDateTime(expected time.Time, actual interface{}) Result {
	want := expected.UTC().Format(time.RFC3339Nano)
	switch a := actual.(type) {
	case time.Time:
		if a.UTC().Equal(expected.UTC()) {
			return match()
		}
		return mismatch(want, a.UTC().Format(time.RFC3339Nano))
	case string:
		t, err := time.Parse(time.RFC3339Nano, a)
		if err != nil {
			t, err = time.Parse(time.RFC3339, a)
		}
		if err == nil && t.UTC().Equal(expected.UTC()) {
			return match()
		}
		if err == nil {
			return mismatch(want, t.UTC().Format(time.RFC3339Nano))
		}
		return mismatch(want, a)
	default:
		return mismatch(want, render(actual))
	}
}

func compareDuration(expected types.UniversalValue, actual interface{}) Result {
	want := fmt.Sprintf("%ds%dns", expected.DurationSecs, expected.DurationNanos)
	switch a := actual.(type) {
	case time.Duration:
		if a.Seconds() == float64(expected.DurationSecs) && int32(a.Nanoseconds()%1e9) == expected.DurationNanos {
			return match()
		}
		return mismatch(want, a.String())
	case map[string]interface{}:
		secs, _ := asInt64(a["secs"])
		nanos, _ := asInt64(a["nanos"])
		if secs == expected.DurationSecs && int32(nanos) == expected.DurationNanos {
			return match()
		}
		return mismatch(want, render(actual))
	case int64:
		if a == expected.DurationSecs && expected.DurationNanos == 0 {
			return match()
		}
		return mismatch(want, render(actual))
	default:
		return mismatch(want, render(actual))
	}
}

func compareArray(expected types.UniversalValue, actual interface{}, opts Options) Result {
	a, ok := actual.([]interface{})
	if !ok {
		if actual == nil && opts.AcceptMissingAsEmptyArray && len(expected.Elements) == 0 {
			return match()
		}
		return mismatch(fmt.Sprintf("array[%d]", len(expected.Elements)), render(actual))
	}
	if len(a) != len(expected.Elements) {
		return mismatch(fmt.Sprintf("array[%d]", len(expected.Elements)), fmt.Sprintf("array[%d]", len(a)))
	}
	for i, ev := range expected.Elements {
		if res := Compare(ev, a[i], opts); !res.Match {
			return mismatch(
				fmt.Sprintf("array[%d]=%s", i, res.Expected),
				fmt.Sprintf("array[%d]=%s", i, res.Actual),
			)
		}
	}
	return match()
}

func compareSet(expected types.UniversalValue, actual interface{}) Result {
	a, ok := actual.([]interface{})
	if !ok {
		return mismatch(fmt.Sprintf("%v", expected.SetValues), render(actual))
	}
	got := make([]string, 0, len(a))
	for _, v := range a {
		s, ok := v.(string)
		if !ok {
			return mismatch(fmt.Sprintf("%v", expected.SetValues), render(actual))
		}
		got = append(got, s)
	}
	want := append([]string(nil), expected.SetValues...)
	sort.Strings(want)
	sort.Strings(got)
	if len(want) != len(got) {
		return mismatch(fmt.Sprintf("%v", expected.SetValues), fmt.Sprintf("%v", got))
	}
	for i := range want {
		if want[i] != got[i] {
			return mismatch(fmt.Sprintf("%v", expected.SetValues), fmt.Sprintf("%v", got))
		}
	}
	return match()
}

func compareJSON(expectedDoc []byte, actual interface{}, opts Options) Result {
	var expectedVal interface{}
	if err := json.Unmarshal(expectedDoc, &expectedVal); err != nil {
		return mismatch(string(expectedDoc), render(actual))
	}

	var actualVal interface{}
	switch a := actual.(type) {
	case string:
		if !opts.AcceptObjectAsJSONString {
			return mismatch(string(expectedDoc), a)
		}
		if err := json.Unmarshal([]byte(a), &actualVal); err != nil {
			return mismatch(string(expectedDoc), a)
		}
	case nil:
		return mismatch(string(expectedDoc), "<missing>")
	default:
		actualVal = a
	}

	if jsonValuesEqual(expectedVal, actualVal) {
		return match()
	}
	actualJSON, _ := json.Marshal(actualVal)
	return mismatch(string(expectedDoc), string(actualJSON))
}

// jsonValuesEqual compares decoded JSON trees: numbers within a small
// tolerance, objects key-order-agnostic, arrays element-order-strict.
func jsonValuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := asFloat64(b)
		return ok && math.Abs(av-bv) < 1e-9
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !jsonValuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, present := bv[k]
			if !present || !jsonValuesEqual(v, ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
