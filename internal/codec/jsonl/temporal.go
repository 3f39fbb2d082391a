package jsonl

import (
	"strconv"
	"time"

	"github.com/pingcap/errors"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

func formatDecimal(f float64, scale uint8) string {
	return strconv.FormatFloat(f, 'f', int(scale), 64)
}

// decodeTemporalRFC3339 parses an RFC3339-or-date-only string into the
// target temporal UniversalType.
func decodeTemporalRFC3339(s string, ut types.UniversalType) (types.UniversalValue, error) {
	layouts := []string{time.RFC3339Nano, "2006-01-02", "15:04:05.999999999"}
	var t time.Time
	var err error
	for _, l := range layouts {
		t, err = time.Parse(l, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return types.UniversalValue{}, errors.Annotatef(err, "jsonl: unparseable temporal %q", s)
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
		return types.UniversalValue{}, errors.Errorf("jsonl: unsupported temporal tag %v", ut.Tag)
	}
}
