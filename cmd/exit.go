package cmd

import (
	"fmt"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// mismatchError signals "verification found mismatches" (exit code 4,
// spec.md §6) - a successful run that simply found the sink
// disagreeing with the generator, not a fatal error in the usual
// sense.
type mismatchError struct {
	report string
}

func (e *mismatchError) Error() string { return e.report }

// exitCodeFor maps a fatal error to spec.md §6's exit codes. Any error
// kind not named there (Constraint, SchemaMismatch, ...) falls back to
// 1, the general fatal-error code.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := err.(*mismatchError); ok {
		return 4
	}
	switch {
	case types.As(err, types.KindConnect):
		return 2
	case types.As(err, types.KindCursorCorrupt):
		return 3
	case types.As(err, types.KindDecode), types.As(err, types.KindEncode):
		return 1
	default:
		log.Error("fatal", zap.Error(err))
		fmt.Println(err)
		return 1
	}
}
