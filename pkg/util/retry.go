package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// RetryTransient retries op up to maxRetries times with exponential
// backoff starting at 1s, but only while the returned error is classified Transient
// (spec.md §7); any other error, or a non-transient final attempt, is
// returned to the caller immediately.
func RetryTransient(ctx context.Context, maxRetries uint64, op func() error) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = time.Second
	retryCfg := backoff.WithMaxRetries(
		backoff.WithContext(expBackoff, ctx),
		maxRetries,
	)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !types.IsTransient(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Warn("retrying after transient error", zap.Error(err))
		}
		return err
	}, retryCfg)
}
