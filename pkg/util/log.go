// Copyright 2020 PingCAP, Inc.
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

package util

import (
	"context"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the process-wide logger.
type Config struct {
	// Level is one of debug/info/warning/error/fatal.
	Level string
	// File is the log output path; empty means stderr.
	File string
}

// Adjust fills in defaults for unset fields.
func (c *Config) Adjust() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// InitLogger installs cfg as the process-wide logger, backed by
// pingcap/log (itself backed by zap).
func InitLogger(cfg *Config) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return errors.Annotatef(err, "invalid log level %q", cfg.Level)
	}

	logCfg := &log.Config{
		Level: cfg.Level,
		File:  log.FileLogConfig{Filename: cfg.File},
	}
	logger, props, err := log.InitLogger(logCfg)
	if err != nil {
		return errors.Annotate(err, "init logger")
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

// ZapErrorFilter returns a zap.Error field for err, unless err matches
// (via errors.Cause) one of the filters, in which case it returns a
// zap.Error(nil) field - used to silence expected errors such as
// context.Canceled from noisy logs.
func ZapErrorFilter(err error, filters ...error) zap.Field {
	cause := errors.Cause(err)
	for _, f := range filters {
		if cause == f {
			return zap.Error(nil)
		}
	}
	return zap.Error(err)
}

// LogWithDeadline logs a debug message noting how long remains before
// ctx's deadline, if it has one - used by CDC polling loops (spec.md
// §5 "Timeouts") to make deadline handling observable.
func LogWithDeadline(ctx context.Context, msg string) {
	deadline, ok := ctx.Deadline()
	if !ok {
		log.Debug(msg)
		return
	}
	log.Debug(msg, zap.Time("deadline", deadline))
}
