// Package logging builds the zap logger used for every
// ambient log line the CLI and runtime emit, per spec §7's error-handling
// design: every aborting error logged once at "error" with a taxonomy
// category field, guard-level non-fatal events at "warn".
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing structured JSON (zap's production
// config) when jsonOutput is set, or human-readable console output (zap's
// development config) otherwise. debug lowers the level to Debug and
// enables stack traces; it does not change the output format.
func New(jsonOutput bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	if !jsonOutput {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = !debug

	return cfg.Build()
}

// Category is a stable error taxonomy tag attached to every logged
// aborting error, per spec §7.
type Category string

const (
	CategoryValidation  Category = "validation"
	CategoryGuard       Category = "guard"
	CategoryIO          Category = "io"
	CategorySignature   Category = "signature"
	CategoryAmbiguous   Category = "ambiguous-match"
)

// LogFatal logs err exactly once at error level with its taxonomy
// category as a structured field.
func LogFatal(log *zap.Logger, category Category, err error) {
	log.Error("aborting", zap.String("category", string(category)), zap.Error(err))
}

// LogGuardWarning logs a non-fatal guard event (e.g. a single rule
// budget exhausting) at warn level.
func LogGuardWarning(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}
