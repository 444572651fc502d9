// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Control-plane components take a *Logger and derive named sub-loggers
// with Component(), so supervisor, control server, and reactor output can
// be filtered independently.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	sup := logger.Component("supervisor")
//	sup.Info("Helper ready", zap.String("socket", path))
package logging
