// Package logger provides a structured logging interface for the
// exporter.
//
// It wraps the zerolog library to provide a clean API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output
// - Optional file output alongside the console
// - Global logger instance for easy access
//
// Basic Usage:
//
//	err := logger.Initialize(logger.Options{Level: "info", File: "export.log"})
//
//	log := logger.GetLogger()
//	log.WithField("channel", "C123").Info("export started")
//	log.InfoWithFields("page collected", map[string]interface{}{
//	    "page":     3,
//	    "received": 1000,
//	})
package logger
