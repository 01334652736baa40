// Package log provides the catalog's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records are routed through a
// log/slog handler into a Formatter (text or JSON) and one or more Outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("writer"), log.Str("base", "http://localhost/catalog/"))
//	l.Info("commit saved", log.Int("items", 12))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, format,
// output). Loggers are always passed explicitly; there is no global default.
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by Pebble and
// net/http) through a Logger at info level.
package log
