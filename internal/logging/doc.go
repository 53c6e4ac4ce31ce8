// Package logging builds the slog loggers used across litpipe and defines
// the standardized structured field vocabulary.
//
// Loggers are constructed from config (console or JSON output, optional log
// file under the workspace log directory). Context helpers stamp run, stage,
// and item identifiers so stage code logs consistently without threading
// attribute lists by hand.
package logging
