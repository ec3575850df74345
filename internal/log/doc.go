// Package log builds mailcrawl's loggers on log/slog.
//
// SecureHandler wraps any slog.Handler and masks secrets before they are
// written: cookies and authorization headers configured per site, tokens in
// URL query strings, and passwords embedded in URLs. Masking applies at
// every level, so verbose output is as safe to share as the default.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("site config", "cookie", "session=abc") // cookie=***REDACTED***
package log
