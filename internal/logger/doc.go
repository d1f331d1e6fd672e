// Package logger provides component-scoped structured logging for smuledl,
// backed by zerolog.
//
// Features:
//   - Multiple log levels (TRACE, DEBUG, INFO, WARN, ERROR)
//   - Component-based filtering
//   - Multiple output formats (text, JSON, color)
//   - Thread-safe operations
//
// Usage:
//
//	log := logger.WithComponent(logger.ComponentRedir)
//	log.Info("redirect resolved", map[string]interface{}{
//		"status": 302,
//	})
//
//	config := logger.DefaultConfig()
//	config.Level = logger.DEBUG
//	config.Format = logger.FormatJSON
//	logger.SetGlobalLogger(logger.New(config))
//
// Components:
//   - ComponentApp: CLI and facade logs
//   - ComponentClient: HTTP session logs
//   - ComponentPage: recording page fetches
//   - ComponentExtract: media field extraction
//   - ComponentRedir: redirect endpoint calls
//   - ComponentProbe: HEAD probes of resolved media
//   - ComponentDownloader: file transfer logs
package logger
