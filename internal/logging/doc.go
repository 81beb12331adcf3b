// Package logging provides structured logging utilities for contactstats.
//
// All logging goes through the standard library's slog package. This package
// adds consistent attribute keys, a small Logger interface that the
// aggregation code depends on, and helpers that keep counterparty addresses
// out of log output.
//
// # Usage Patterns
//
// Create the process logger once and derive per-operation loggers from it:
//
//	logger := logging.New(os.Stderr, logging.Options{Debug: debug})
//	logger = logging.WithOperation(logger, "stats.aggregate")
//	logger.Info("address processed",
//	    logging.AddressHash(address),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Counterparty addresses are hashed before they reach log attributes
//   - OAuth tokens and IMAP passwords are never logged directly
package logging
