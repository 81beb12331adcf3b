// Package cmd implements the command-line interface for contactstats.
//
// This package provides the following commands:
//   - stats: Count the emails exchanged with each address and save a CSV report
//   - auth: Authorize a Google account or store an IMAP password
//   - serve: Start the MCP server to provide the statistics tool to AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The stats command is the default command when no subcommand is specified,
// so "contactstats alice@example.com" is the same as
// "contactstats stats alice@example.com".
package cmd
