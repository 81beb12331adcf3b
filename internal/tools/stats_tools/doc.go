// Package stats_tools registers the contact_stats MCP tool, which counts the
// emails exchanged with a list of addresses and reports the first and last
// contact date of each.
package stats_tools
