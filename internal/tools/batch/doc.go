// Package batch parses list-valued tool arguments and reports per-item
// outcomes of tools that work on several addresses at once.
package batch
