// Package export writes contact statistics as CSV.
package export
