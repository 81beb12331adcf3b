// Package stats folds message metadata into per-address contact statistics.
//
// An Aggregator asks a Fetcher for the messages exchanged with each
// counterparty address and folds their Date, From and To headers into an
// AddressStats value: how many messages the address sent, how many it
// received, how many were exchanged in total and the dates of the first and
// last message. Results keep the order in which addresses were queried.
//
// Summarize turns a Result into display records ordered by total message
// count, and WriteSummary renders them as plain text.
//
// Sent and received are decided by a case-sensitive substring test on the
// raw header value, so "notalice@x.com" counts as a match for "alice@x.com".
package stats
