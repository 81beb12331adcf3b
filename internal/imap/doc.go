// Package imap reads message headers from an IMAP mailbox.
//
// A Fetcher keeps one authenticated connection with the configured mailbox
// selected. Message ids have the form "<uidvalidity>.<uid>" so that ids
// stored in the metadata cache become invalid when the server renumbers
// the mailbox.
package imap
