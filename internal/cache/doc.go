// Package cache stores message metadata in a local SQLite database so that
// repeated runs only fetch headers for messages they have not seen before.
//
// Message ids are stable and headers never change, so entries do not expire.
// Message listings are not cached: new mail must always be picked up.
package cache
