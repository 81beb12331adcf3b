// Package gmail reads message metadata through the Gmail API.
//
// A Client lists message ids for a search query and fetches the metadata
// headers of single messages. Fetcher adapts a Client to stats.Fetcher by
// searching "from:<address> OR to:<address>" for every counterparty.
//
// Authentication:
// Clients are built from the per-account OAuth token managed by the google
// package (~/.cache/contactstats/google-<account>.token). Only the
// gmail.readonly scope is used.
//
// Example usage:
//
//	client, err := gmail.NewClientForAccount(ctx, "default", credentialsFile)
//	if err != nil {
//	    return err
//	}
//	ids, err := client.ListMessages(ctx, gmail.Query("alice@example.com"), 500)
package gmail
