// Package google manages OAuth2 credentials for the Gmail API.
//
// Tokens are stored per named account as JSON files under the user cache
// directory (for example ~/.cache/contactstats/google-work.token). The OAuth
// client itself comes from a credentials JSON file downloaded from the Google
// Cloud console or from the GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET
// environment variables. Only the read-only Gmail scope is requested.
package google
