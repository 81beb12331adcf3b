package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/contactstats/internal/stats"
)

// Query returns the Gmail search for messages from or to address.
func Query(address string) string {
	return fmt.Sprintf("from:%s OR to:%s", address, address)
}

// Fetcher adapts a Client to stats.Fetcher.
type Fetcher struct {
	client     *Client
	maxResults int64
}

// NewFetcher returns a Fetcher listing at most maxResults messages per address.
func NewFetcher(client *Client, maxResults int64) *Fetcher {
	return &Fetcher{client: client, maxResults: maxResults}
}

// Source names the cache partition of a Gmail account.
func Source(account string) string {
	return "gmail:" + account
}

// Source identifies the mailbox for cache entries.
func (f *Fetcher) Source() string {
	return Source(f.client.Account())
}

func (f *Fetcher) ListMessages(ctx context.Context, address string) ([]string, error) {
	return f.client.ListMessages(ctx, Query(address), f.maxResults)
}

// ListMessagesLimit lists at most min(n, maxResults) ids, so a small n stops
// paging early.
func (f *Fetcher) ListMessagesLimit(ctx context.Context, address string, n int) ([]string, error) {
	return f.client.ListMessages(ctx, Query(address), min(int64(n), f.maxResults))
}

func (f *Fetcher) GetMetadata(ctx context.Context, id string) (stats.MessageMetadata, error) {
	msg, err := f.client.GetMessageMetadata(ctx, id, stats.MetadataHeaders...)
	if err != nil {
		return stats.MessageMetadata{}, err
	}
	md := metadataFromMessage(msg)
	if md.ID == "" {
		md.ID = id
	}
	return md, nil
}

func metadataFromMessage(m *gmail.Message) stats.MessageMetadata {
	md := stats.MessageMetadata{Headers: map[string]string{}}
	if m == nil {
		return md
	}
	md.ID = m.Id
	if m.Payload == nil {
		return md
	}
	for _, h := range m.Payload.Headers {
		md.SetHeader(h.Name, h.Value)
	}
	return md
}
