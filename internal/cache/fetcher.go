package cache

import (
	"context"
	"errors"

	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/stats"
)

// Fetcher decorates a stats.Fetcher with a read-through metadata cache.
type Fetcher struct {
	next    stats.Fetcher
	store   *Store
	source  string
	logger  logging.Logger
	metrics *instrumentation.Metrics
}

// NewFetcher wraps next. Source separates entries of different mailboxes,
// e.g. "gmail:work" or "imap:user@host/INBOX".
func NewFetcher(next stats.Fetcher, store *Store, source string, logger logging.Logger, metrics *instrumentation.Metrics) *Fetcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fetcher{next: next, store: store, source: source, logger: logger, metrics: metrics}
}

// ListMessages is never cached.
func (f *Fetcher) ListMessages(ctx context.Context, address string) ([]string, error) {
	return f.next.ListMessages(ctx, address)
}

// ListMessagesLimit passes the bound to the wrapped fetcher.
func (f *Fetcher) ListMessagesLimit(ctx context.Context, address string, n int) ([]string, error) {
	return stats.ListLimited(ctx, f.next, address, n)
}

// GetMetadata returns cached metadata, fetching and storing it on a miss.
// Cache failures are logged and fall back to the wrapped fetcher.
func (f *Fetcher) GetMetadata(ctx context.Context, id string) (stats.MessageMetadata, error) {
	msg, err := f.store.Get(ctx, f.source, id)
	if err == nil {
		f.metrics.RecordCacheLookup(ctx, instrumentation.CacheHit)
		return msg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		f.logger.Warn("cache read failed", logging.MessageID(id), logging.Err(err))
	}
	f.metrics.RecordCacheLookup(ctx, instrumentation.CacheMiss)

	msg, err = f.next.GetMetadata(ctx, id)
	if err != nil {
		return stats.MessageMetadata{}, err
	}

	if err := f.store.Put(ctx, f.source, msg); err != nil {
		f.logger.Warn("cache write failed", logging.MessageID(id), logging.Err(err))
	}
	return msg, nil
}
