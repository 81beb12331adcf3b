package stats

import "context"

// LimitedLister is implemented by fetchers that can stop listing after n ids
// instead of listing everything and truncating.
type LimitedLister interface {
	ListMessagesLimit(ctx context.Context, address string, n int) ([]string, error)
}

// ListLimited lists at most n ids for address, pushing the bound down to f
// when it is a LimitedLister.
func ListLimited(ctx context.Context, f Fetcher, address string, n int) ([]string, error) {
	if ll, ok := f.(LimitedLister); ok {
		return ll.ListMessagesLimit(ctx, address, n)
	}
	ids, err := f.ListMessages(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids, nil
}

// Limit returns a Fetcher that lists at most n ids per address. Fetchers
// list newest messages first, so the most recent n are kept. n <= 0 means
// no limit.
func Limit(f Fetcher, n int) Fetcher {
	if n <= 0 {
		return f
	}
	return limitFetcher{Fetcher: f, n: n}
}

type limitFetcher struct {
	Fetcher
	n int
}

func (l limitFetcher) ListMessages(ctx context.Context, address string) ([]string, error) {
	return ListLimited(ctx, l.Fetcher, address, l.n)
}

func (l limitFetcher) ListMessagesLimit(ctx context.Context, address string, n int) ([]string, error) {
	return ListLimited(ctx, l.Fetcher, address, min(n, l.n))
}
