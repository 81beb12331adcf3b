package server

import (
	"context"
	"errors"

	"github.com/teemow/contactstats/internal/stats"
)

type fakeFetcher struct {
	source   string
	closed   bool
	closeErr error
}

func (f *fakeFetcher) ListMessages(context.Context, string) ([]string, error) { return nil, nil }

func (f *fakeFetcher) GetMetadata(_ context.Context, id string) (stats.MessageMetadata, error) {
	return stats.MessageMetadata{}, errors.New("not found: " + id)
}

func (f *fakeFetcher) Source() string { return f.source }

func (f *fakeFetcher) Close() error {
	f.closed = true
	return f.closeErr
}
