package stats

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
)

// Fetcher lists and retrieves message metadata from a mail provider.
type Fetcher interface {
	// ListMessages returns the ids of messages sent from or to address.
	ListMessages(ctx context.Context, address string) ([]string, error)

	// GetMetadata returns the Date, From and To headers of one message.
	GetMetadata(ctx context.Context, id string) (MessageMetadata, error)
}

// Reporter receives progress notifications while addresses are processed.
type Reporter interface {
	Searching(address string)
	Found(address string, count int)
}

// ConsoleReporter prints progress lines to W.
type ConsoleReporter struct {
	W io.Writer
}

func (r ConsoleReporter) Searching(address string) {
	fmt.Fprintf(r.W, "Searching for emails to/from: %s\n", address)
}

func (r ConsoleReporter) Found(address string, count int) {
	fmt.Fprintf(r.W, "Found %d emails for %s. Processing now...\n", count, address)
}

type nopReporter struct{}

func (nopReporter) Searching(string)   {}
func (nopReporter) Found(string, int) {}

// Options configures an Aggregator.
type Options struct {
	// IncludeEmpty keeps addresses without any message in the result.
	IncludeEmpty bool

	// Strict turns header errors into per-address failures.
	Strict bool

	// KeepGoing continues with the remaining addresses after a failure.
	KeepGoing bool

	// Provider labels metrics, e.g. "gmail" or "imap".
	Provider string

	Logger   logging.Logger
	Reporter Reporter
	Metrics  *instrumentation.Metrics
}

// DefaultOptions returns the options used by the command line.
func DefaultOptions() Options {
	return Options{IncludeEmpty: true}
}

// Aggregator computes contact statistics from a Fetcher.
type Aggregator struct {
	fetcher Fetcher
	opts    Options
}

// NewAggregator returns an Aggregator reading from fetcher.
func NewAggregator(fetcher Fetcher, opts Options) *Aggregator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	return &Aggregator{fetcher: fetcher, opts: opts}
}

// Aggregate processes addresses in order and returns their statistics.
//
// Duplicate addresses are processed once. A failing address has no entry in
// the result; the addresses committed before it are always returned. Unless
// KeepGoing is set, processing stops at the first failure.
func (a *Aggregator) Aggregate(ctx context.Context, addresses []string) (*Result, error) {
	addresses = NormalizeAddresses(addresses)
	if len(addresses) == 0 {
		return NewResult(), ErrNoAddresses
	}

	result := NewResult()
	var errs []error

	for _, address := range addresses {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		stats, err := a.aggregateAddress(ctx, address)
		if err != nil {
			a.opts.Metrics.RecordAddressProcessed(ctx, address, instrumentation.StatusError)
			a.opts.Logger.Warn("address failed",
				logging.AddressHash(address),
				logging.Err(err))
			errs = append(errs, err)
			if !a.opts.KeepGoing {
				break
			}
			continue
		}

		if stats.Total == 0 {
			a.opts.Metrics.RecordAddressProcessed(ctx, address, instrumentation.StatusEmpty)
			if !a.opts.IncludeEmpty {
				continue
			}
		} else {
			a.opts.Metrics.RecordAddressProcessed(ctx, address, instrumentation.StatusSuccess)
		}
		result.Set(address, stats)
	}

	return result, joinErrors(errs)
}

func (a *Aggregator) aggregateAddress(ctx context.Context, address string) (AddressStats, error) {
	ctx, span := instrumentation.StartSpan(ctx, "stats.aggregate_address",
		attribute.String(instrumentation.SpanAttrAddressHash, logging.AnonymizeEmail(address)))
	defer span.End()

	a.opts.Reporter.Searching(address)

	ids, err := a.fetcher.ListMessages(ctx, address)
	if err != nil {
		err = &FetchError{Address: address, Err: err}
		instrumentation.SetSpanError(span, err)
		return AddressStats{}, err
	}

	a.opts.Reporter.Found(address, len(ids))
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrCount, len(ids)))

	var stats AddressStats
	for _, id := range ids {
		msg, err := a.fetcher.GetMetadata(ctx, id)
		if err != nil {
			err = &FetchError{Address: address, MessageID: id, Err: err}
			instrumentation.SetSpanError(span, err)
			return AddressStats{}, err
		}

		if err := stats.Observe(address, msg); err != nil {
			if a.opts.Strict {
				err = &AddressError{Address: address, Err: err}
				instrumentation.SetSpanError(span, err)
				return AddressStats{}, err
			}
			a.recordHeaderErrors(ctx, err)
		}
		a.opts.Metrics.RecordMessageProcessed(ctx, a.opts.Provider)
	}

	a.opts.Logger.Debug("address aggregated",
		logging.AddressHash(address),
		logging.Count(stats.Total))
	instrumentation.SetSpanSuccess(span)

	return stats, nil
}

func (a *Aggregator) recordHeaderErrors(ctx context.Context, err error) {
	for _, he := range HeaderErrors(err) {
		a.opts.Metrics.RecordHeaderFailure(ctx, he.Header, he.Reason())
		if errors.Is(he, ErrDateParse) {
			a.opts.Logger.Debug("skipping unparseable date",
				logging.MessageID(he.MessageID),
				logging.Err(he.Err))
		}
	}
}
