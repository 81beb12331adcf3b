package imap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/stats"
)

// DefaultMailbox is selected when Config.Mailbox is empty.
const DefaultMailbox = "INBOX"

// PasswordEnv is read when no password is configured or stored.
const PasswordEnv = "CONTACTSTATS_IMAP_PASSWORD"

// ErrStaleID is returned for an id from an earlier UIDVALIDITY epoch.
var ErrStaleID = errors.New("message id belongs to a previous mailbox epoch")

// ErrNoPassword is returned when no IMAP password can be found.
var ErrNoPassword = errors.New("no IMAP password configured")

// Config describes an IMAP account.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// TLS selects implicit TLS. When false the connection is upgraded with STARTTLS.
	TLS bool

	Mailbox    string
	MaxResults int
}

// Addr returns host:port, defaulting the port to 993 for TLS and 143 otherwise.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 143
		if c.TLS {
			port = 993
		}
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c Config) mailbox() string {
	if c.Mailbox == "" {
		return DefaultMailbox
	}
	return c.Mailbox
}

// Validate reports missing connection settings.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("imap host is required")
	}
	if c.Username == "" {
		return errors.New("imap username is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid imap port %d", c.Port)
	}
	return nil
}

// ResolvePassword returns the configured password, the one stored under key
// by lookup, or the value of PasswordEnv, in that order.
func ResolvePassword(cfg Config, key string, lookup func(string) (string, error)) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	if lookup != nil {
		if pw, err := lookup(key); err == nil && pw != "" {
			return pw, nil
		}
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("%w for %s: run 'contactstats auth imap' or set %s", ErrNoPassword, cfg.Username, PasswordEnv)
}

// Fetcher implements stats.Fetcher over an IMAP connection.
// The connection is opened on first use and reused until Close.
type Fetcher struct {
	cfg     Config
	logger  logging.Logger
	metrics *instrumentation.Metrics

	mu          sync.Mutex
	client      *imapclient.Client
	uidValidity uint32
}

// NewFetcher returns a Fetcher for cfg. Nothing is dialed until the first call.
func NewFetcher(cfg Config, logger logging.Logger, metrics *instrumentation.Metrics) *Fetcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fetcher{cfg: cfg, logger: logger, metrics: metrics}
}

// Source names the cache partition of the configured mailbox.
func (c Config) Source() string {
	return "imap:" + c.Username + "@" + c.Host + "/" + c.mailbox()
}

// Source identifies the mailbox for cache entries.
func (f *Fetcher) Source() string {
	return f.cfg.Source()
}

// connect must be called with f.mu held.
func (f *Fetcher) connect(ctx context.Context) (*imapclient.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderIMAP, instrumentation.OperationLogin)
	defer span.End()
	start := time.Now()

	c, validity, err := f.dial()
	f.record(ctx, instrumentation.OperationLogin, err, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	f.client = c
	f.uidValidity = validity
	f.logger.Debug("imap mailbox selected",
		logging.Provider(instrumentation.ProviderIMAP),
		logging.Account(f.cfg.Username),
	)
	instrumentation.SetSpanSuccess(span)
	return c, nil
}

func (f *Fetcher) dial() (*imapclient.Client, uint32, error) {
	addr := f.cfg.Addr()

	var (
		c   *imapclient.Client
		err error
	)
	if f.cfg.TLS {
		c, err = imapclient.DialTLS(addr, nil)
	} else {
		c, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := c.Login(f.cfg.Username, f.cfg.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, 0, fmt.Errorf("authentication failed for %s: %w", f.cfg.Username, err)
	}

	sel, err := c.Select(f.cfg.mailbox(), nil).Wait()
	if err != nil {
		_ = c.Logout().Wait()
		return nil, 0, fmt.Errorf("selecting %s: %w", f.cfg.mailbox(), err)
	}
	return c, sel.UIDValidity, nil
}

// ListMessages returns ids of messages from or to address, newest first.
// When more than MaxResults match, the most recent UIDs are kept.
func (f *Fetcher) ListMessages(ctx context.Context, address string) ([]string, error) {
	return f.list(ctx, address, f.cfg.MaxResults)
}

// ListMessagesLimit is ListMessages keeping at most n ids.
func (f *Fetcher) ListMessagesLimit(ctx context.Context, address string, n int) ([]string, error) {
	return f.list(ctx, address, effectiveLimit(f.cfg.MaxResults, n))
}

// effectiveLimit combines the configured cap with a per-call one; <= 0 is unbounded.
func effectiveLimit(configured, n int) int {
	switch {
	case configured <= 0:
		return n
	case n <= 0:
		return configured
	default:
		return min(configured, n)
	}
}

func (f *Fetcher) list(ctx context.Context, address string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderIMAP, instrumentation.OperationSearch)
	defer span.End()

	start := time.Now()
	data, err := c.UIDSearch(SearchCriteria(address), nil).Wait()
	f.record(ctx, instrumentation.OperationSearch, err, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := data.AllUIDs()
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	// Newest first, matching the Gmail provider.
	ids := make([]string, 0, len(uids))
	for _, uid := range slices.Backward(uids) {
		ids = append(ids, formatID(f.uidValidity, uid))
	}
	instrumentation.SetSpanSuccess(span)
	return ids, nil
}

// GetMetadata fetches the Date, From and To headers of one message.
func (f *Fetcher) GetMetadata(ctx context.Context, id string) (stats.MessageMetadata, error) {
	validity, uid, err := parseID(id)
	if err != nil {
		return stats.MessageMetadata{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.connect(ctx)
	if err != nil {
		return stats.MessageMetadata{}, err
	}
	if validity != f.uidValidity {
		return stats.MessageMetadata{}, fmt.Errorf("message %s: %w", id, ErrStaleID)
	}
	if err := ctx.Err(); err != nil {
		return stats.MessageMetadata{}, err
	}

	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderIMAP, instrumentation.OperationGet)
	defer span.End()

	start := time.Now()
	raw, err := f.fetchHeaders(c, uid)
	f.record(ctx, instrumentation.OperationGet, err, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return stats.MessageMetadata{}, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	md, err := parseHeaderBlock(id, raw)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return stats.MessageMetadata{}, err
	}
	instrumentation.SetSpanSuccess(span)
	return md, nil
}

func (f *Fetcher) fetchHeaders(c *imapclient.Client, uid imap.UID) ([]byte, error) {
	section := headerSection()
	cmd := c.Fetch(imap.UIDSetNum(uid), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer cmd.Close()

	msg := cmd.Next()
	if msg == nil {
		if err := cmd.Close(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}
	raw := buf.FindBodySection(section)

	if err := cmd.Close(); err != nil {
		return nil, err
	}
	return raw, nil
}

// Close logs out and drops the connection. The Fetcher reconnects on next use.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return nil
	}
	err := f.client.Logout().Wait()
	_ = f.client.Close()
	f.client = nil
	return err
}

func (f *Fetcher) record(ctx context.Context, operation string, err error, start time.Time) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	f.metrics.RecordProviderOperation(ctx, instrumentation.ProviderIMAP, operation, status, time.Since(start))
}
