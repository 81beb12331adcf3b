package gmail

import (
	"context"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/contactstats/internal/google"
	"github.com/teemow/contactstats/internal/instrumentation"
)

// MaxPageSize is the largest page users.messages.list accepts.
const MaxPageSize = 500

// Client wraps the Gmail Users service for one account.
type Client struct {
	svc     *gmail.UsersService
	account string
	metrics *instrumentation.Metrics
}

// NewClientForAccount creates a Gmail client authorized with the stored token of account.
// Extra options are passed to the Gmail service, e.g. option.WithEndpoint.
func NewClientForAccount(ctx context.Context, account, credentialsFile string, opts ...option.ClientOption) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", google.GetAuthenticationErrorMessage(account), err)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewClientWithService(svc, account), nil
}

// NewClientWithService wraps an existing Gmail service.
func NewClientWithService(svc *gmail.Service, account string) *Client {
	return &Client{svc: svc.Users, account: account}
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// SetMetrics enables API call metrics. A nil value disables them.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// ListMessages returns the ids of up to maxResults messages matching the
// Gmail search query, following page tokens as needed.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int64) ([]string, error) {
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGmail, instrumentation.OperationList)
	defer span.End()

	var ids []string
	pageToken := ""

	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := min(remaining, MaxPageSize)

		req := c.svc.Messages.List("me").Q(query).MaxResults(pageSize).
			Fields("messages(id)", "nextPageToken").Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		start := time.Now()
		res, err := req.Do()
		c.record(ctx, instrumentation.OperationList, err, start)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}

	instrumentation.SetSpanSuccess(span)
	return ids, nil
}

// GetMessageMetadata fetches a message in metadata format, restricted to the given headers.
func (c *Client) GetMessageMetadata(ctx context.Context, messageID string, headers ...string) (*gmail.Message, error) {
	ctx, span := instrumentation.StartProviderSpan(ctx, instrumentation.ProviderGmail, instrumentation.OperationGet)
	defer span.End()

	start := time.Now()
	msg, err := c.svc.Messages.Get("me", messageID).
		Format("metadata").
		MetadataHeaders(headers...).
		Context(ctx).
		Do()
	c.record(ctx, instrumentation.OperationGet, err, start)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	return msg, nil
}

func (c *Client) record(ctx context.Context, operation string, err error, start time.Time) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordProviderOperation(ctx, instrumentation.ProviderGmail, operation, status, time.Since(start))
}

// HeaderValue returns the value of the named header of a message, or "" if absent.
// Names are compared case-insensitively; the last occurrence wins.
func HeaderValue(m *gmail.Message, header string) string {
	v, _ := metadataFromMessage(m).Header(header)
	return v
}
