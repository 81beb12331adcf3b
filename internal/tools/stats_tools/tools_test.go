package stats_tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/provider"
	"github.com/teemow/contactstats/internal/server"
	"github.com/teemow/contactstats/internal/stats"
)

type fakeFetcher struct {
	lists    map[string][]string
	messages map[string]stats.MessageMetadata
	listErr  map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		lists:    map[string][]string{},
		messages: map[string]stats.MessageMetadata{},
		listErr:  map[string]error{},
	}
}

func (f *fakeFetcher) add(address, id, date, from, to string) {
	f.messages[id] = stats.NewMessageMetadata(id, map[string]string{"Date": date, "From": from, "To": to})
	f.lists[address] = append(f.lists[address], id)
}

func (f *fakeFetcher) ListMessages(_ context.Context, address string) ([]string, error) {
	if err := f.listErr[address]; err != nil {
		return nil, err
	}
	return f.lists[address], nil
}

func (f *fakeFetcher) GetMetadata(_ context.Context, id string) (stats.MessageMetadata, error) {
	m, ok := f.messages[id]
	if !ok {
		return stats.MessageMetadata{}, errors.New("unknown message " + id)
	}
	return m, nil
}

func (f *fakeFetcher) Source() string { return "fake" }
func (f *fakeFetcher) Close() error   { return nil }

func newServerContext(t *testing.T, f provider.Fetcher) *server.ServerContext {
	t.Helper()
	cfg := &config.Config{
		Provider:     config.ProviderGmail,
		Account:      "default",
		MaxResults:   100,
		IncludeEmpty: true,
	}
	sc := server.NewServerContext(context.Background(), cfg, provider.Deps{})
	sc.SetFetcherForAccount("", f)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func call(t *testing.T, sc *server.ServerContext, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolName
	req.Params.Arguments = args

	res, err := handleContactStats(context.Background(), req, sc)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func aliceFetcher() *fakeFetcher {
	f := newFakeFetcher()
	f.add("alice@example.com", "m1", "Mon, 01 Jan 2024 10:00:00 +0000", "alice@example.com", "me@example.com")
	f.add("alice@example.com", "m2", "Wed, 03 Jan 2024 10:00:00 +0000", "me@example.com", "alice@example.com")
	f.add("alice@example.com", "m3", "Fri, 05 Jan 2024 10:00:00 +0000", "alice@example.com", "me@example.com")
	f.add("bob@example.com", "m4", "Tue, 02 Jan 2024 10:00:00 +0000", "bob@example.com", "me@example.com")
	return f
}

func TestContactStats_Text(t *testing.T) {
	sc := newServerContext(t, aliceFetcher())

	out, isErr := call(t, sc, map[string]any{"addresses": []any{"bob@example.com", "alice@example.com"}})
	require.False(t, isErr, out)

	assert.Contains(t, out, "Summary for email: alice@example.com\n"+
		"  Total emails sent: 2\n"+
		"  Total emails received: 1\n"+
		"  Total emails exchanged: 3\n"+
		"  First email: 2024-01-01\n"+
		"  Last email: 2024-01-05\n")
	assert.Less(t, strings.Index(out, "alice@example.com"), strings.Index(out, "bob@example.com"),
		"higher totals come first")
}

func TestContactStats_CSV(t *testing.T) {
	sc := newServerContext(t, aliceFetcher())

	out, isErr := call(t, sc, map[string]any{"addresses": "alice@example.com", "format": "csv"})
	require.False(t, isErr, out)
	assert.Equal(t, "Email Address,Sent,Received,Total,First Email,Last Email\n"+
		"alice@example.com,2,1,3,2024-01-01,2024-01-05\n", out)
}

func TestContactStats_MaxResults(t *testing.T) {
	sc := newServerContext(t, aliceFetcher())

	out, isErr := call(t, sc, map[string]any{"addresses": "alice@example.com", "format": "csv", "maxResults": float64(1)})
	require.False(t, isErr, out)
	assert.Contains(t, out, "alice@example.com,1,0,1,2024-01-01,2024-01-01\n")

	_, isErr = call(t, sc, map[string]any{"addresses": "alice@example.com", "maxResults": float64(0)})
	assert.True(t, isErr)
}

func TestContactStats_PartialFailure(t *testing.T) {
	f := aliceFetcher()
	f.listErr["bob@example.com"] = errors.New("quota exceeded")
	sc := newServerContext(t, f)

	out, isErr := call(t, sc, map[string]any{"addresses": "bob@example.com, alice@example.com"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "Summary for email: alice@example.com")
	assert.NotContains(t, out, "Summary for email: bob@example.com")
	assert.Contains(t, out, "Some addresses could not be processed")
	assert.Contains(t, out, `"id": "bob@example.com"`)
	assert.Contains(t, out, "quota exceeded")
	assert.Contains(t, out, `"result": "3 emails"`)
	assert.Contains(t, out, `"successful": 1`)
	assert.Contains(t, out, `"failed": 1`)
}

func TestContactStats_AllFailed(t *testing.T) {
	f := newFakeFetcher()
	f.listErr["bob@example.com"] = errors.New("quota exceeded")
	sc := newServerContext(t, f)

	out, isErr := call(t, sc, map[string]any{"addresses": "bob@example.com"})
	assert.True(t, isErr)
	assert.Contains(t, out, "quota exceeded")
}

func TestContactStats_InvalidArguments(t *testing.T) {
	sc := newServerContext(t, aliceFetcher())

	for name, args := range map[string]map[string]any{
		"missing addresses": {},
		"empty addresses":   {"addresses": ""},
		"bad format":        {"addresses": "alice@example.com", "format": "xml"},
	} {
		t.Run(name, func(t *testing.T) {
			_, isErr := call(t, sc, args)
			assert.True(t, isErr)
		})
	}
}

func TestRegisterStatsTools(t *testing.T) {
	sc := newServerContext(t, aliceFetcher())
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterStatsTools(s, sc))

	tools := s.ListTools()
	require.Contains(t, tools, ToolName)
	tool := tools[ToolName].Tool
	assert.Contains(t, tool.InputSchema.Required, "addresses")
	require.NotNil(t, tool.Annotations.ReadOnlyHint)
	assert.True(t, *tool.Annotations.ReadOnlyHint)
}
