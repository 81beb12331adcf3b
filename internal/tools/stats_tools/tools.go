package stats_tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/contactstats/internal/export"
	"github.com/teemow/contactstats/internal/server"
	"github.com/teemow/contactstats/internal/stats"
	"github.com/teemow/contactstats/internal/tools/batch"
	"github.com/teemow/contactstats/internal/tools/common"
)

// ToolName is the MCP name of the statistics tool.
const ToolName = "contact_stats"

// Output formats.
const (
	FormatText = "text"
	FormatCSV  = "csv"
)

// RegisterStatsTools registers the contact statistics tool with the MCP server.
func RegisterStatsTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Count the emails sent to and received from each address and report the first and last contact date. "+
			"Results are ordered by total message count, highest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("addresses",
			mcp.Required(),
			mcp.Description("Email address (string), comma separated addresses, or an array of addresses"),
		),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured account). Used to manage multiple Google accounts."),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of messages examined per address, most recent first (default: the configured max_results)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' for summary blocks or 'csv' for the CSV document (default: text)"),
			mcp.Enum(FormatText, FormatCSV),
		),
	)

	s.AddTool(tool, common.InstrumentedToolHandler(ToolName, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleContactStats(ctx, request, sc)
		}))
	return nil
}

func handleContactStats(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	cfg := sc.Config()

	addresses, err := batch.ParseStringOrArray(args["addresses"], "addresses")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	account := common.GetAccountFromArgs(args, cfg.Account)

	maxResults := int(cfg.MaxResults)
	if v, ok := args["maxResults"].(float64); ok {
		if v < 1 {
			return mcp.NewToolResultError("maxResults must be at least 1"), nil
		}
		maxResults = min(int(v), maxResults)
	}

	format := FormatText
	if v, ok := args["format"].(string); ok && v != "" {
		format = v
	}
	if format != FormatText && format != FormatCSV {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (want %s or %s)", format, FormatText, FormatCSV)), nil
	}

	fetcher, err := sc.FetcherForAccount(account)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open mailbox for account %s: %v", account, err)), nil
	}

	opts := stats.DefaultOptions()
	opts.IncludeEmpty = cfg.IncludeEmpty
	opts.Strict = cfg.Strict
	opts.KeepGoing = true
	opts.Provider = cfg.Provider
	opts.Logger = sc.Logger()
	opts.Metrics = sc.Metrics()

	result, aggErr := stats.NewAggregator(stats.Limit(fetcher, maxResults), opts).Aggregate(ctx, addresses)
	if aggErr != nil && result.Len() == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute contact statistics: %v", aggErr)), nil
	}

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = export.WriteCSV(&buf, result)
	default:
		err = stats.WriteSummary(&buf, stats.Summarize(result))
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s output: %w", format, err)
	}

	if failures := stats.Failures(aggErr); len(failures) > 0 {
		buf.WriteString("\nSome addresses could not be processed:\n")
		buf.WriteString(batch.FormatResults(addressResults(result, failures)))
		buf.WriteString("\n")
	}

	return mcp.NewToolResultText(buf.String()), nil
}

// addressResults lists every committed address as a success, followed by
// the failures.
func addressResults(result *stats.Result, failures []stats.Failure) []batch.Result {
	results := make([]batch.Result, 0, result.Len()+len(failures))
	for address, s := range result.All() {
		results = append(results, batch.NewSuccessResult(address, fmt.Sprintf("%d emails", s.Total)))
	}
	for _, f := range failures {
		id := f.Address
		if id == "" {
			id = "*"
		}
		err := f.Err
		var fe *stats.FetchError
		if errors.As(err, &fe) {
			err = fe.Err
		}
		results = append(results, batch.NewErrorResult(id, err))
	}
	return results
}
