package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/provider"
	"github.com/teemow/contactstats/internal/server"
	"github.com/teemow/contactstats/internal/tools/stats_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for the MCP tools by introspecting the
registered tool definitions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := toolsDocumentation()
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// toolsDocumentation registers the tools against a server that never opens a
// mailbox and renders their definitions.
func toolsDocumentation() (string, error) {
	cfg := &config.Config{
		Provider:     config.ProviderGmail,
		Account:      config.DefaultAccount,
		MaxResults:   config.DefaultMaxResults,
		IncludeEmpty: true,
	}
	serverContext := server.NewServerContext(context.Background(), cfg, provider.Deps{})
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("contactstats", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := stats_tools.RegisterStatsTools(mcpSrv, serverContext); err != nil {
		return "", fmt.Errorf("failed to register tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, st := range serverTools {
		tools = append(tools, st.Tool)
	}
	return generateToolsMarkdown(tools), nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools available when running `contactstats serve`.\n\n")
	sb.WriteString("**Note:** This documentation is generated from the tool definitions.\n\n")

	byCategory := groupToolsByCategory(tools)
	categories := slices.Sorted(maps.Keys(byCategory))

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Accounts\n\n")
	sb.WriteString("With the Gmail provider, the optional `account` argument selects the stored OAuth token ")
	sb.WriteString("(see `contactstats auth google --account`). Without it the configured account is used. ")
	sb.WriteString("The IMAP provider serves a single mailbox and ignores `account`.\n\n")

	for _, category := range categories {
		categoryTools := byCategory[category]
		slices.SortFunc(categoryTools, func(a, b mcp.Tool) int {
			return strings.Compare(a.Name, b.Name)
		})

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}
	return categories
}

func getCategoryFromToolName(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	switch prefix {
	case "contact":
		return "Statistics Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(tool.InputSchema.Properties)) {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}

		requiredStr := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requiredStr = "required"
		}

		fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(prop), requiredStr)
		if desc, ok := prop["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			fmt.Fprintf(&sb, "%s parameter", getPropertyType(prop))
		}
		if values := enumValues(prop); len(values) > 0 {
			fmt.Fprintf(&sb, " One of: `%s`.", strings.Join(values, "`, `"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func enumValues(prop map[string]any) []string {
	switch values := prop["enum"].(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}
