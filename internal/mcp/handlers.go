package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/surajshivkumar/ConvoLens/internal/answer"
	"github.com/surajshivkumar/ConvoLens/internal/apperr"
	"github.com/surajshivkumar/ConvoLens/internal/calls"
)

func (s *Server) handleAskCallArchive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	env, err := s.asker.Handle(ctx, answer.Question{
		Text:           question,
		IdempotencyKey: request.GetString("idempotency_key", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(apperr.Detail(err)), nil
	}

	return mcp.NewToolResultText(formatEnvelope(env)), nil
}

func (s *Server) handleListRecentCalls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := calls.ClampLimit(request.GetInt("limit", calls.DefaultLimit))

	recent, err := s.archive.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing calls failed: %v", err)), nil
	}
	if len(recent) == 0 {
		return mcp.NewToolResultText("No calls found. The archive may be empty."), nil
	}

	return mcp.NewToolResultText(formatCalls(recent)), nil
}

func (s *Server) handleCallStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.archive.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading stats failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Total calls: %d\nCalls with embeddings: %d\nEmbedding coverage: %.2f%%\n",
		stats.TotalCalls, stats.CallsWithEmbeddings, stats.EmbeddingCoverage,
	)), nil
}

func formatEnvelope(env *answer.Envelope) string {
	var b strings.Builder
	b.WriteString(env.Answer)
	b.WriteString("\n")

	if len(env.Sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, src := range env.Sources {
			fmt.Fprintf(&b, "- %s\n", describeSource(src))
		}
	}
	if len(env.ContextUsed) > 0 {
		b.WriteString("\n## Context\n\n")
		for _, c := range env.ContextUsed {
			fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(c, "\n", " "))
		}
	}
	return b.String()
}

func describeSource(src any) string {
	switch v := src.(type) {
	case interface{ SourceLine() string }:
		return v.SourceLine()
	default:
		return fmt.Sprintf("%+v", v)
	}
}

func formatCalls(list []calls.Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d call(s):\n\n", len(list))
	for i, c := range list {
		fmt.Fprintf(&b, "### %d. %s\n", i+1, c.CallID)
		if c.CallTimestamp != "" {
			fmt.Fprintf(&b, "**When:** %s\n", c.CallTimestamp)
		}
		if c.AgentID != "" {
			fmt.Fprintf(&b, "**Agent:** %s\n", c.AgentID)
		}
		if c.IssueType != "" {
			fmt.Fprintf(&b, "**Issue:** %s\n", c.IssueType)
		}
		if c.Sentiment != "" {
			fmt.Fprintf(&b, "**Sentiment:** %s\n", c.Sentiment)
		}
		if c.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", c.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}
