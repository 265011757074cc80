package mcp

import "github.com/mark3labs/mcp-go/mcp"

var askCallArchiveTool = mcp.NewTool("ask_call_archive",
	mcp.WithDescription("Ask a natural-language question about the call-center archive. Counts and filters are answered with SQL, topic questions from similar transcripts, and booking requests create a calendar event."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithString("idempotency_key",
		mcp.Description("Optional key that makes a scheduling request safe to retry"),
	),
)

var listRecentCallsTool = mcp.NewTool("list_recent_calls",
	mcp.WithDescription("List the most recent calls with their summary, sentiment, and issue type."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of calls to return (default 20, max 200)"),
	),
)

var callStatsTool = mcp.NewTool("call_stats",
	mcp.WithDescription("Get the number of archived calls and how many have embeddings."),
)
