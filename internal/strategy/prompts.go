package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/surajshivkumar/ConvoLens/internal/llm"
	"github.com/surajshivkumar/ConvoLens/internal/vectordb"
)

// IssueTypes are the categories the ingestion classifier assigns.
var IssueTypes = []string{
	"Returns & Refunds",
	"Shipping & Logistics",
	"Order Issues",
	"Equipment Support",
	"Business Services",
	"Account Management",
	"Appointments & Scheduling",
}

const factCallsSchema = `Table fact_calls (one row per call):
  call_id               text, primary key
  agent_id              text, references dim_agents(agent_id)
  customer_id           text, references dim_customers(customer_id)
  date_id               date of the call (YYYY-MM-DD)
  duration_seconds      integer
  call_timestamp        timestamp of the call start
  disposition           text
  direction             text (inbound or outbound)
  transcript            text, full transcript
  summary               text
  embedding             vector, never select or filter on it
  audio_url             text
  issue_type            text
  sentiment             text
  sentiment_score       real
  resolved              boolean
  agent_politeness      real between 0 and 1
  agent_professionalism real between 0 and 1
  process_adherence     real between 0 and 1

Table dim_agents: agent_id, name, email
Table dim_customers: customer_id, name, email, phone`

func buildSQLSystemPrompt(dialect string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You write a single read-only %s SELECT statement that answers a question about a call-center archive.\n\n", dialect)
	b.WriteString(factCallsSchema)
	b.WriteString("\n\nissue_type is one of: ")
	b.WriteString(strings.Join(quoteAll(IssueTypes), ", "))
	b.WriteString(".\nsentiment is one of: 'positive', 'negative'.\n")
	b.WriteString("Classification columns (issue_type, sentiment, sentiment_score, resolved and the quality scores) may be NULL for calls ingested without classification.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Output only the SQL, no explanation and no markdown.\n")
	b.WriteString("- Use only the tables and columns above.\n")
	b.WriteString("- Never modify data.\n")
	b.WriteString("- Alias aggregates with readable names, e.g. COUNT(*) AS count.\n")
	b.WriteString("- Limit row listings to 100 rows.\n")
	return b.String()
}

const narrationSystemPrompt = `You explain SQL query results about a call-center archive in plain language.
Use only values that appear in the rows you are given. Do not invent numbers, names, or calls.
Respond with JSON: {"answer": "<one or two short paragraphs>"}`

func buildNarrationPrompt(question, rowsJSON string, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Query returned %d row(s):\n%s\n", total, rowsJSON)
	if total > narrationRows {
		fmt.Fprintf(&b, "(only the first %d rows are shown)\n", narrationRows)
	}
	return b.String()
}

const synthesisSystemPrompt = `You are an analyst for a call-center transcript archive.
Answer the question using only the calls provided. Mention call IDs, agents, and patterns when relevant.
If the calls do not answer the question, say so clearly. Never mention a call that is not in the list.

Respond with JSON of this shape:
{
  "answer": "<prose answer>",
  "confidence": "high" | "medium" | "low",
  "calls": [
    {"call_id": "", "agent_id": "", "timestamp": "", "issue_type": "", "sentiment": "",
     "summary": "<one sentence>", "relevance": "<why this call matters>", "excerpt": "<most relevant transcript quote>"}
  ]
}`

func buildSynthesisPrompt(question string, history []llm.Message, records []vectordb.Record) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("CONVERSATION HISTORY:\n")
		for _, msg := range history {
			speaker := "User"
			if msg.Role == llm.RoleAssistant {
				speaker = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("CALLS:\n")
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "Call ID: %s\n", r.CallID)
		fmt.Fprintf(&b, "Agent: %s\n", orUnknown(r.AgentID))
		fmt.Fprintf(&b, "Timestamp: %s\n", orUnknown(r.CallTimestamp))
		fmt.Fprintf(&b, "Sentiment: %s\n", orUnknown(r.Sentiment))
		fmt.Fprintf(&b, "Issue Type: %s\n", orUnknown(r.IssueType))
		fmt.Fprintf(&b, "Similarity: %.3f\n", r.Similarity)
		fmt.Fprintf(&b, "Content:\n%s\n", r.Content)
	}

	fmt.Fprintf(&b, "\nQUESTION: %s\n", question)
	return b.String()
}

const titleSystemPrompt = `Write a short calendar event title (at most 8 words) for the scheduling request.
Output only the title, e.g. "Call with Ralph". No quotes, no date or time.`

const datetimeSystemPrompt = `Extract the requested start date and time from a scheduling request.
Respond with JSON: {"datetime": "<RFC 3339 timestamp with offset>"}.
Resolve relative expressions against the current time you are given.
If the request contains no date or time, respond with {"datetime": ""}.`

func buildDatetimePrompt(text string, now time.Time) string {
	return fmt.Sprintf("Current time: %s (%s, %s)\nRequest: %s",
		now.Format(time.RFC3339), now.Weekday(), now.Location(), text)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = "'" + v + "'"
	}
	return out
}
