// Package intent decides which answering strategy handles a question.
package intent

import (
	"strings"
)

// Intent is the strategy a question is routed to.
type Intent int

const (
	// Unknown is any classifier output that matches no label.
	Unknown Intent = iota
	StructuredQuery
	SemanticRetrieval
	Scheduling
)

// Labels is the closed label set the classifier may answer with.
var Labels = []Intent{StructuredQuery, SemanticRetrieval, Scheduling}

func (i Intent) String() string {
	switch i {
	case StructuredQuery:
		return "structured_query"
	case SemanticRetrieval:
		return "semantic_retrieval"
	case Scheduling:
		return "scheduling"
	default:
		return "unknown"
	}
}

// Parse maps raw classifier output to an Intent. Case, surrounding quotes,
// trailing punctuation, and space or hyphen separators are tolerated;
// anything else is Unknown.
func Parse(raw string) Intent {
	s := strings.ToLower(raw)
	s = strings.Trim(s, " \t\r\n\"'`.!;:,")
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	for _, label := range Labels {
		if s == label.String() {
			return label
		}
	}
	return Unknown
}
