package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surajshivkumar/ConvoLens/internal/llm"
)

type mockProvider struct {
	content string
	err     error
	calls   []llm.CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.content}, nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Intent
	}{
		{"structured_query", StructuredQuery},
		{"semantic_retrieval", SemanticRetrieval},
		{"scheduling", Scheduling},
		{"  Scheduling\n", Scheduling},
		{`"structured_query"`, StructuredQuery},
		{"`semantic_retrieval`.", SemanticRetrieval},
		{"Structured Query", StructuredQuery},
		{"semantic-retrieval", SemanticRetrieval},
		{"sql", Unknown},
		{"", Unknown},
		{"I think this is scheduling", Unknown},
		{"unknown", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parse(tt.raw), "Parse(%q)", tt.raw)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, label := range Labels {
		assert.Equal(t, label, Parse(label.String()))
	}
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "unknown", Intent(42).String())
}

func TestClassify(t *testing.T) {
	mock := &mockProvider{content: "scheduling"}
	c := NewClassifier(mock, "gpt-4o-mini")

	got, raw, err := c.Classify(t.Context(), "Schedule a call with Ralph tomorrow at 6pm")
	require.NoError(t, err)
	assert.Equal(t, Scheduling, got)
	assert.Equal(t, "scheduling", raw)

	require.Len(t, mock.calls, 1)
	req := mock.calls[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Zero(t, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "Schedule a call with Ralph tomorrow at 6pm", req.Messages[1].Content)
}

func TestClassifyUnknownLabel(t *testing.T) {
	c := NewClassifier(&mockProvider{content: "weather_report"}, "m")

	got, raw, err := c.Classify(t.Context(), "is it raining")
	require.NoError(t, err)
	assert.Equal(t, Unknown, got)
	assert.Equal(t, "weather_report", raw)
}

func TestClassifyTransportError(t *testing.T) {
	c := NewClassifier(&mockProvider{err: errors.New("connection reset")}, "m")

	_, _, err := c.Classify(t.Context(), "how many calls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
