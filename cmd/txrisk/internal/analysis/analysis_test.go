package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/indexer"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/prompt"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/storage"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/txjson"
)

type stubRetriever struct {
	results indexer.Context
	err     error
	queries []string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string) (indexer.Context, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

type recordingInvoker struct {
	prompts []string
	output  string
}

func (r *recordingInvoker) Invoke(_ context.Context, p string) string {
	r.prompts = append(r.prompts, p)
	return r.output
}

func TestContextWithoutRetriever(t *testing.T) {
	p := &Pipeline{}
	assert.Equal(t, NotProvided, p.Context(context.Background(), "{}"))
}

func TestContextRetrieverError(t *testing.T) {
	before := testutil.ToFloat64(metrics.RetrievalsTotal.WithLabelValues("error"))
	p := &Pipeline{Retriever: &stubRetriever{err: errors.New("embedding service unreachable")}}

	assert.Equal(t, NoResults, p.Context(context.Background(), "{}"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RetrievalsTotal.WithLabelValues("error")))
}

func TestContextNoResultsIsEmptyList(t *testing.T) {
	before := testutil.ToFloat64(metrics.RetrievalsTotal.WithLabelValues("empty"))
	p := &Pipeline{Retriever: &stubRetriever{}}

	assert.Equal(t, "[]", p.Context(context.Background(), "{}"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RetrievalsTotal.WithLabelValues("empty")))
}

func TestContextRendersResults(t *testing.T) {
	results := indexer.Context{
		{Document: storage.Document{ID: "7", Content: `{"TRANSACTION_ID": "T8"}`, TransactionID: "T8", Amount: "10", Date: "2024"}, SimilarityScore: 0.9},
	}
	p := &Pipeline{Retriever: &stubRetriever{results: results}}

	assert.Equal(t, results.String(), p.Context(context.Background(), "{}"))
}

func TestAnalyzeRetrieverFailureStillInvokes(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("boom")}
	invoker := &recordingInvoker{output: "model says hi"}
	p := &Pipeline{Retriever: retriever, Invoker: invoker}

	tx, err := txjson.Decode([]byte(`{"amount": 5000, "currency": "USD"}`))
	require.NoError(t, err)

	out := p.Analyze(context.Background(), tx)

	assert.Equal(t, "model says hi", out)
	require.Len(t, invoker.prompts, 1)
	assert.Equal(t, prompt.Assemble(`{"amount": 5000, "currency": "USD"}`, NoResults), invoker.prompts[0])
	assert.Equal(t, []string{`{"amount": 5000, "currency": "USD"}`}, retriever.queries)
}

func TestAnalyzeWithoutRetriever(t *testing.T) {
	invoker := &recordingInvoker{}
	p := &Pipeline{Invoker: invoker}

	tx, err := txjson.Decode([]byte(`[1, 2.50, "x"]`))
	require.NoError(t, err)

	p.Analyze(context.Background(), tx)

	require.Len(t, invoker.prompts, 1)
	assert.Contains(t, invoker.prompts[0], "\n[1, 2.50, \"x\"]\n")
	assert.Contains(t, invoker.prompts[0], "Retrieved RAG context (if any):\n"+NotProvided+"\n")
}

func TestAnalyzeCountsDecisions(t *testing.T) {
	tests := []struct {
		output string
		label  string
	}{
		{`{"risk_score": 0.8, "decision": "DECLINE", "triggers": ["amount"]}`, "DECLINE"},
		{`{"risk_score": 0.1, "decision": "approve"}`, "APPROVE"},
		{`I cannot decide.`, "unknown"},
	}

	for _, tt := range tests {
		before := testutil.ToFloat64(metrics.DecisionsTotal.WithLabelValues(tt.label))
		p := &Pipeline{Invoker: &recordingInvoker{output: tt.output}}

		assert.Equal(t, tt.output, p.Analyze(context.Background(), txjson.Object{}))
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.DecisionsTotal.WithLabelValues(tt.label)), tt.output)
	}
}

func TestAnalyzeSkipsDecisionForInvocationErrors(t *testing.T) {
	before := testutil.ToFloat64(metrics.DecisionsTotal.WithLabelValues("unknown"))
	p := &Pipeline{Invoker: &recordingInvoker{output: "ERROR invoking model: Timeout: deadline exceeded"}}

	p.Analyze(context.Background(), txjson.Object{})

	assert.Equal(t, before, testutil.ToFloat64(metrics.DecisionsTotal.WithLabelValues("unknown")))
}
