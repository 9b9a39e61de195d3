// Package analysis runs one transaction through retrieval, prompt assembly
// and inference.
package analysis

import (
	"context"
	"strings"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/assessment"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/indexer"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/inference"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/logging"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/prompt"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/txjson"
)

// Context text used in place of retrieved records when there is no retriever
// or it fails.
const (
	NotProvided = "not provided"
	NoResults   = "retriever_error_or_no_results"
)

// Retriever looks up records similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (indexer.Context, error)
}

// Invoker turns a prompt into model output text. It never fails; errors are
// reported in the returned text.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) string
}

// Pipeline analyzes transactions. Retriever may be nil.
type Pipeline struct {
	Retriever Retriever
	Invoker   Invoker
}

// Context returns the retrieved-context text for query.
func (p *Pipeline) Context(ctx context.Context, query string) string {
	if p.Retriever == nil {
		metrics.RetrievalsTotal.WithLabelValues("disabled").Inc()
		return NotProvided
	}

	results, err := p.Retriever.Retrieve(ctx, query)
	if err != nil {
		metrics.RetrievalsTotal.WithLabelValues("error").Inc()
		logging.L(ctx).Warn("Retrieval failed", "error", err)
		return NoResults
	}
	if len(results) == 0 {
		metrics.RetrievalsTotal.WithLabelValues("empty").Inc()
		return results.String()
	}

	metrics.RetrievalsTotal.WithLabelValues("ok").Inc()
	logging.L(ctx).Debug("Retrieved similar records", "count", len(results), "top_similarity", results[0].SimilarityScore)
	return results.String()
}

// Analyze returns the model's raw output for tx, a decoded JSON value.
func (p *Pipeline) Analyze(ctx context.Context, tx any) string {
	ctx = logging.WithAnalysisID(ctx, logging.NewAnalysisID())

	txJSON := txjson.Format(tx)
	retrieved := p.Context(ctx, txJSON)
	text := prompt.Assemble(txJSON, retrieved)

	logging.L(ctx).Info("Analyzing transaction", "transaction_len", len(txJSON), "prompt_len", len(text))
	output := p.Invoker.Invoke(ctx, text)

	p.record(ctx, output)
	return output
}

// record logs and counts the decision the model claims, if any.
func (p *Pipeline) record(ctx context.Context, output string) {
	if strings.HasPrefix(output, inference.ErrorPrefix) {
		return
	}

	a, ok := assessment.Parse(output)
	decision := a.NormalizedDecision()
	if !ok || decision == "" {
		metrics.DecisionsTotal.WithLabelValues("unknown").Inc()
		logging.L(ctx).Info("Model output has no recognizable decision")
		return
	}

	metrics.DecisionsTotal.WithLabelValues(decision).Inc()
	logger := logging.L(ctx).With(
		"decision", decision,
		"risk_score", a.RiskScore,
		"triggers", len(a.Triggers),
	)
	if a.HasScore && !a.Consistent() {
		logger.Warn("Model decision does not match its risk score", "expected", assessment.DecisionFor(a.RiskScore))
		return
	}
	logger.Info("Model assessment")
}
