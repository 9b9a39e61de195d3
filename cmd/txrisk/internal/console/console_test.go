package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/analysis"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/txjson"
)

type countingAnalyzer struct {
	calls []any
}

func (a *countingAnalyzer) Analyze(_ context.Context, tx any) string {
	a.calls = append(a.calls, tx)
	return "ANALYSIS"
}

// echoInvoker returns the prompt it was given.
type echoInvoker struct{}

func (echoInvoker) Invoke(_ context.Context, prompt string) string { return prompt }

func run(t *testing.T, input string, analyzer Analyzer) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, New(strings.NewReader(input), &out, analyzer).Run(context.Background()))
	return out.String()
}

func TestQuit(t *testing.T) {
	for _, input := range []string{"q\n", "Q\n", "  q  \n", "\tQ\r\n"} {
		analyzer := &countingAnalyzer{}
		out := run(t, input+"{\"amount\": 1}\n\n", analyzer)

		assert.Empty(t, analyzer.calls, "input %q", input)
		assert.True(t, strings.HasSuffix(out, Exiting+"\n"), "input %q: %q", input, out)
		assert.NotContains(t, out, InputPrompt)
	}
}

func TestEndOfInputAtTrigger(t *testing.T) {
	analyzer := &countingAnalyzer{}
	out := run(t, "", analyzer)

	assert.Empty(t, analyzer.calls)
	assert.Equal(t, "\n"+Separator+"\n"+TriggerPrompt+"\n", out)
}

func TestInvalidJSON(t *testing.T) {
	before := testutil.ToFloat64(metrics.InvalidInputTotal)
	analyzer := &countingAnalyzer{}
	out := run(t, "\n{\"amount\": }\n\nq\n", analyzer)

	assert.Empty(t, analyzer.calls)
	assert.Contains(t, out, "Invalid JSON: ")
	assert.Contains(t, out, "line 1 column 12 (char 11). Please correct the JSON and try again.\n")
	assert.Equal(t, 2, strings.Count(out, TriggerPrompt), "returns to the trigger prompt")
	assert.NotContains(t, out, Invoking)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.InvalidInputTotal))
}

func TestNoJSONProvided(t *testing.T) {
	analyzer := &countingAnalyzer{}
	out := run(t, "\n   \nq\n", analyzer)

	assert.Empty(t, analyzer.calls)
	assert.Contains(t, out, InputPrompt+"\n"+NoInput+"\n")
	assert.Equal(t, 2, strings.Count(out, TriggerPrompt))
}

func TestMultiLineInput(t *testing.T) {
	analyzer := &countingAnalyzer{}
	afterCalls := 0
	var out bytes.Buffer
	c := New(strings.NewReader("\n{\n  \"amount\": 5000,\n  \"currency\": \"USD\"\n}\n\nq\n"), &out, analyzer)
	c.AfterAnalysis = func() { afterCalls++ }
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, analyzer.calls, 1)
	assert.Equal(t, `{"amount": 5000, "currency": "USD"}`, txjson.Format(analyzer.calls[0]))
	assert.Equal(t, 1, afterCalls)
	assert.Contains(t, out.String(), "\n"+Invoking+"\n\n\n"+OutputHeader+"\n\nANALYSIS\n\n"+OutputFooter+"\n\n")
}

func TestInputEndsWithoutBlankLine(t *testing.T) {
	analyzer := &countingAnalyzer{}
	run(t, "\n{\"amount\": 1}", analyzer)

	require.Len(t, analyzer.calls, 1)
}

func TestCanceledContextExits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := &countingAnalyzer{}
	var out bytes.Buffer
	require.NoError(t, New(strings.NewReader("\n{}\n\n"), &out, analyzer).Run(ctx))

	assert.Empty(t, analyzer.calls)
	assert.Contains(t, out.String(), Exiting)
}

func TestEndToEndWithEchoModel(t *testing.T) {
	pipeline := &analysis.Pipeline{Invoker: echoInvoker{}}
	out := run(t, "\n{\"amount\": 5000, \"currency\": \"USD\"}\n\nq\n", pipeline)

	assert.Contains(t, out, `"amount": 5000`)
	assert.Contains(t, out, "Retrieved RAG context (if any):\n"+analysis.NotProvided+"\n")
	assert.Contains(t, out, OutputHeader)
	assert.True(t, strings.HasSuffix(out, Exiting+"\n"))
}
