package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, Decline},
		{0.70, Decline},
		{0.69, Review},
		{0.40, Review},
		{0.39, Approve},
		{0, Approve},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecisionFor(tt.score), "score %v", tt.score)
	}
}

func TestParse(t *testing.T) {
	text := "Here is my analysis.\n```json\n" +
		`{"risk_score": 0.75, "decision": "DECLINE", "triggers": ["high amount", 3, "new user"], "explanation": "Amount {unusual}"}` +
		"\n```\nThanks."

	a, ok := Parse(text)
	assert.True(t, ok)
	assert.InDelta(t, 0.75, a.RiskScore, 1e-9)
	assert.True(t, a.HasScore)
	assert.Equal(t, "DECLINE", a.Decision)
	assert.Equal(t, []string{"high amount", "new user"}, a.Triggers)
	assert.Equal(t, "Amount {unusual}", a.Explanation)
	assert.True(t, a.Consistent())
}

func TestParseSkipsUnrelatedObjects(t *testing.T) {
	text := `Input was {"amount": 5000}. Result: {"risk_score": 0.5, "decision": "review"}`

	a, ok := Parse(text)
	assert.True(t, ok)
	assert.Equal(t, "review", a.Decision)
	assert.Equal(t, Review, a.NormalizedDecision())
	assert.True(t, a.Consistent())
}

func TestParseLenientFields(t *testing.T) {
	a, ok := Parse(`{"risk_score": "high", "decision": "APPROVE"}`)
	assert.True(t, ok)
	assert.False(t, a.HasScore)
	assert.False(t, a.Consistent())

	a, ok = Parse(`{"risk_score": 0.9, "decision": "APPROVE"}`)
	assert.True(t, ok)
	assert.False(t, a.Consistent())
}

func TestParseNoAssessment(t *testing.T) {
	for _, text := range []string{
		"",
		"ERROR invoking model: Timeout: deadline exceeded",
		`{"risk_score": 0.5`,
		`{"amount": 5000}`,
		`{not json}`,
	} {
		_, ok := Parse(text)
		assert.False(t, ok, "text %q", text)
	}
}

func TestNormalizedDecisionUnknown(t *testing.T) {
	assert.Equal(t, "", Assessment{Decision: "ESCALATE"}.NormalizedDecision())
}
