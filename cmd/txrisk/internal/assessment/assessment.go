// Package assessment reads the risk verdict a model claims in its output.
// The result is advisory: model text is printed unchanged whatever it contains.
package assessment

import (
	"encoding/json"
	"strings"
)

// Decisions, from most to least severe.
const (
	Decline = "DECLINE"
	Review  = "REVIEW"
	Approve = "APPROVE"
)

// Score boundaries for DecisionFor.
const (
	DeclineThreshold = 0.70
	ReviewThreshold  = 0.40
)

// Assessment is the verdict object a model is asked to return.
type Assessment struct {
	RiskScore   float64  `json:"risk_score"`
	Decision    string   `json:"decision"`
	Triggers    []string `json:"triggers"`
	Explanation string   `json:"explanation"`

	HasScore bool `json:"-"`
}

// DecisionFor maps a risk score to a decision.
func DecisionFor(score float64) string {
	switch {
	case score >= DeclineThreshold:
		return Decline
	case score >= ReviewThreshold:
		return Review
	default:
		return Approve
	}
}

// Consistent reports whether the stated decision matches the stated score.
// It is false when either is missing.
func (a Assessment) Consistent() bool {
	if !a.HasScore || a.Decision == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Decision), DecisionFor(a.RiskScore))
}

// NormalizedDecision returns the decision in upper case, or "" when it is not
// one of the three known decisions.
func (a Assessment) NormalizedDecision() string {
	d := strings.ToUpper(strings.TrimSpace(a.Decision))
	switch d {
	case Decline, Review, Approve:
		return d
	}
	return ""
}

// Parse finds the first JSON object in text that decodes as an assessment.
// Fields with unexpected types are left empty. It reports false when no
// object is found.
func Parse(text string) (Assessment, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchingBrace(text, start)
		if end < 0 {
			return Assessment{}, false
		}
		if a, ok := decode(text[start : end+1]); ok {
			return a, true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return Assessment{}, false
}

// matchingBrace returns the index of the brace closing the one at start,
// skipping braces inside strings, or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decode(raw string) (Assessment, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Assessment{}, false
	}

	var a Assessment
	found := false
	if v, ok := fields["risk_score"]; ok {
		var score float64
		if json.Unmarshal(v, &score) == nil {
			a.RiskScore = score
			a.HasScore = true
			found = true
		}
	}
	if v, ok := fields["decision"]; ok {
		if json.Unmarshal(v, &a.Decision) == nil {
			found = true
		}
	}
	if v, ok := fields["triggers"]; ok {
		var triggers []any
		if json.Unmarshal(v, &triggers) == nil {
			for _, t := range triggers {
				if s, ok := t.(string); ok {
					a.Triggers = append(a.Triggers, s)
				}
			}
		}
	}
	if v, ok := fields["explanation"]; ok {
		_ = json.Unmarshal(v, &a.Explanation)
	}

	return a, found
}
