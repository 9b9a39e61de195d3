package ollama

import (
	"context"
	"strings"
)

// ListModels retrieves the models available on the instance.
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	var result ModelList
	if err := c.doRequest(ctx, "GET", "/api/tags", nil, &result); err != nil {
		return nil, wrapError(err, "ListModels")
	}

	return &result, nil
}

// HasModel reports whether name is among the listed models.
// A name without a tag matches its ":latest" variant.
func (l *ModelList) HasModel(name string) bool {
	if l == nil {
		return false
	}
	want := name
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range l.Models {
		if m.Name == name || m.Name == want || m.Model == name || m.Model == want {
			return true
		}
	}
	return false
}
