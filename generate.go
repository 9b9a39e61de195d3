package ollama

import (
	"context"
	"errors"
)

// Generate runs a single non-streamed completion.
// req.Stream is forced to false; streamed responses are not supported.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req == nil {
		return nil, wrapError(errors.New("request is required"), "Generate")
	}
	if req.Model == "" {
		return nil, wrapError(errors.New("model is required"), "Generate")
	}

	body := *req
	body.Stream = false

	var result GenerateResponse
	if err := c.doRequest(ctx, "POST", "/api/generate", &body, &result); err != nil {
		return nil, wrapError(err, "Generate")
	}

	return &result, nil
}
