// Package inference calls the text-generation model and contains its failures.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	ollama "github.com/jason-riddle/ollama-go"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/logging"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
)

// Error categories reported in failed invocations.
const (
	CategoryAPI        = "APIError"
	CategoryTimeout    = "Timeout"
	CategoryCanceled   = "Canceled"
	CategoryConnection = "ConnectionError"
	CategoryDecode     = "DecodeError"
	CategoryOther      = "InferenceError"
)

// ErrorPrefix starts every failed invocation result.
const ErrorPrefix = "ERROR invoking model: "

// Generator runs a single completion. *ollama.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req *ollama.GenerateRequest) (*ollama.GenerateResponse, error)
}

// Invoker sends prompts to a model with deterministic sampling.
type Invoker struct {
	gen   Generator
	model string
}

// NewInvoker creates an Invoker for model.
func NewInvoker(gen Generator, model string) *Invoker {
	return &Invoker{gen: gen, model: model}
}

// Model returns the model name sent with every request.
func (i *Invoker) Model() string {
	return i.model
}

// Invoke returns the model's text for prompt. Failures are returned as text
// starting with ErrorPrefix followed by the error category and message.
func (i *Invoker) Invoke(ctx context.Context, prompt string) string {
	start := time.Now()
	text, err := i.generate(ctx, prompt)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues("error").Inc()
		logging.L(ctx).Error("Model invocation failed", "model", i.model, "category", Category(err), "error", err)
		if ollama.IsNotFound(err) {
			logging.L(ctx).Warn("Model not found; pull it with `ollama pull`", "model", i.model)
		}
		return Render(err)
	}

	metrics.InferenceRequestsTotal.WithLabelValues("ok").Inc()
	logging.L(ctx).Debug("Model invocation finished",
		"model", i.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_len", len(text),
	)
	return text
}

func (i *Invoker) generate(ctx context.Context, prompt string) (text string, err error) {
	if i.gen == nil {
		return "", errors.New("no generator configured")
	}

	// A panicking generator is reported like any other failure.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()

	resp, err := i.gen.Generate(ctx, &ollama.GenerateRequest{
		Model:   i.model,
		Prompt:  prompt,
		Stream:  false,
		Options: &ollama.Options{Temperature: ollama.Float64(0)},
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response")
	}
	return resp.Response, nil
}

// Render formats err as a failed invocation result.
func Render(err error) string {
	return fmt.Sprintf("%s%s: %v", ErrorPrefix, Category(err), err)
}

// Category names the kind of failure behind err.
func Category(err error) string {
	var (
		apiErr    *ollama.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		netErr    net.Error
		urlErr    *url.Error
		opErr     *net.OpError
	)

	switch {
	case errors.As(err, &apiErr):
		return CategoryAPI
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return CategoryTimeout
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return CategoryDecode
	case errors.As(err, &opErr), errors.As(err, &urlErr):
		return CategoryConnection
	default:
		return CategoryOther
	}
}
