// Package console runs the interactive paste-and-analyze loop.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/txjson"
)

// Messages printed by the loop.
const (
	Separator     = "-------------------------------"
	TriggerPrompt = "Press Enter to analyze a transaction (q to quit): "
	InputPrompt   = "Paste TRANSACTION JSON (single-line or multi-line). End input with an empty line:"
	NoInput       = "No JSON provided! Please paste the transaction JSON."
	Invoking      = "Invoking model... (this may take a few seconds)"
	OutputHeader  = "===== MODEL OUTPUT ====="
	OutputFooter  = "========================"
	Exiting       = "Exiting..."
)

// Analyzer produces the model output for a decoded transaction.
type Analyzer interface {
	Analyze(ctx context.Context, tx any) string
}

// Console reads transactions from in and writes prompts and results to out.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	analyzer Analyzer

	// AfterAnalysis, if set, runs after each printed result.
	AfterAnalysis func()
}

// New creates a Console.
func New(in io.Reader, out io.Writer, analyzer Analyzer) *Console {
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		analyzer: analyzer,
	}
}

// Run loops until the user quits, input ends at the trigger prompt, or ctx is
// done. Only a failure to read input or write output is returned.
func (c *Console) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return c.printf("\n%s\n", Exiting)
		}

		if err := c.printf("\n%s\n%s", Separator, TriggerPrompt); err != nil {
			return err
		}

		trigger, err := c.readLine()
		if errors.Is(err, io.EOF) {
			return c.printf("\n")
		}
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(trigger), "q") {
			return c.printf("%s\n", Exiting)
		}

		if err := c.analyzeOne(ctx); err != nil {
			return err
		}
	}
}

// analyzeOne reads one pasted transaction and prints its analysis.
func (c *Console) analyzeOne(ctx context.Context) error {
	if err := c.printf("\n%s\n", InputPrompt); err != nil {
		return err
	}

	raw, err := c.readBlock()
	if err != nil {
		return err
	}
	if raw == "" {
		return c.printf("%s\n", NoInput)
	}

	tx, err := txjson.Decode([]byte(raw))
	if err != nil {
		metrics.InvalidInputTotal.Inc()
		return c.printf("Invalid JSON: %v. Please correct the JSON and try again.\n", err)
	}

	if err := c.printf("\n%s\n", Invoking); err != nil {
		return err
	}

	output := c.analyzer.Analyze(ctx, tx)

	if err := c.printf("\n\n%s\n\n%s\n\n%s\n\n", OutputHeader, output, OutputFooter); err != nil {
		return err
	}
	if c.AfterAnalysis != nil {
		c.AfterAnalysis()
	}
	return nil
}

// readBlock reads lines until a blank line or end of input and returns them
// joined and trimmed.
func (c *Console) readBlock() (string, error) {
	var lines []string
	for {
		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// readLine returns the next line without its terminator. A final line with no
// newline is returned before io.EOF.
func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (c *Console) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(c.out, format, args...)
	return err
}
