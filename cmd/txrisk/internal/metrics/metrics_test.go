package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWriteTextfile(t *testing.T) {
	RetrievalsTotal.WithLabelValues("ok").Inc()
	InvalidInputTotal.Inc()

	path := filepath.Join(t.TempDir(), "txrisk.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`txrisk_retrievals_total{result="ok"}`,
		"txrisk_invalid_input_total",
		"# HELP txrisk_records_loaded_total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	if err := WriteTextfile(""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(DocumentsIndexedTotal)
	DocumentsIndexedTotal.Add(3)
	if got := testutil.ToFloat64(DocumentsIndexedTotal); got != before+3 {
		t.Errorf("documents_indexed_total = %v, want %v", got, before+3)
	}

	InferenceRequestsTotal.WithLabelValues("ok").Inc()
	InferenceRequestsTotal.WithLabelValues("error").Inc()
	if n := testutil.CollectAndCount(InferenceRequestsTotal); n != 2 {
		t.Errorf("inference_requests_total series = %d, want 2", n)
	}
}
