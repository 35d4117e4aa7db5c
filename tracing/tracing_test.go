package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWritesSpans(t *testing.T) {
	output := filepath.Join(t.TempDir(), "spans.json")
	assert.Nil(t, Init("stratus", "0.0.1", output))

	_, span := StartSpan(context.Background(), "test-operation", "INTERNAL")
	span.WithAttributes(map[string]string{"session": "study-7"})
	EndSpan(span, nil)

	data, err := os.ReadFile(output)
	assert.Nil(t, err)
	assert.NotEmpty(t, data, "the exporter rendered the span")
}

func TestNilSpanIsInert(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.SetStatus(nil)
	span.SetStatusFromHTTPCode(200)
	EndSpan(span, nil)
}
