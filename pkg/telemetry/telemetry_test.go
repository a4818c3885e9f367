package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNoop(t *testing.T) {
	p, err := New(context.Background(), Options{})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "wbt.run")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestExporterReceivesSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := New(context.Background(), Options{Exporter: exp})
	require.NoError(t, err)

	ctx, parent := p.Tracer().Start(context.Background(), "wbt.run")
	_, child := p.Tracer().Start(ctx, "wbt.attack")
	child.SetAttributes(attribute.Int("requests", 3))
	child.End()
	parent.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "wbt.attack", spans[0].Name)
	assert.Equal(t, "wbt.run", spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())

	var service string
	for _, kv := range spans[1].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "wbt", service)
	require.NoError(t, p.Shutdown(context.Background()))
}
