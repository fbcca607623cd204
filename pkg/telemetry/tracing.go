package telemetry

import (
	"context"
	"encoding/json"
	"os"

	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName  = "litmuschaos.io/evenodd-chaos"
	TraceParent = "TRACE_PARENT"
)

// StartTracing opens a span named spanName as a child of the span carried by ctx
func StartTracing(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName)
}

// GetTraceParentContext returns a context joined to the trace handed down through TRACE_PARENT,
// the background context when the variable is unset
func GetTraceParentContext() (context.Context, error) {
	traceParent := os.Getenv(TraceParent)
	if traceParent == "" {
		return context.Background(), nil
	}

	carrier := make(map[string]string)
	if err := json.Unmarshal([]byte(traceParent), &carrier); err != nil {
		return context.Background(), errors.Wrapf(err, "unable to parse %s", TraceParent)
	}
	return otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier(carrier)), nil
}

// GetMarshalledSpanFromContext Extract spanContext from the context and return it as json encoded string
func GetMarshalledSpanFromContext(ctx context.Context) string {
	carrier := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(carrier))

	if len(carrier) == 0 {
		return ""
	}

	marshalled, err := json.Marshal(carrier)
	if err != nil {
		log.Error(err.Error())
		return ""
	}
	if len(marshalled) >= 1024 {
		log.Error("marshalled span context is too large, unable to marshall")
		return ""
	}
	return string(marshalled)
}
