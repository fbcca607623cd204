package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTraceParentContext(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "unset", value: ""},
		{name: "valid carrier", value: `{"traceparent":"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}`},
		{name: "malformed", value: "not-json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(TraceParent, tt.value)
			ctx, err := GetTraceParentContext()
			require.NotNil(t, ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStartTracingWithoutProvider(t *testing.T) {
	ctx, span := StartTracing(context.Background(), "Campaign")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.Equal(t, "", GetMarshalledSpanFromContext(ctx))
}
