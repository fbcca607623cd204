package events

import (
	"testing"

	"github.com/litmuschaos/evenodd-chaos/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEvents(t *testing.T) {
	resultDetails := types.ResultDetails{}
	eventsDetails := types.EventDetails{}

	types.SetEventAttributes(&eventsDetails, types.ChaosInject, "Injecting fault on disk_1", "")
	GenerateEvents(&eventsDetails, &resultDetails)

	types.SetEventAttributes(&eventsDetails, types.Summary, "evenodd-integrity experiment has been Failed", "Warning")
	GenerateEvents(&eventsDetails, &resultDetails)

	require.Len(t, resultDetails.Events, 2)
	assert.Equal(t, "Normal", resultDetails.Events[0].Type)
	assert.Equal(t, types.ChaosInject, resultDetails.Events[0].Reason)
	assert.Equal(t, "Warning", resultDetails.Events[1].Type)
	assert.False(t, resultDetails.Events[1].Timestamp.Before(resultDetails.Events[0].Timestamp))
}
