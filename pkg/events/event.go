package events

import (
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
)

//GenerateEvents records the event in the campaign result and mirrors it on the log
func GenerateEvents(eventsDetails *types.EventDetails, resultDetails *types.ResultDetails) {
	event := types.Event{
		Reason:    eventsDetails.Reason,
		Message:   eventsDetails.Message,
		Type:      eventsDetails.Type,
		Timestamp: time.Now(),
	}
	if event.Type == "" {
		event.Type = "Normal"
	}
	resultDetails.Events = append(resultDetails.Events, event)

	fields := log.Fields{"Reason": event.Reason, "Type": event.Type}
	if event.Type == "Warning" {
		log.ErrorWithValues("[Event]: "+event.Message, fields)
		return
	}
	log.InfoWithValues("[Event]: "+event.Message, fields)
}
