package result

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/events"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
	"github.com/natefinch/atomic"
	"github.com/palantir/stacktrace"
)

// CampaignResult is the JSON document handed to CI at the start and at the end of a campaign
type CampaignResult struct {
	Name       string            `json:"name"`
	RunID      string            `json:"runId"`
	Phase      string            `json:"phase"`
	Verdict    types.Verdict     `json:"verdict"`
	State      types.State       `json:"state,omitempty"`
	FailStep   string            `json:"failStep"`
	ErrorCode  string            `json:"errorCode,omitempty"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    *time.Time        `json:"endTime,omitempty"`
	Timings    Timings           `json:"timingsSeconds"`
	Corpus     CorpusSummary     `json:"corpus"`
	Rounds     []Round           `json:"rounds"`
	Assertions AssertionSummary  `json:"assertions"`
	Failed     []types.Assertion `json:"failedAssertions,omitempty"`
	Events     []types.Event     `json:"events,omitempty"`
}

// Timings are the cumulative per-phase engine times, in seconds
type Timings struct {
	Write        float64 `json:"write"`
	HealthyRead  float64 `json:"healthyRead"`
	DegradedRead float64 `json:"degradedRead"`
	Repair       float64 `json:"repair"`
}

// CorpusSummary describes the generated ground truth
type CorpusSummary struct {
	Files      int   `json:"files"`
	TotalBytes int64 `json:"totalBytes"`
}

// Round is a fault round with its duration in seconds
type Round struct {
	Kind         string  `json:"kind"`
	Index        int     `json:"index"`
	FaultedNodes []int   `json:"faultedNodes"`
	Verified     int     `json:"verified"`
	Seconds      float64 `json:"seconds"`
	Passed       bool    `json:"passed"`
}

// AssertionSummary counts the oracle outcomes
type AssertionSummary struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// ChaosResult writes the campaign result to path, SOT marks the start and EOT the completion.
// An empty path skips the write.
func ChaosResult(resultDetails *types.ResultDetails, state, path string) error {
	if state != "SOT" {
		resultDetails.Phase = "Completed"
	}
	if path == "" {
		return nil
	}

	log.Infof("[Result]: Writing the %s campaign result to %s", state, path)
	return WriteResult(resultDetails, path)
}

// RecordAfterFailure marks the campaign failed at failStep with the root cause of err,
// then writes the final result
func RecordAfterFailure(resultDetails *types.ResultDetails, failStep string, err error, eventsDetails *types.EventDetails, path string) {
	if failStep == "" || failStep == "N/A" {
		failStep = CampaignAborted
	}
	rootCause, errCode := cerrors.GetRootCauseAndErrorCode(err)
	resultDetails.ErrorCode = string(errCode)
	types.SetResultAfterCompletion(resultDetails, types.FailVerdict, "Completed", failStep+", "+rootCause)

	types.SetEventAttributes(eventsDetails, types.Summary, "campaign failed: "+rootCause, "Warning")
	events.GenerateEvents(eventsDetails, resultDetails)

	if err := ChaosResult(resultDetails, "EOT", path); err != nil {
		log.Errorf("Unable to write the campaign result, err: %v", err)
	}
}

// WriteResult atomically replaces path with the JSON rendering of the result
func WriteResult(resultDetails *types.ResultDetails, path string) error {
	content, err := json.MarshalIndent(NewCampaignResult(resultDetails), "", "  ")
	if err != nil {
		return stacktrace.Propagate(cerrors.Error{ErrorCode: cerrors.ErrorTypeResult, Target: path, Reason: err.Error()}, "could not marshal the result")
	}
	content = append(content, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return stacktrace.Propagate(cerrors.Error{ErrorCode: cerrors.ErrorTypeResult, Target: path, Reason: err.Error()}, "could not write the result")
	}
	return nil
}

// NewCampaignResult converts the in-memory result into its JSON document
func NewCampaignResult(resultDetails *types.ResultDetails) CampaignResult {
	r := CampaignResult{
		Name:      resultDetails.Name,
		RunID:     resultDetails.RunID,
		Phase:     resultDetails.Phase,
		Verdict:   resultDetails.Verdict,
		State:     resultDetails.State,
		FailStep:  resultDetails.FailStep,
		ErrorCode: resultDetails.ErrorCode,
		StartTime: resultDetails.StartTime,
		Timings: Timings{
			Write:        resultDetails.Timings.Write.Seconds(),
			HealthyRead:  resultDetails.Timings.HealthyRead.Seconds(),
			DegradedRead: resultDetails.Timings.DegradedRead.Seconds(),
			Repair:       resultDetails.Timings.Repair.Seconds(),
		},
		Rounds: make([]Round, 0, len(resultDetails.Rounds)),
		Failed: resultDetails.FailedAssertions(),
		Events: resultDetails.Events,
	}
	if !resultDetails.EndTime.IsZero() {
		end := resultDetails.EndTime
		r.EndTime = &end
	}
	for _, f := range resultDetails.Corpus {
		r.Corpus.Files++
		r.Corpus.TotalBytes += f.Size
	}
	for _, round := range resultDetails.Rounds {
		r.Rounds = append(r.Rounds, Round{
			Kind:         round.Kind,
			Index:        round.Index,
			FaultedNodes: round.FaultedNodes,
			Verified:     round.Verified,
			Seconds:      round.Duration.Seconds(),
			Passed:       round.Passed,
		})
	}
	r.Assertions.Failed = len(r.Failed)
	r.Assertions.Passed = len(resultDetails.Assertions) - r.Assertions.Failed
	return r
}
