package types

import (
	"time"
)

// Verdict is the externally observable outcome of a campaign
type Verdict string

const (
	// AwaitedVerdict marked the start of test
	AwaitedVerdict Verdict = "Awaited"
	// PassVerdict marked the verdict as passed in the end of experiment
	PassVerdict Verdict = "Pass"
	// FailVerdict marked the verdict as failed in the end of experiment
	FailVerdict Verdict = "Fail"
)

const (
	// PreChaosCheck initial stage of experiment check for health before chaos injection
	PreChaosCheck string = "PreChaosCheck"
	// PostChaosCheck  pre-final stage of experiment check for health after chaos injection
	PostChaosCheck string = "PostChaosCheck"
	// ChaosInject this stage refer to the fault injection on the storage nodes
	ChaosInject string = "ChaosInject"
	// ChaosRestore this stage refer to the restoration of the faulted storage nodes
	ChaosRestore string = "ChaosRestore"
	// Summary final stage of experiment update the verdict
	Summary string = "Summary"
)

// State is a step of the scenario state machine
type State string

const (
	StateGeneratingCorpus      State = "GeneratingCorpus"
	StateWritingAll            State = "WritingAll"
	StateReadingSubsetHealthy  State = "ReadingSubsetHealthy"
	StateFaultInjected         State = "FaultInjected"
	StateReadingSubsetDegraded State = "ReadingSubsetDegraded"
	StateRestored              State = "Restored"
	StateRepairedVerified      State = "Repaired&Verified"
	StateFinalSweep            State = "FinalSweep"
	StatePassed                State = "Passed"
	StateFailed                State = "Failed"
)

// AssertionKind tells which granularity an assertion was checked at
type AssertionKind string

const (
	FileAssertion  AssertionKind = "file"
	NodeAssertion  AssertionKind = "node"
	SweepAssertion AssertionKind = "sweep"
)

// TestFile is one ground truth file of the corpus
type TestFile struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest uint64 `json:"digest"`
}

// PhaseTimings holds the cumulative engine time spent per phase
type PhaseTimings struct {
	Write        time.Duration
	HealthyRead  time.Duration
	DegradedRead time.Duration
	Repair       time.Duration
}

// Round is one fault/verify cycle of the campaign
type Round struct {
	Kind         string        `json:"kind"`
	Index        int           `json:"index"`
	FaultedNodes []int         `json:"faultedNodes"`
	Verified     int           `json:"verified"`
	Duration     time.Duration `json:"duration"`
	Passed       bool          `json:"passed"`
}

// Assertion is the outcome of one comparison made by the verification oracle
type Assertion struct {
	Kind   AssertionKind `json:"kind"`
	Target string        `json:"target"`
	Passed bool          `json:"passed"`
	Reason string        `json:"reason,omitempty"`
}

// Event is an audit entry recorded while the campaign runs
type Event struct {
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventDetails is for collecting all the events-related details
type EventDetails struct {
	Message string
	Reason  string
	Type    string
}

// ChaosDetails is for collecting all the global variables
type ChaosDetails struct {
	ExperimentName string
	InstanceID     string
	RunID          string
}

// ResultDetails is for collecting all the campaign-result-related details
type ResultDetails struct {
	Name       string
	RunID      string
	Verdict    Verdict
	Phase      string
	FailStep   string
	ErrorCode  string
	State      State
	StartTime  time.Time
	EndTime    time.Time
	Timings    PhaseTimings
	Corpus     []TestFile
	Rounds     []Round
	Assertions []Assertion
	Events     []Event
}

//SetResultAttributes initialise all the chaos result ENV
func SetResultAttributes(resultDetails *ResultDetails, chaosDetails ChaosDetails) {
	resultDetails.Verdict = AwaitedVerdict
	resultDetails.Phase = "Running"
	resultDetails.FailStep = "N/A"
	resultDetails.RunID = chaosDetails.RunID
	resultDetails.StartTime = time.Now()
	resultDetails.Name = chaosDetails.ExperimentName
	if chaosDetails.InstanceID != "" {
		resultDetails.Name = resultDetails.Name + "-" + chaosDetails.InstanceID
	}
}

//SetResultAfterCompletion set all the chaos result ENV in the EOT
func SetResultAfterCompletion(resultDetails *ResultDetails, verdict Verdict, phase string, failStep string) {
	resultDetails.Verdict = verdict
	resultDetails.Phase = phase
	resultDetails.FailStep = failStep
	resultDetails.EndTime = time.Now()
	if verdict == PassVerdict {
		resultDetails.State = StatePassed
	} else {
		resultDetails.State = StateFailed
	}
}

//SetEventAttributes initialise attributes for event generation
func SetEventAttributes(eventsDetails *EventDetails, reason, message, eventType string) {
	eventsDetails.Reason = reason
	eventsDetails.Message = message
	eventsDetails.Type = eventType
}

// RecordAssertion appends the outcome of a comparison
func (r *ResultDetails) RecordAssertion(a Assertion) {
	r.Assertions = append(r.Assertions, a)
}

// FailedAssertions returns every assertion that did not hold
func (r *ResultDetails) FailedAssertions() []Assertion {
	var failed []Assertion
	for _, a := range r.Assertions {
		if !a.Passed {
			failed = append(failed, a)
		}
	}
	return failed
}

// AllPassed is the final predicate of the campaign
func (r *ResultDetails) AllPassed() bool {
	return len(r.FailedAssertions()) == 0
}
