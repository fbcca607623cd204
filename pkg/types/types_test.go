package types

import (
	"testing"
)

func TestSetResultAttributes(t *testing.T) {
	resultDetails := ResultDetails{}
	SetResultAttributes(&resultDetails, ChaosDetails{ExperimentName: "evenodd-integrity", InstanceID: "ci", RunID: "abc123"})

	if resultDetails.Name != "evenodd-integrity-ci" {
		t.Errorf("Expected name 'evenodd-integrity-ci', got '%s'", resultDetails.Name)
	}
	if resultDetails.Verdict != AwaitedVerdict {
		t.Errorf("Expected verdict '%s', got '%s'", AwaitedVerdict, resultDetails.Verdict)
	}
	if resultDetails.RunID != "abc123" {
		t.Errorf("Expected run id 'abc123', got '%s'", resultDetails.RunID)
	}
	if resultDetails.StartTime.IsZero() {
		t.Error("Expected start time to be set")
	}
}

func TestSetResultAfterCompletion(t *testing.T) {
	tests := []struct {
		verdict   Verdict
		wantState State
	}{
		{verdict: PassVerdict, wantState: StatePassed},
		{verdict: FailVerdict, wantState: StateFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			resultDetails := ResultDetails{}
			SetResultAfterCompletion(&resultDetails, tt.verdict, "Completed", "N/A")
			if resultDetails.State != tt.wantState {
				t.Errorf("Expected state '%s', got '%s'", tt.wantState, resultDetails.State)
			}
			if resultDetails.EndTime.IsZero() {
				t.Error("Expected end time to be set")
			}
		})
	}
}

func TestAllPassed(t *testing.T) {
	resultDetails := ResultDetails{}
	if !resultDetails.AllPassed() {
		t.Error("Expected an empty campaign to pass")
	}

	resultDetails.RecordAssertion(Assertion{Kind: FileAssertion, Target: "file_0.dat", Passed: true})
	resultDetails.RecordAssertion(Assertion{Kind: NodeAssertion, Target: "disk_2", Passed: false, Reason: "content differs"})

	if resultDetails.AllPassed() {
		t.Error("Expected campaign with a failed assertion not to pass")
	}
	failed := resultDetails.FailedAssertions()
	if len(failed) != 1 || failed[0].Target != "disk_2" {
		t.Errorf("Expected only disk_2 to fail, got %v", failed)
	}
}
