// Package probe is the verification oracle: it compares what the engine hands back
// against the ground truth and aggregates the outcomes into the campaign verdict.
package probe

import (
	"fmt"
	"strings"

	"github.com/kyokomi/emoji"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
)

// Verdict aggregates the assertion outcomes of a campaign
type Verdict struct {
	Passed      int
	Failed      int
	FailedItems []string
}

// Summarize folds the assertions recorded so far into a verdict
func Summarize(assertions []types.Assertion) Verdict {
	v := Verdict{}
	for _, a := range assertions {
		if a.Passed {
			v.Passed++
			continue
		}
		v.Failed++
		v.FailedItems = append(v.FailedItems, fmt.Sprintf("%s %s", a.Kind, a.Target))
	}
	return v
}

// Result converts the aggregate into the externally visible verdict
func (v Verdict) Result() types.Verdict {
	if v.Failed == 0 {
		return types.PassVerdict
	}
	return types.FailVerdict
}

func (v Verdict) String() string {
	if v.Failed == 0 {
		return fmt.Sprintf("%d/%d assertions passed", v.Passed, v.Passed) + emoji.Sprint(" :thumbsup:")
	}
	return fmt.Sprintf("%d/%d assertions failed [%s]", v.Failed, v.Passed+v.Failed, strings.Join(v.FailedItems, ", ")) + emoji.Sprint(" :thumbsdown:")
}

// VerifyFile compares a read-back file against its source and records the outcome
func VerifyFile(resultDetails *types.ResultDetails, target, expected, actual string) (bool, error) {
	m, err := FilesEqual(expected, actual)
	if err != nil {
		return false, err
	}
	assertion := types.Assertion{Kind: types.FileAssertion, Target: target, Passed: m == nil}
	if m != nil {
		assertion.Reason = m.String()
		log.ErrorWithValues("[Probe]: Read-back content does not match its source", log.Fields{
			"File":   target,
			"Reason": assertion.Reason,
		})
	}
	resultDetails.RecordAssertion(assertion)
	return assertion.Passed, nil
}

// VerifyTree compares a directory tree against its reference and records the outcome
// under the given assertion kind
func VerifyTree(resultDetails *types.ResultDetails, kind types.AssertionKind, target, expectedDir, actualDir string) (bool, error) {
	mismatches, err := TreesEqual(expectedDir, actualDir)
	if err != nil {
		return false, err
	}
	assertion := types.Assertion{Kind: kind, Target: target, Passed: len(mismatches) == 0}
	if len(mismatches) != 0 {
		reasons := make([]string, 0, len(mismatches))
		for _, m := range mismatches {
			reasons = append(reasons, m.String())
		}
		assertion.Reason = strings.Join(reasons, "; ")
		log.ErrorWithValues("[Probe]: Node tree does not match its reference", log.Fields{
			"Node":       target,
			"Mismatches": len(mismatches),
			"Reason":     assertion.Reason,
		})
	}
	resultDetails.RecordAssertion(assertion)
	return assertion.Passed, nil
}

// ReportVerdict aggregates the recorded assertions and logs the outcome
func ReportVerdict(resultDetails *types.ResultDetails) Verdict {
	v := Summarize(resultDetails.Assertions)
	if v.Failed == 0 {
		log.Infof("[Probe]: %s", v)
	} else {
		log.Errorf("[Probe]: %s", v)
	}
	return v
}
