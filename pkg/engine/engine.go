// Package engine drives the erasure-coding storage engine under test.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/telemetry"
	litmusexec "github.com/litmuschaos/evenodd-chaos/pkg/utils/exec"
	"github.com/palantir/stacktrace"
)

// StorageEngine is the capability the campaign needs from the engine under test.
// Every operation blocks until the engine is done and returns the wall-clock time it took.
type StorageEngine interface {
	// Write ingests sourcePath under fileID with parity width p
	Write(ctx context.Context, p int, sourcePath, fileID string) (time.Duration, error)
	// Read reconstructs fileID into destPath
	Read(ctx context.Context, p int, fileID, destPath string) (time.Duration, error)
	// Repair regenerates the directories of one or two missing nodes
	Repair(ctx context.Context, p int, nodeIDs ...int) (time.Duration, error)
}

// CLI runs the engine binary as a subprocess in the working area:
//
//	<engine> write <p> <sourcePath> <fileId>
//	<engine> read <p> <fileId> <destPath>
//	<engine> repair <p> <nodeId0> [nodeId1]
type CLI struct {
	commandDetails litmusexec.CommandDetails
}

// NewCLI returns the subprocess engine, timeout 0 waits for the engine forever
func NewCLI(enginePath, workDir string, timeout time.Duration) *CLI {
	c := &CLI{}
	litmusexec.SetExecCommandAttributes(&c.commandDetails, enginePath, workDir, timeout)
	return c
}

func (c *CLI) Write(ctx context.Context, p int, sourcePath, fileID string) (time.Duration, error) {
	return c.run(ctx, "write", strconv.Itoa(p), sourcePath, fileID)
}

func (c *CLI) Read(ctx context.Context, p int, fileID, destPath string) (time.Duration, error) {
	return c.run(ctx, "read", strconv.Itoa(p), fileID, destPath)
}

func (c *CLI) Repair(ctx context.Context, p int, nodeIDs ...int) (time.Duration, error) {
	if err := ValidateRepairTargets(nodeIDs); err != nil {
		return 0, err
	}
	args := []string{"repair", strconv.Itoa(p)}
	for _, id := range nodeIDs {
		args = append(args, strconv.Itoa(id))
	}
	return c.run(ctx, args...)
}

func (c *CLI) run(ctx context.Context, args ...string) (time.Duration, error) {
	log.Debugf("[Engine]: Running %s", litmusexec.CommandLine(c.commandDetails.Path, args...))

	commandDetails := c.commandDetails
	if traceParent := telemetry.GetMarshalledSpanFromContext(ctx); traceParent != "" {
		commandDetails.Env = []string{telemetry.TraceParent + "=" + traceParent}
	}

	result, err := litmusexec.Exec(ctx, &commandDetails, args...)
	if err != nil {
		return result.Duration, stacktrace.Propagate(cerrors.Engine{
			Command:  result.Command,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Reason:   err.Error(),
		}, "engine invocation did not complete")
	}
	if result.ExitCode != 0 {
		return result.Duration, cerrors.Engine{
			Command:  result.Command,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return result.Duration, nil
}

// ValidateRepairTargets checks that a repair names one or two distinct nodes
func ValidateRepairTargets(nodeIDs []int) error {
	if len(nodeIDs) < 1 || len(nodeIDs) > experimentTypes.MaxRepairTargets {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Repair", Reason: fmt.Sprintf("repair takes one or two nodes, got %d", len(nodeIDs))}
	}
	if len(nodeIDs) == 2 && nodeIDs[0] == nodeIDs[1] {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Repair", Reason: fmt.Sprintf("repair names node %d twice", nodeIDs[0])}
	}
	return nil
}
