package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/pkg/errors"
)

// maxCapturedOutput bounds how much of each output stream is kept for diagnostics
const maxCapturedOutput = 4096

// CommandDetails contains all the required variables to run an external command
type CommandDetails struct {
	Path    string
	Dir     string
	Timeout time.Duration
	// Env is appended to the environment inherited from the harness
	Env []string
}

// Result is the observed outcome of one command invocation
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

//SetExecCommandAttributes initialise all the details to run the command
func SetExecCommandAttributes(commandDetails *CommandDetails, path, dir string, timeout time.Duration) {
	commandDetails.Path = path
	commandDetails.Dir = dir
	commandDetails.Timeout = timeout
}

// Exec runs the command to completion and reports its exit code and wall-clock duration.
// A non-zero exit is reported through Result.ExitCode, the error is only set when the
// command could not be run or was killed after its timeout or a cancellation.
func Exec(ctx context.Context, commandDetails *CommandDetails, args ...string) (Result, error) {
	if commandDetails.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, commandDetails.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, commandDetails.Path, args...)
	cmd.Dir = commandDetails.Dir
	if len(commandDetails.Env) != 0 {
		cmd.Env = append(os.Environ(), commandDetails.Env...)
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Command:  CommandLine(commandDetails.Path, args...),
		Duration: time.Since(start),
		Stdout:   tail(stdout.String()),
		Stderr:   tail(stderr.String()),
	}

	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		result.ExitCode = cerrors.ContextExitCode(ctxErr)
		return result, errors.Wrapf(ctxErr, "%s did not complete", result.Command)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		result.ExitCode = -1
		return result, errors.Wrapf(err, "unable to run %s", result.Command)
	}
	return result, nil
}

// CommandLine renders a command the way it would be typed in a shell
func CommandLine(path string, args ...string) string {
	return strings.TrimSpace(path + " " + strings.Join(args, " "))
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxCapturedOutput {
		return s
	}
	return "..." + s[len(s)-maxCapturedOutput:]
}
