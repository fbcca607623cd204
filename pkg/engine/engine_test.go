package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/status"
	"github.com/palantir/stacktrace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evenodd")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCLIInvocations(t *testing.T) {
	workDir := t.TempDir()
	cli := NewCLI(engineScript(t, `echo "$@" >> calls.log`), workDir, 0)
	ctx := context.Background()

	_, err := cli.Write(ctx, 5, "input_data/file_0.dat", "file_0.dat")
	require.NoError(t, err)
	_, err = cli.Read(ctx, 5, "file_0.dat", "output_data/file_0.dat")
	require.NoError(t, err)
	_, err = cli.Repair(ctx, 5, 1, 4)
	require.NoError(t, err)
	_, err = cli.Repair(ctx, 5, 3)
	require.NoError(t, err)

	calls, err := os.ReadFile(filepath.Join(workDir, "calls.log"))
	require.NoError(t, err)
	assert.Equal(t, "write 5 input_data/file_0.dat file_0.dat\n"+
		"read 5 file_0.dat output_data/file_0.dat\n"+
		"repair 5 1 4\n"+
		"repair 5 3\n", string(calls))
}

func TestCLIFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		timeout  time.Duration
		wantType cerrors.ErrorType
		wantCode int
	}{
		{name: "non-zero exit", body: "echo too many disks lost >&2\nexit 2", wantType: cerrors.ErrorTypeEngine, wantCode: 2},
		{name: "timeout", body: "sleep 5", timeout: 100 * time.Millisecond, wantType: cerrors.ErrorTypeTimeout, wantCode: cerrors.TimeoutExitCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := NewCLI(engineScript(t, tt.body), t.TempDir(), tt.timeout)

			_, err := cli.Read(context.Background(), 5, "file_7.dat", "out/file_7.dat")
			require.Error(t, err)

			_, errType := cerrors.GetRootCauseAndErrorCode(err)
			assert.Equal(t, tt.wantType, errType)

			engineErr, ok := stacktrace.RootCause(err).(cerrors.Engine)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, engineErr.ExitCode)
			assert.Contains(t, engineErr.Command, "read 5 file_7.dat out/file_7.dat")
		})
	}
}

func TestCLINonZeroExitCarriesStderr(t *testing.T) {
	cli := NewCLI(engineScript(t, "echo disk_3 unreadable >&2\nexit 1"), t.TempDir(), 0)

	_, err := cli.Write(context.Background(), 5, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk_3 unreadable")
	assert.Contains(t, err.Error(), "exit code 1")
}

func TestCLIMissingBinary(t *testing.T) {
	cli := NewCLI(filepath.Join(t.TempDir(), "absent"), t.TempDir(), 0)

	_, err := cli.Write(context.Background(), 5, "a", "b")
	require.Error(t, err)
	_, errType := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeEngine, errType)
}

func TestValidateRepairTargets(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int
		wantErr bool
	}{
		{name: "single node", ids: []int{2}},
		{name: "two nodes", ids: []int{0, 6}},
		{name: "no node", ids: nil, wantErr: true},
		{name: "three nodes", ids: []int{1, 2, 3}, wantErr: true},
		{name: "duplicate node", ids: []int{4, 4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepairTargets(tt.ids)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, cerrors.ErrorTypeFaultInjection, cerrors.GetErrorType(err))
		})
	}
}

func TestCLIRepairRejectsBadTargetsWithoutRunning(t *testing.T) {
	workDir := t.TempDir()
	cli := NewCLI(engineScript(t, "touch ran"), workDir, 0)

	_, err := cli.Repair(context.Background(), 5, 1, 1)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(workDir, "ran"))
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o444))
	return path
}

func TestFakeWriteReadRoundTrip(t *testing.T) {
	workDir := t.TempDir()
	fake := NewFake(workDir, 7)
	ctx := context.Background()
	src := writeSource(t, t.TempDir(), "file_0.dat", "payload")

	_, err := fake.Write(ctx, 5, src, "file_0.dat")
	require.NoError(t, err)

	active, err := status.NewRegistry(workDir).ListActive()
	require.NoError(t, err)
	assert.Len(t, active, 7)

	dest := filepath.Join(workDir, "output_data", "file_0.dat")
	_, err = fake.Read(ctx, 5, "file_0.dat", dest)
	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	assert.Equal(t, 1, fake.Calls["write"])
	assert.Equal(t, 1, fake.Calls["read"])
}

func TestFakeReadTolerance(t *testing.T) {
	workDir := t.TempDir()
	fake := NewFake(workDir, 7)
	fake.Tolerance = 2
	ctx := context.Background()
	src := writeSource(t, t.TempDir(), "file_0.dat", "payload")
	_, err := fake.Write(ctx, 5, src, "file_0.dat")
	require.NoError(t, err)

	registry := status.NewRegistry(workDir)
	require.NoError(t, os.Rename(registry.NodeDir(1), registry.FaultedDir(1)))
	require.NoError(t, os.Rename(registry.NodeDir(4), registry.FaultedDir(4)))
	_, err = fake.Read(ctx, 5, "file_0.dat", filepath.Join(workDir, "out"))
	require.NoError(t, err)

	require.NoError(t, os.Rename(registry.NodeDir(5), registry.FaultedDir(5)))
	_, err = fake.Read(ctx, 5, "file_0.dat", filepath.Join(workDir, "out2"))
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeEngine, cerrors.GetErrorType(err))
}

func TestFakeRecreatesMissingNodes(t *testing.T) {
	workDir := t.TempDir()
	fake := NewFake(workDir, 7)
	fake.RecreateMissingNodes = true
	ctx := context.Background()
	src := writeSource(t, t.TempDir(), "file_0.dat", "payload")
	_, err := fake.Write(ctx, 5, src, "file_0.dat")
	require.NoError(t, err)

	registry := status.NewRegistry(workDir)
	require.NoError(t, os.Rename(registry.NodeDir(2), registry.FaultedDir(2)))
	_, err = fake.Read(ctx, 5, "file_0.dat", filepath.Join(workDir, "out"))
	require.NoError(t, err)

	assert.DirExists(t, registry.NodeDir(2))
	assert.NoFileExists(t, filepath.Join(registry.NodeDir(2), "file_0.dat"))
	assert.DirExists(t, registry.FaultedDir(2))
}

func TestFakeRepair(t *testing.T) {
	tests := []struct {
		name        string
		corrupt     bool
		wantContent string
	}{
		{name: "faithful repair", wantContent: "payload"},
		{name: "corrupting repair", corrupt: true, wantContent: string([]byte{'p' ^ 0xff}) + "ayload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workDir := t.TempDir()
			fake := NewFake(workDir, 7)
			fake.CorruptRepair = tt.corrupt
			ctx := context.Background()
			src := writeSource(t, t.TempDir(), "file_0.dat", "payload")
			_, err := fake.Write(ctx, 5, src, "file_0.dat")
			require.NoError(t, err)

			registry := status.NewRegistry(workDir)
			require.NoError(t, os.Rename(registry.NodeDir(0), registry.FaultedDir(0)))
			require.NoError(t, os.Rename(registry.NodeDir(3), registry.FaultedDir(3)))

			_, err = fake.Repair(ctx, 5, 0, 3)
			require.NoError(t, err)
			for _, id := range []int{0, 3} {
				got, err := os.ReadFile(filepath.Join(registry.NodeDir(id), "file_0.dat"))
				require.NoError(t, err)
				assert.Equal(t, tt.wantContent, string(got))
			}
		})
	}
}

func TestFakeInjectedFailure(t *testing.T) {
	fake := NewFake(t.TempDir(), 7)
	fake.FailOps["repair"] = true

	_, err := fake.Repair(context.Background(), 5, 1)
	require.Error(t, err)
	var engineErr cerrors.Engine
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "fake repair 5 1", engineErr.Command)
	assert.Equal(t, 1, engineErr.ExitCode)
}

func TestFakeStoppedContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func() (context.Context, context.CancelFunc)
		wantType cerrors.ErrorType
	}{
		{
			name:     "deadline exceeded",
			ctx:      func() (context.Context, context.CancelFunc) { return context.WithTimeout(context.Background(), -time.Second) },
			wantType: cerrors.ErrorTypeTimeout,
		},
		{
			name: "interrupted",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantType: cerrors.ErrorTypeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := NewFake(t.TempDir(), 7)
			ctx, cancel := tt.ctx()
			defer cancel()

			_, err := fake.Read(ctx, 5, "file_0.dat", "out")
			require.Error(t, err)
			assert.Equal(t, tt.wantType, cerrors.GetErrorType(err))
		})
	}
}

func TestCLIInterruptedIsNotTimeout(t *testing.T) {
	cli := NewCLI(engineScript(t, "sleep 5"), t.TempDir(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := cli.Read(ctx, 5, "file_7.dat", "out/file_7.dat")
	require.Error(t, err)

	_, errType := cerrors.GetRootCauseAndErrorCode(err)
	assert.Equal(t, cerrors.ErrorTypeGeneric, errType)
	engineErr, ok := stacktrace.RootCause(err).(cerrors.Engine)
	require.True(t, ok)
	assert.Equal(t, cerrors.CanceledExitCode, engineErr.ExitCode)
}

var _ StorageEngine = (*CLI)(nil)
var _ StorageEngine = (*Fake)(nil)
