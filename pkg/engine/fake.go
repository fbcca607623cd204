package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/status"
	"github.com/litmuschaos/evenodd-chaos/pkg/utils/common"
)

// Fake is an in-process engine that mirrors every stored file on all nodes.
// It follows the on-disk conventions of the real engine closely enough to exercise
// the fault injector and the oracle: files live in disk_<i>/<fileId>, missing node
// directories can be re-created on every call, and repair regenerates whole node
// directories from a surviving node.
type Fake struct {
	registry *status.Registry
	nodes    int

	// Tolerance is the number of missing nodes a read survives, nodes-1 when zero
	Tolerance int
	// RecreateMissingNodes creates absent node directories at the start of every call
	RecreateMissingNodes bool
	// TruncateRead names files whose read output loses its last byte
	TruncateRead map[string]bool
	// CorruptRepair flips the first byte of every file regenerated by repair
	CorruptRepair bool
	// FailOps names operations (write, read, repair) that exit non-zero
	FailOps map[string]bool

	// Calls counts the invocations per operation
	Calls map[string]int
}

// NewFake returns a fake engine laying out nodes directories in workDir
func NewFake(workDir string, nodes int) *Fake {
	return &Fake{
		registry:     status.NewRegistry(workDir),
		nodes:        nodes,
		TruncateRead: map[string]bool{},
		FailOps:      map[string]bool{},
		Calls:        map[string]int{},
	}
}

func (f *Fake) Write(ctx context.Context, p int, sourcePath, fileID string) (time.Duration, error) {
	start := time.Now()
	if err := f.begin(ctx, "write", p, sourcePath, fileID); err != nil {
		return time.Since(start), err
	}
	for id := 0; id < f.nodes; id++ {
		active, err := f.registry.IsActive(id)
		if err != nil {
			return time.Since(start), f.fail("write", err, p, sourcePath, fileID)
		}
		if !active {
			if err := os.Mkdir(f.registry.NodeDir(id), 0o755); err != nil {
				return time.Since(start), f.fail("write", err, p, sourcePath, fileID)
			}
		}
		dst := filepath.Join(f.registry.NodeDir(id), fileID)
		os.Remove(dst)
		if err := common.CopyFile(sourcePath, dst); err != nil {
			return time.Since(start), f.fail("write", err, p, sourcePath, fileID)
		}
	}
	return time.Since(start), nil
}

func (f *Fake) Read(ctx context.Context, p int, fileID, destPath string) (time.Duration, error) {
	start := time.Now()
	if err := f.begin(ctx, "read", p, fileID, destPath); err != nil {
		return time.Since(start), err
	}

	holders := []int{}
	for id := 0; id < f.nodes; id++ {
		if _, err := os.Stat(filepath.Join(f.registry.NodeDir(id), fileID)); err == nil {
			holders = append(holders, id)
		}
	}
	missing := f.nodes - len(holders)
	if len(holders) == 0 || missing > f.tolerance() {
		return time.Since(start), f.fail("read", fmt.Errorf("%d node(s) missing, tolerance is %d", missing, f.tolerance()), p, fileID, destPath)
	}

	content, err := os.ReadFile(filepath.Join(f.registry.NodeDir(holders[0]), fileID))
	if err != nil {
		return time.Since(start), f.fail("read", err, p, fileID, destPath)
	}
	if f.TruncateRead[fileID] && len(content) > 0 {
		content = content[:len(content)-1]
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return time.Since(start), f.fail("read", err, p, fileID, destPath)
	}
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return time.Since(start), f.fail("read", err, p, fileID, destPath)
	}
	return time.Since(start), nil
}

func (f *Fake) Repair(ctx context.Context, p int, nodeIDs ...int) (time.Duration, error) {
	start := time.Now()
	args := []interface{}{p}
	for _, id := range nodeIDs {
		args = append(args, id)
	}
	if err := ValidateRepairTargets(nodeIDs); err != nil {
		return 0, err
	}
	if err := f.begin(ctx, "repair", args...); err != nil {
		return time.Since(start), err
	}

	repairing := map[int]bool{}
	for _, id := range nodeIDs {
		repairing[id] = true
	}
	source := -1
	for id := 0; id < f.nodes && source < 0; id++ {
		if repairing[id] {
			continue
		}
		if active, err := f.registry.IsActive(id); err == nil && active {
			source = id
		}
	}
	if source < 0 {
		return time.Since(start), f.fail("repair", fmt.Errorf("no surviving node"), args...)
	}

	for _, id := range nodeIDs {
		if err := os.RemoveAll(f.registry.NodeDir(id)); err != nil {
			return time.Since(start), f.fail("repair", err, args...)
		}
		if err := common.CopyTree(f.registry.NodeDir(source), f.registry.NodeDir(id)); err != nil {
			return time.Since(start), f.fail("repair", err, args...)
		}
		if f.CorruptRepair {
			if err := corruptTree(f.registry.NodeDir(id)); err != nil {
				return time.Since(start), f.fail("repair", err, args...)
			}
		}
	}
	return time.Since(start), nil
}

func (f *Fake) begin(ctx context.Context, op string, args ...interface{}) error {
	f.Calls[op]++
	if err := ctx.Err(); err != nil {
		return cerrors.Engine{Command: commandLine(op, args...), ExitCode: cerrors.ContextExitCode(err), Reason: err.Error()}
	}
	if f.RecreateMissingNodes {
		for id := 0; id < f.nodes; id++ {
			if err := os.MkdirAll(f.registry.NodeDir(id), 0o755); err != nil {
				return f.fail(op, err, args...)
			}
		}
	}
	if f.FailOps[op] {
		return cerrors.Engine{Command: commandLine(op, args...), ExitCode: 1, Stderr: "injected failure"}
	}
	return nil
}

func (f *Fake) fail(op string, err error, args ...interface{}) error {
	return cerrors.Engine{Command: commandLine(op, args...), ExitCode: 1, Stderr: err.Error()}
}

func (f *Fake) tolerance() int {
	if f.Tolerance > 0 {
		return f.Tolerance
	}
	return f.nodes - 1
}

func commandLine(op string, args ...interface{}) string {
	parts := []string{"fake", op}
	for _, arg := range args {
		switch v := arg.(type) {
		case int:
			parts = append(parts, strconv.Itoa(v))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " ")
}

func corruptTree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil || len(content) == 0 {
			continue
		}
		content[0] ^= 0xff
		if err := os.Chmod(path, 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}
