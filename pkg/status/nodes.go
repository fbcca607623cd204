package status

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/pkg/errors"
)

// node ids are canonical decimals, disk_01 is not disk_1
const nodeIDPattern = `(0|[1-9]\d*)`

var (
	activeNodeRe  = regexp.MustCompile(`^` + experimentTypes.NodePrefix + nodeIDPattern + `$`)
	faultedNodeRe = regexp.MustCompile(`^` + experimentTypes.FaultedPrefix + experimentTypes.NodePrefix + nodeIDPattern + `$`)
)

// Registry enumerates the storage node directories of a working area.
// Every call reads the filesystem, the engine and the fault injector both rename
// node directories out of band.
type Registry struct {
	workDir string
}

// NewRegistry returns the registry of the node directories found in workDir
func NewRegistry(workDir string) *Registry {
	return &Registry{workDir: workDir}
}

// NodeName returns the active directory name of a node, disk_<id>
func NodeName(id int) string {
	return experimentTypes.NodePrefix + strconv.Itoa(id)
}

// FaultedName returns the alias a faulted node is moved to, deleted_disk_<id>
func FaultedName(id int) string {
	return experimentTypes.FaultedPrefix + NodeName(id)
}

// NodeDir returns the active directory path of a node
func (r *Registry) NodeDir(id int) string {
	return filepath.Join(r.workDir, NodeName(id))
}

// FaultedDir returns the faulted alias path of a node
func (r *Registry) FaultedDir(id int) string {
	return filepath.Join(r.workDir, FaultedName(id))
}

// ListActive returns the ids of the nodes whose active directory is present
func (r *Registry) ListActive() ([]int, error) {
	return r.list(activeNodeRe)
}

// ListFaulted returns the ids of the nodes having a faulted alias
func (r *Registry) ListFaulted() ([]int, error) {
	return r.list(faultedNodeRe)
}

// IsActive reports whether the active directory of the node is present
func (r *Registry) IsActive(id int) (bool, error) {
	return isDir(r.NodeDir(id))
}

// IsFaulted reports whether the node has a faulted alias
func (r *Registry) IsFaulted(id int) (bool, error) {
	return isDir(r.FaultedDir(id))
}

func (r *Registry) list(re *regexp.Regexp) ([]int, error) {
	entries, err := os.ReadDir(r.workDir)
	if err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: r.workDir, Reason: fmt.Sprintf("failed to list node directories: %s", err.Error())}
	}

	ids := []int{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		match := re.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		id, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// CheckNodeStatus verifies that exactly the nodes [0, expected) are active
func (r *Registry) CheckNodeStatus(expected int) error {
	active, err := r.ListActive()
	if err != nil {
		return err
	}
	present := make(map[int]bool, len(active))
	for _, id := range active {
		present[id] = true
		if id >= expected {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: fmt.Sprintf("{node: %s}", NodeName(id)), Reason: fmt.Sprintf("unexpected node, layout has %d nodes", expected)}
		}
	}
	for id := 0; id < expected; id++ {
		if !present[id] {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: fmt.Sprintf("{node: %s}", NodeName(id)), Reason: "node is not active"}
		}
	}
	log.InfoWithValues("[Status]: The node status are as follows", log.Fields{
		"Active": len(active),
		"Layout": expected,
	})
	return nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "unable to stat %s", path)
	}
	return info.IsDir(), nil
}
