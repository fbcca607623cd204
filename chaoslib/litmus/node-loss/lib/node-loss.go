package lib

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/math"
	"github.com/litmuschaos/evenodd-chaos/pkg/status"
	"github.com/litmuschaos/evenodd-chaos/pkg/utils/stringutils"
	"github.com/palantir/stacktrace"
)

// Injector is the only writer of node renames in the working area. It moves node
// directories to their faulted alias and back, and never overwrites an existing
// directory: whatever would be clobbered is first evacuated to the trash dir.
type Injector struct {
	registry *status.Registry
	trashDir string
	rng      *rand.Rand
	newID    func() string
}

// NewInjector returns an injector for the nodes of the registry, quarantining into trashDir
func NewInjector(registry *status.Registry, trashDir string, rng *rand.Rand) *Injector {
	return &Injector{
		registry: registry,
		trashDir: trashDir,
		rng:      rng,
		newID:    uuid.NewString,
	}
}

// PrepareQuarantine creates the trash dir, it must not exist before the campaign
func (in *Injector) PrepareQuarantine() error {
	if err := os.MkdirAll(filepath.Dir(in.trashDir), 0o755); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Target: in.trashDir, Reason: err.Error()}
	}
	if err := os.Mkdir(in.trashDir, 0o755); err != nil {
		if os.IsExist(err) {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Target: in.trashDir, Reason: "quarantine area already exists"}
		}
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Target: in.trashDir, Reason: err.Error()}
	}
	return nil
}

// Inject faults k distinct active nodes chosen uniformly at random and returns their ids.
// Nothing is renamed unless k active nodes are available, and a failed rename moves the
// nodes faulted before it back to their active names.
func (in *Injector) Inject(k int) ([]int, error) {
	active, err := in.registry.ListActive()
	if err != nil {
		return nil, stacktrace.Propagate(err, "could not list active nodes")
	}
	if k < 1 || k > len(active) {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Chaos", Reason: fmt.Sprintf("can not fault %d node(s), %d active", k, len(active))}
	}

	targets := []int{}
	for _, idx := range math.Sample(in.rng, len(active), k) {
		targets = append(targets, active[idx])
	}

	faultedIDs := []int{}
	for _, id := range targets {
		if err := in.fault(id); err != nil {
			if rollbackErr := in.rollback(faultedIDs); rollbackErr != nil {
				return nil, stacktrace.Propagate(err, "could not roll back the faulted nodes %s: %v", stringutils.FormatNodeIDs(experimentTypes.NodePrefix, faultedIDs), rollbackErr)
			}
			return nil, err
		}
		faultedIDs = append(faultedIDs, id)
	}
	return targets, nil
}

// fault renames a node to its faulted alias, quarantining a pending alias first
func (in *Injector) fault(id int) error {
	faulted, err := in.registry.IsFaulted(id)
	if err != nil {
		return stacktrace.Propagate(err, "could not check faulted alias")
	}
	if faulted {
		// a previous fault was never restored, keep its evidence
		entry, err := in.quarantine(in.registry.FaultedDir(id))
		if err != nil {
			return stacktrace.Propagate(err, "could not quarantine previous fault of %s", status.NodeName(id))
		}
		log.InfoWithValues("[Chaos]: Quarantined the previous faulted alias", log.Fields{
			"Node":       status.NodeName(id),
			"Quarantine": entry,
		})
	}

	if err := os.Rename(in.registry.NodeDir(id), in.registry.FaultedDir(id)); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Chaos", Target: fmt.Sprintf("{node: %s}", status.NodeName(id)), Reason: err.Error()}
	}
	log.InfoWithValues("[Chaos]: Faulted the storage node", log.Fields{
		"Node":  status.NodeName(id),
		"Alias": status.FaultedName(id),
	})
	return nil
}

// rollback moves the aliases of an injection that failed half way back to their active names.
// Aliases quarantined on the way stay in the trash dir.
func (in *Injector) rollback(ids []int) error {
	for i := len(ids) - 1; i >= 0; i-- {
		if err := os.Rename(in.registry.FaultedDir(ids[i]), in.registry.NodeDir(ids[i])); err != nil {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Chaos", Target: fmt.Sprintf("{node: %s}", status.NodeName(ids[i])), Reason: err.Error()}
		}
		log.Warnf("[Chaos]: Rolled back the fault of %s", status.NodeName(ids[i]))
	}
	return nil
}

// Restore moves the faulted aliases of ids back to their active names.
// A directory re-created at the active name in the meantime is quarantined first.
func (in *Injector) Restore(ids []int) error {
	seen := map[int]bool{}
	for _, id := range ids {
		if seen[id] {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Restore", Target: fmt.Sprintf("{node: %s}", status.NodeName(id)), Reason: "node listed twice"}
		}
		seen[id] = true
		faulted, err := in.registry.IsFaulted(id)
		if err != nil {
			return stacktrace.Propagate(err, "could not check faulted alias")
		}
		if !faulted {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Restore", Target: fmt.Sprintf("{node: %s}", status.NodeName(id)), Reason: "node was never faulted"}
		}
	}

	for _, id := range ids {
		active, err := in.registry.IsActive(id)
		if err != nil {
			return stacktrace.Propagate(err, "could not check active directory")
		}
		if active {
			entry, err := in.quarantine(in.registry.NodeDir(id))
			if err != nil {
				return stacktrace.Propagate(err, "could not quarantine re-created %s", status.NodeName(id))
			}
			log.Warnf("[Restore]: %s was re-created while faulted, moved to %s", status.NodeName(id), entry)
		}
		if err := os.Rename(in.registry.FaultedDir(id), in.registry.NodeDir(id)); err != nil {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Phase: "Restore", Target: fmt.Sprintf("{node: %s}", status.NodeName(id)), Reason: err.Error()}
		}
		log.InfoWithValues("[Restore]: Restored the storage node", log.Fields{"Node": status.NodeName(id)})
	}
	return nil
}

// quarantine moves path into the trash dir under a collision free name and returns the new path
func (in *Injector) quarantine(path string) (string, error) {
	if err := os.MkdirAll(in.trashDir, 0o755); err != nil {
		return "", cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Target: in.trashDir, Reason: err.Error()}
	}
	entry := filepath.Join(in.trashDir, filepath.Base(path)+"-"+in.newID())
	if _, err := os.Lstat(entry); err == nil {
		return "", cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Target: entry, Reason: "quarantine entry already exists"}
	}
	if err := os.Rename(path, entry); err != nil {
		return "", cerrors.Error{ErrorCode: cerrors.ErrorTypeFaultInjection, Target: path, Reason: err.Error()}
	}
	return entry, nil
}
