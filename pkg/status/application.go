package status

import (
	"os"
	"os/exec"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
)

// CheckEngineStatus verifies that the storage engine under test can be launched
func CheckEngineStatus(enginePath string) error {
	resolved, err := exec.LookPath(enginePath)
	if err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: enginePath, Reason: err.Error()}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: enginePath, Reason: err.Error()}
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: enginePath, Reason: "engine is not an executable file"}
	}
	log.InfoWithValues("[Status]: The storage engine is available", log.Fields{"Engine": resolved})
	return nil
}
