package types

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
)

const (
	// NodePrefix names the active directory of a storage node, disk_<index>
	NodePrefix = "disk_"
	// FaultedPrefix names the alias a faulted node directory is moved to, deleted_disk_<index>
	FaultedPrefix = "deleted_"
)

// ContentPattern selects how corpus file content is produced
type ContentPattern string

const (
	RandomContent  ContentPattern = "random"
	PatternContent ContentPattern = "pattern"
)

// parity nodes added on top of the p data nodes
const defaultNodePlus = 2

// MaxRepairTargets is the number of nodes a single repair can rebuild
const MaxRepairTargets = 2

// ExperimentDetails is for collecting all the experiment-related details
type ExperimentDetails struct {
	ExperimentName string `yaml:"experimentName"`
	InstanceID     string `yaml:"instanceID"`

	P          int    `yaml:"p"`
	EnginePath string `yaml:"enginePath"`
	// NodeCount is the number of disk_<i> directories the engine lays out, p+2 when unset
	NodeCount     int           `yaml:"nodeCount"`
	EngineTimeout time.Duration `yaml:"engineTimeout"`

	WorkDir   string `yaml:"workDir"`
	InputDir  string `yaml:"inputDir"`
	OutputDir string `yaml:"outputDir"`
	TrashDir  string `yaml:"trashDir"`
	BackupDir string `yaml:"backupDir"`

	TakeBackup     bool           `yaml:"takeBackup"`
	FileCount      int            `yaml:"fileCount"`
	MaxFileSize    int64          `yaml:"maxFileSize"`
	ContentPattern ContentPattern `yaml:"contentPattern"`

	HealthyReadPercentage  int   `yaml:"healthyReadPercentage"`
	DegradedReadPercentage int   `yaml:"degradedReadPercentage"`
	DegradedRounds         int   `yaml:"degradedRounds"`
	RepairRounds           int   `yaml:"repairRounds"`
	MaxFaults              int   `yaml:"maxFaults"`
	RandomSeed             int64 `yaml:"randomSeed"`

	ResultPath   string `yaml:"resultPath"`
	MetricsPath  string `yaml:"metricsPath"`
	OTELEndpoint string `yaml:"otelEndpoint"`
}

// ExpectedNodeCount returns the configured node count, p+2 for an EVENODD layout by default
func (e *ExperimentDetails) ExpectedNodeCount() int {
	if e.NodeCount > 0 {
		return e.NodeCount
	}
	return e.P + defaultNodePlus
}

// Path resolves a configured directory against the working directory
func (e *ExperimentDetails) Path(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(e.WorkDir, dir)
}

// Validate rejects configurations the campaign can not run with
func (e *ExperimentDetails) Validate() error {
	invalid := func(reason string) error {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Reason: reason}
	}
	switch {
	case e.P < 2:
		return invalid(fmt.Sprintf("parity width p must be at least 2, got %d", e.P))
	case e.EnginePath == "":
		return invalid("engine path is not set")
	case e.FileCount < 1:
		return invalid(fmt.Sprintf("file count must be at least 1, got %d", e.FileCount))
	case e.MaxFileSize < 1:
		return invalid(fmt.Sprintf("max file size must be at least 1 byte, got %d", e.MaxFileSize))
	case e.MaxFaults < 1:
		return invalid(fmt.Sprintf("max faults must be at least 1, got %d", e.MaxFaults))
	case e.MaxFaults > e.ExpectedNodeCount():
		return invalid(fmt.Sprintf("max faults %d exceeds node count %d", e.MaxFaults, e.ExpectedNodeCount()))
	case e.RepairRounds > 0 && e.MaxFaults > MaxRepairTargets:
		return invalid(fmt.Sprintf("max faults %d exceeds the %d nodes a repair can rebuild", e.MaxFaults, MaxRepairTargets))
	case !validPercentage(e.HealthyReadPercentage):
		return invalid(fmt.Sprintf("healthy read percentage must be in (0, 100], got %d", e.HealthyReadPercentage))
	case !validPercentage(e.DegradedReadPercentage):
		return invalid(fmt.Sprintf("degraded read percentage must be in (0, 100], got %d", e.DegradedReadPercentage))
	case e.DegradedRounds < 0 || e.RepairRounds < 0:
		return invalid("round counts can not be negative")
	case e.EngineTimeout < 0:
		return invalid("engine timeout can not be negative")
	case e.ContentPattern != RandomContent && e.ContentPattern != PatternContent:
		return invalid(fmt.Sprintf("'%s' content pattern is not supported", e.ContentPattern))
	}
	return nil
}

func validPercentage(v int) bool {
	return v > 0 && v <= 100
}
