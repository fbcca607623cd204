package environment

import (
	"os"
	"strconv"
	"time"

	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//GetENV fetches all the env variables for the campaign
func GetENV(experimentDetails *experimentTypes.ExperimentDetails, expName string) error {
	var err error
	parseErrs := []error{}
	atoi := func(key, def string) int {
		v, convErr := strconv.Atoi(Getenv(key, def))
		if convErr != nil {
			parseErrs = append(parseErrs, errors.Wrapf(convErr, "could not parse %s env", key))
		}
		return v
	}

	experimentDetails.ExperimentName = Getenv("EXPERIMENT_NAME", expName)
	experimentDetails.InstanceID = Getenv("INSTANCE_ID", "")
	experimentDetails.P = atoi("EVENODD_P", "5")
	experimentDetails.EnginePath = Getenv("ENGINE_PATH", "./evenodd")
	experimentDetails.NodeCount = atoi("NODE_COUNT", "0")
	experimentDetails.WorkDir = Getenv("WORK_DIR", ".")
	experimentDetails.InputDir = Getenv("INPUT_DIR", "input_data")
	experimentDetails.OutputDir = Getenv("OUTPUT_DIR", "output_data")
	experimentDetails.TrashDir = Getenv("TRASH_DIR", "trash")
	experimentDetails.BackupDir = Getenv("BACKUP_DIR", "backup_disk")
	experimentDetails.FileCount = atoi("FILE_COUNT", "100")
	experimentDetails.ContentPattern = experimentTypes.ContentPattern(Getenv("CONTENT_PATTERN", string(experimentTypes.RandomContent)))
	experimentDetails.HealthyReadPercentage = atoi("HEALTHY_READ_PERCENTAGE", "50")
	experimentDetails.DegradedReadPercentage = atoi("DEGRADED_READ_PERCENTAGE", "25")
	experimentDetails.DegradedRounds = atoi("DEGRADED_ROUNDS", "7")
	experimentDetails.RepairRounds = atoi("REPAIR_ROUNDS", "7")
	experimentDetails.MaxFaults = atoi("MAX_FAULTS", "2")
	experimentDetails.ResultPath = Getenv("RESULT_PATH", "")
	experimentDetails.MetricsPath = Getenv("METRICS_PATH", "")
	experimentDetails.OTELEndpoint = Getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	if experimentDetails.TakeBackup, err = strconv.ParseBool(Getenv("TAKE_BACKUP", "true")); err != nil {
		parseErrs = append(parseErrs, errors.Wrap(err, "could not parse TAKE_BACKUP env"))
	}
	if experimentDetails.MaxFileSize, err = strconv.ParseInt(Getenv("MAX_FILE_SIZE", "102400"), 10, 64); err != nil {
		parseErrs = append(parseErrs, errors.Wrap(err, "could not parse MAX_FILE_SIZE env"))
	}
	if experimentDetails.RandomSeed, err = strconv.ParseInt(Getenv("RANDOM_SEED", "0"), 10, 64); err != nil {
		parseErrs = append(parseErrs, errors.Wrap(err, "could not parse RANDOM_SEED env"))
	}
	if experimentDetails.EngineTimeout, err = time.ParseDuration(Getenv("ENGINE_TIMEOUT", "0s")); err != nil {
		parseErrs = append(parseErrs, errors.Wrap(err, "could not parse ENGINE_TIMEOUT env"))
	}

	if len(parseErrs) != 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Reason: parseErrs[0].Error()}
	}
	return nil
}

// LoadAttributeFile overlays the attributes present in the given yaml file on top of the env values
func LoadAttributeFile(experimentDetails *experimentTypes.ExperimentDetails, attributeFile string) error {
	if attributeFile == "" {
		return nil
	}
	yamlFile, err := os.ReadFile(attributeFile)
	if err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Target: attributeFile, Reason: errors.Wrap(err, "unable to read the attribute file").Error()}
	}
	if err = yaml.UnmarshalStrict(yamlFile, experimentDetails); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Target: attributeFile, Reason: errors.Wrap(err, "unable to unmarshal the attribute file").Error()}
	}
	return nil
}

// Getenv fetch the env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}
