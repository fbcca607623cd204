package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/kyokomi/emoji"
	litmusLIB "github.com/litmuschaos/evenodd-chaos/chaoslib/litmus/evenodd-integrity/lib"
	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/engine"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/events"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/probe"
	"github.com/litmuschaos/evenodd-chaos/pkg/result"
	"github.com/litmuschaos/evenodd-chaos/pkg/status"
	"github.com/litmuschaos/evenodd-chaos/pkg/telemetry"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/utils/stringutils"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EvenoddIntegrity runs the integrity campaign against the storage engine and returns its result.
// A nil storage drives the engine binary configured in the experiment details.
func EvenoddIntegrity(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, storage engine.StorageEngine) (*types.ResultDetails, error) {
	span := trace.SpanFromContext(ctx)

	resultDetails := types.ResultDetails{}
	eventsDetails := types.EventDetails{}
	chaosDetails := types.ChaosDetails{
		ExperimentName: experimentsDetails.ExperimentName,
		InstanceID:     experimentsDetails.InstanceID,
		RunID:          stringutils.GetRunID(),
	}

	// Initialize Chaos Result Parameters
	types.SetResultAttributes(&resultDetails, chaosDetails)

	fail := func(failStep, msg string, err error) (*types.ResultDetails, error) {
		log.Errorf("%s, err: %v", msg, err)
		result.RecordAfterFailure(&resultDetails, failStep, err, &eventsDetails, experimentsDetails.ResultPath)
		span.SetStatus(codes.Error, msg)
		span.RecordError(err)
		return &resultDetails, err
	}

	workDir, err := filepath.Abs(experimentsDetails.WorkDir)
	if err != nil {
		return fail(result.ConfigValidation, "Unable to resolve the working directory", cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "PreReq", Target: experimentsDetails.WorkDir, Reason: err.Error()})
	}
	experimentsDetails.WorkDir = workDir
	if err := experimentsDetails.Validate(); err != nil {
		return fail(result.ConfigValidation, "Invalid campaign configuration", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fail(result.ConfigValidation, "Unable to create the campaign metrics", cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Phase: "PreReq", Reason: err.Error()})
	}
	defer func() {
		if experimentsDetails.MetricsPath != "" {
			if err := metrics.WriteMetrics(experimentsDetails.MetricsPath); err != nil {
				log.Errorf("Unable to write the campaign metrics, err: %v", err)
			}
		}
		if err := metrics.Shutdown(context.Background()); err != nil {
			log.Warnf("Unable to shutdown the meter provider, err: %v", err)
		}
	}()

	//Updating the chaos result in the beginning of experiment
	log.Infof("[PreReq]: Updating the campaign result of %v experiment (SOT)", experimentsDetails.ExperimentName)
	if err := result.ChaosResult(&resultDetails, "SOT", experimentsDetails.ResultPath); err != nil {
		return fail(result.ResultUpdatePreChaos, "Unable to write the campaign result", err)
	}

	seed := experimentsDetails.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	//DISPLAY THE CAMPAIGN INFORMATION
	log.InfoWithValues("[Info]: The campaign details are as follows", log.Fields{
		"Run ID":          chaosDetails.RunID,
		"P":               experimentsDetails.P,
		"Nodes":           experimentsDetails.ExpectedNodeCount(),
		"Work Dir":        experimentsDetails.WorkDir,
		"Files":           experimentsDetails.FileCount,
		"Max File Size":   experimentsDetails.MaxFileSize,
		"Degraded Rounds": experimentsDetails.DegradedRounds,
		"Repair Rounds":   experimentsDetails.RepairRounds,
		"Max Faults":      experimentsDetails.MaxFaults,
		"Seed":            seed,
	})

	//PRE-CHAOS ENGINE STATUS CHECK
	if storage == nil {
		enginePath := experimentsDetails.EnginePath
		if strings.ContainsRune(enginePath, filepath.Separator) {
			enginePath = experimentsDetails.Path(enginePath)
		}
		log.Info("[Status]: Verify that the storage engine is available (pre-chaos)")
		if err := status.CheckEngineStatus(enginePath); err != nil {
			return fail(result.EngineStatusCheck, "Engine status check failed", err)
		}
		storage = engine.NewCLI(enginePath, experimentsDetails.WorkDir, experimentsDetails.EngineTimeout)
	}

	log.Info("[Status]: Verify that no storage node is left faulted (pre-chaos)")
	registry := status.NewRegistry(experimentsDetails.WorkDir)
	faulted, err := registry.ListFaulted()
	if err != nil {
		return fail(result.NodeStatusCheckPreChaos, "Node status check failed", err)
	}
	if len(faulted) != 0 {
		return fail(result.NodeStatusCheckPreChaos, "Node status check failed", cerrors.Error{
			ErrorCode: cerrors.ErrorTypeStatusChecks,
			Phase:     "PreChaos",
			Target:    stringutils.FormatNodeIDs(experimentTypes.FaultedPrefix+experimentTypes.NodePrefix, faulted),
			Reason:    "faulted node aliases left over from a previous run",
		})
	}
	types.SetEventAttributes(&eventsDetails, types.PreChaosCheck, "Engine: Available, Nodes: No fault pending", "Normal")
	events.GenerateEvents(&eventsDetails, &resultDetails)

	campaign := litmusLIB.NewCampaign(experimentsDetails, storage, metrics, rand.New(rand.NewSource(seed)), &resultDetails, &eventsDetails)
	if err := litmusLIB.PrepareEvenoddIntegrity(ctx, campaign); err != nil {
		return fail(resultDetails.FailStep, "Chaos injection failed", err)
	}
	log.Infof("[Confirmation]: %v campaign has completed its rounds", experimentsDetails.ExperimentName)

	//POST-CHAOS NODE STATUS CHECK
	log.Info("[Status]: Verify that every storage node is active (post-chaos)")
	if err := registry.CheckNodeStatus(experimentsDetails.ExpectedNodeCount()); err != nil {
		return fail(result.NodeStatusCheckPostChaos, "Node status check failed", err)
	}
	types.SetEventAttributes(&eventsDetails, types.PostChaosCheck, "Nodes: Active", "Normal")
	events.GenerateEvents(&eventsDetails, &resultDetails)

	verdict := probe.ReportVerdict(&resultDetails)
	if verdict.Result() == types.PassVerdict {
		types.SetResultAfterCompletion(&resultDetails, types.PassVerdict, "Completed", "N/A")
	} else {
		resultDetails.ErrorCode = string(cerrors.ErrorTypeVerification)
		types.SetResultAfterCompletion(&resultDetails, types.FailVerdict, "Completed", result.IntegrityVerification+", "+strings.Join(verdict.FailedItems, ", "))
		span.SetStatus(codes.Error, "integrity verification failed")
	}

	log.InfoWithValues("[Summary]: The campaign timings are as follows", log.Fields{
		"Write":         resultDetails.Timings.Write.String(),
		"Healthy Read":  resultDetails.Timings.HealthyRead.String(),
		"Degraded Read": resultDetails.Timings.DegradedRead.String(),
		"Repair":        resultDetails.Timings.Repair.String(),
	})

	msg := fmt.Sprintf("%s campaign has been %sed", experimentsDetails.ExperimentName, resultDetails.Verdict)
	if resultDetails.Verdict == types.PassVerdict {
		types.SetEventAttributes(&eventsDetails, types.Summary, msg+emoji.Sprint(" :white_check_mark:"), "Normal")
	} else {
		types.SetEventAttributes(&eventsDetails, types.Summary, msg+emoji.Sprint(" :x:"), "Warning")
	}
	events.GenerateEvents(&eventsDetails, &resultDetails)

	//Updating the chaosResult in the end of experiment
	log.Infof("[The End]: Updating the campaign result of %v experiment (EOT)", experimentsDetails.ExperimentName)
	if err := result.ChaosResult(&resultDetails, "EOT", experimentsDetails.ResultPath); err != nil {
		log.Errorf("Unable to write the campaign result, err: %v", err)
		span.SetStatus(codes.Error, "Unable to write the campaign result")
		span.RecordError(err)
		return &resultDetails, err
	}
	return &resultDetails, nil
}
