package lib

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	nodeloss "github.com/litmuschaos/evenodd-chaos/chaoslib/litmus/node-loss/lib"
	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	"github.com/litmuschaos/evenodd-chaos/pkg/corpus"
	"github.com/litmuschaos/evenodd-chaos/pkg/engine"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/events"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/math"
	"github.com/litmuschaos/evenodd-chaos/pkg/probe"
	"github.com/litmuschaos/evenodd-chaos/pkg/result"
	"github.com/litmuschaos/evenodd-chaos/pkg/status"
	"github.com/litmuschaos/evenodd-chaos/pkg/telemetry"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/utils/common"
	"github.com/litmuschaos/evenodd-chaos/pkg/utils/stringutils"
	"github.com/palantir/stacktrace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	degradedRound = "degraded"
	repairRound   = "repair"
)

// Campaign carries the state shared by the phases of one integrity campaign
type Campaign struct {
	experimentsDetails *experimentTypes.ExperimentDetails
	storage            engine.StorageEngine
	registry           *status.Registry
	injector           *nodeloss.Injector
	metrics            *telemetry.Metrics
	rng                *rand.Rand
	resultDetails      *types.ResultDetails
	eventsDetails      *types.EventDetails

	files        []types.TestFile
	backupTaken  bool
	verifyFailed bool
}

// NewCampaign wires the components of a campaign, all randomness is drawn from rng
func NewCampaign(experimentsDetails *experimentTypes.ExperimentDetails, storage engine.StorageEngine, metrics *telemetry.Metrics, rng *rand.Rand, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails) *Campaign {
	registry := status.NewRegistry(experimentsDetails.WorkDir)
	return &Campaign{
		experimentsDetails: experimentsDetails,
		storage:            storage,
		registry:           registry,
		injector:           nodeloss.NewInjector(registry, experimentsDetails.Path(experimentsDetails.TrashDir), rng),
		metrics:            metrics,
		rng:                rng,
		resultDetails:      resultDetails,
		eventsDetails:      eventsDetails,
	}
}

// PrepareEvenoddIntegrity runs the whole campaign. Verification failures are recorded
// in the result and do not surface as an error, the returned error is always fatal.
func PrepareEvenoddIntegrity(ctx context.Context, c *Campaign) error {
	ctx, span := telemetry.StartTracing(ctx, "InjectEvenoddIntegrityChaos")
	defer span.End()

	if err := c.run(ctx); err != nil {
		span.SetStatus(codes.Error, "campaign failed")
		span.RecordError(err)
		return err
	}
	if c.verifyFailed {
		span.SetStatus(codes.Error, "integrity verification failed")
	}
	return nil
}

func (c *Campaign) run(ctx context.Context) error {
	if err := c.generateCorpus(); err != nil {
		return err
	}
	if err := c.writeAll(ctx); err != nil {
		return err
	}
	if err := c.readHealthy(ctx); err != nil {
		return err
	}
	if err := c.takeBackup(); err != nil {
		return err
	}

	for round := 0; round < c.experimentsDetails.DegradedRounds && !c.verifyFailed; round++ {
		if err := c.degradedRound(ctx, round); err != nil {
			return err
		}
	}
	for round := 0; round < c.experimentsDetails.RepairRounds && !c.verifyFailed; round++ {
		if err := c.repairRound(ctx, round); err != nil {
			return err
		}
	}
	if c.verifyFailed {
		log.Warnf("[Chaos]: Integrity verification failed, the remaining rounds are skipped")
	}

	return c.finalSweep(ctx)
}

func (c *Campaign) setState(state types.State) {
	c.resultDetails.State = state
	log.Debugf("[Chaos]: Entering %s", state)
}

func (c *Campaign) generateCorpus() error {
	c.setState(types.StateGeneratingCorpus)
	c.resultDetails.FailStep = result.CorpusGeneration

	inputDir := c.experimentsDetails.Path(c.experimentsDetails.InputDir)
	log.Infof("[Chaos]: Generating %d test files in %s", c.experimentsDetails.FileCount, inputDir)
	files, err := corpus.Generate(inputDir, c.experimentsDetails.FileCount, c.experimentsDetails.MaxFileSize, c.experimentsDetails.ContentPattern, c.rng)
	if err != nil {
		return stacktrace.Propagate(err, "could not generate the test corpus")
	}
	c.files = files
	c.resultDetails.Corpus = files

	c.resultDetails.FailStep = result.QuarantineSetup
	if c.experimentsDetails.TakeBackup {
		backupDir := c.experimentsDetails.Path(c.experimentsDetails.BackupDir)
		if _, err := os.Stat(backupDir); err == nil {
			c.resultDetails.FailStep = result.BackupSnapshot
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: backupDir, Reason: "backup directory already exists"}
		}
	}
	if err := os.MkdirAll(c.experimentsDetails.Path(c.experimentsDetails.OutputDir), 0o755); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "GeneratingCorpus", Target: c.experimentsDetails.OutputDir, Reason: err.Error()}
	}
	if err := c.injector.PrepareQuarantine(); err != nil {
		return stacktrace.Propagate(err, "could not prepare the quarantine area")
	}
	c.resultDetails.FailStep = "N/A"
	return nil
}

func (c *Campaign) writeAll(ctx context.Context) error {
	c.setState(types.StateWritingAll)
	ctx, span := telemetry.StartTracing(ctx, "WritePhase")
	defer span.End()

	log.Infof("[Chaos]: Writing %d files through the engine", len(c.files))
	for _, file := range c.files {
		d, err := c.storage.Write(ctx, c.experimentsDetails.P, file.Path, file.Name)
		c.metrics.RecordEngineOp(ctx, "write", d, err)
		c.resultDetails.Timings.Write += d
		if err != nil {
			c.resultDetails.FailStep = result.WritePhase
			return stacktrace.Propagate(err, "could not write %s", file.Name)
		}
	}
	log.InfoWithValues("[Chaos]: Write phase completed", log.Fields{
		"Files":      len(c.files),
		"Write Time": c.resultDetails.Timings.Write.String(),
	})
	return nil
}

func (c *Campaign) readHealthy(ctx context.Context) error {
	c.setState(types.StateReadingSubsetHealthy)
	ctx, span := telemetry.StartTracing(ctx, "HealthyReadPhase")
	defer span.End()

	subset := c.subset(c.experimentsDetails.HealthyReadPercentage)
	log.Infof("[Chaos]: Reading back %d of %d files with every node active", len(subset), len(c.files))
	d, _, err := c.readAndVerify(ctx, subset)
	c.resultDetails.Timings.HealthyRead += d
	if err != nil {
		c.resultDetails.FailStep = result.HealthyReadPhase
		return stacktrace.Propagate(err, "could not read back the corpus")
	}
	return nil
}

func (c *Campaign) takeBackup() error {
	if !c.experimentsDetails.TakeBackup {
		return nil
	}
	backupDir := c.experimentsDetails.Path(c.experimentsDetails.BackupDir)
	log.Infof("[Chaos]: Taking a backup of the storage nodes in %s", backupDir)

	if err := os.Mkdir(backupDir, 0o755); err != nil {
		c.resultDetails.FailStep = result.BackupSnapshot
		reason := err.Error()
		if os.IsExist(err) {
			reason = "backup directory already exists"
		}
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "Backup", Target: backupDir, Reason: reason}
	}
	active, err := c.registry.ListActive()
	if err != nil {
		c.resultDetails.FailStep = result.BackupSnapshot
		return stacktrace.Propagate(err, "could not list the storage nodes")
	}
	for _, id := range active {
		if err := common.CopyTree(c.registry.NodeDir(id), filepath.Join(backupDir, status.NodeName(id))); err != nil {
			c.resultDetails.FailStep = result.BackupSnapshot
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "Backup", Target: status.NodeName(id), Reason: err.Error()}
		}
	}
	c.backupTaken = true
	return nil
}

func (c *Campaign) degradedRound(ctx context.Context, index int) error {
	ctx, span := telemetry.StartTracing(ctx, "DegradedRound")
	defer span.End()
	start := time.Now()

	ids, err := c.inject(ctx, degradedRound, index)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.IntSlice("faulted.nodes", ids))

	c.setState(types.StateReadingSubsetDegraded)
	subset := c.subset(c.experimentsDetails.DegradedReadPercentage)
	log.Infof("[Chaos]: Reading %d files with %s lost", len(subset), stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids))
	d, passed, readErr := c.readAndVerify(ctx, subset)
	c.resultDetails.Timings.DegradedRead += d

	if err := c.restore(ids); err != nil {
		if readErr != nil {
			log.Errorf("[Chaos]: Degraded read failed before the restore, err: %v", readErr)
		}
		return err
	}
	if readErr != nil {
		c.resultDetails.FailStep = result.DegradedReadPhase
		return stacktrace.Propagate(readErr, "could not read the corpus with %s lost", stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids))
	}
	if err := c.registry.CheckNodeStatus(c.experimentsDetails.ExpectedNodeCount()); err != nil {
		c.resultDetails.FailStep = result.FaultRestoration
		return stacktrace.Propagate(err, "storage nodes are not back to their pre-round state")
	}

	c.endRound(ctx, types.Round{Kind: degradedRound, Index: index, FaultedNodes: ids, Verified: len(subset), Duration: time.Since(start), Passed: passed})
	return nil
}

func (c *Campaign) repairRound(ctx context.Context, index int) error {
	ctx, span := telemetry.StartTracing(ctx, "RepairRound")
	defer span.End()
	start := time.Now()

	ids, err := c.inject(ctx, repairRound, index)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.IntSlice("faulted.nodes", ids))

	log.Infof("[Chaos]: Repairing %s", stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids))
	d, err := c.storage.Repair(ctx, c.experimentsDetails.P, ids...)
	c.metrics.RecordEngineOp(ctx, "repair", d, err)
	c.resultDetails.Timings.Repair += d
	if err != nil {
		c.resultDetails.FailStep = result.RepairPhase
		if restoreErr := c.restore(ids); restoreErr != nil {
			log.Errorf("[Chaos]: Unable to restore %s after the failed repair, err: %v", stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids), restoreErr)
		}
		return stacktrace.Propagate(err, "could not repair %s", stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids))
	}

	passed := true
	for _, id := range ids {
		ok, err := probe.VerifyTree(c.resultDetails, types.NodeAssertion, status.NodeName(id), c.registry.FaultedDir(id), c.registry.NodeDir(id))
		if err != nil {
			c.resultDetails.FailStep = result.RepairPhase
			return stacktrace.Propagate(err, "could not compare the repaired %s", status.NodeName(id))
		}
		c.metrics.RecordAssertion(ctx, string(types.NodeAssertion), ok)
		passed = passed && ok
	}
	c.setState(types.StateRepairedVerified)

	if !passed {
		c.verifyFailed = true
		log.Warnf("[Chaos]: Repaired nodes differ from their originals, restoring %s", stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids))
		if err := c.restore(ids); err != nil {
			return err
		}
	}

	c.endRound(ctx, types.Round{Kind: repairRound, Index: index, FaultedNodes: ids, Verified: len(ids), Duration: time.Since(start), Passed: passed})
	return nil
}

func (c *Campaign) finalSweep(ctx context.Context) error {
	c.setState(types.StateFinalSweep)
	if !c.backupTaken {
		return nil
	}
	_, span := telemetry.StartTracing(ctx, "FinalSweep")
	defer span.End()

	backupDir := c.experimentsDetails.Path(c.experimentsDetails.BackupDir)
	log.Infof("[Chaos]: Comparing the storage nodes against the backup in %s", backupDir)
	for id := 0; id < c.experimentsDetails.ExpectedNodeCount(); id++ {
		ok, err := probe.VerifyTree(c.resultDetails, types.SweepAssertion, status.NodeName(id), filepath.Join(backupDir, status.NodeName(id)), c.registry.NodeDir(id))
		if err != nil {
			c.resultDetails.FailStep = result.FinalSweep
			return stacktrace.Propagate(err, "could not compare %s against its backup", status.NodeName(id))
		}
		c.metrics.RecordAssertion(ctx, string(types.SweepAssertion), ok)
		if !ok {
			c.verifyFailed = true
		}
	}
	return nil
}

// inject faults a random number of nodes in [1, MaxFaults]
func (c *Campaign) inject(ctx context.Context, kind string, index int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		c.resultDetails.FailStep = result.CampaignAborted
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Phase: "ChaosInject", Reason: fmt.Sprintf("campaign aborted before %s round %d, %v", kind, index+1, err)}
	}

	k := math.Between(c.rng, 1, c.experimentsDetails.MaxFaults)
	ids, err := c.injector.Inject(k)
	if err != nil {
		c.resultDetails.FailStep = result.FaultInjection
		return nil, stacktrace.Propagate(err, "could not inject the node loss")
	}
	c.setState(types.StateFaultInjected)
	c.metrics.RecordFaults(ctx, kind, len(ids))

	msg := fmt.Sprintf("%s round %d: injected loss of %s", kind, index+1, stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids))
	types.SetEventAttributes(c.eventsDetails, types.ChaosInject, msg, "Normal")
	events.GenerateEvents(c.eventsDetails, c.resultDetails)
	return ids, nil
}

func (c *Campaign) restore(ids []int) error {
	if err := c.injector.Restore(ids); err != nil {
		c.resultDetails.FailStep = result.FaultRestoration
		return stacktrace.Propagate(err, "could not restore the lost nodes")
	}
	c.setState(types.StateRestored)

	types.SetEventAttributes(c.eventsDetails, types.ChaosRestore, "restored "+stringutils.FormatNodeIDs(experimentTypes.NodePrefix, ids), "Normal")
	events.GenerateEvents(c.eventsDetails, c.resultDetails)
	return nil
}

func (c *Campaign) endRound(ctx context.Context, round types.Round) {
	c.resultDetails.Rounds = append(c.resultDetails.Rounds, round)
	c.metrics.RecordRound(ctx, round.Kind, round.Passed)
	if !round.Passed {
		c.verifyFailed = true
	}
	log.InfoWithValues(fmt.Sprintf("[Chaos]: %s round %d completed", round.Kind, round.Index+1), log.Fields{
		"Faulted Nodes": stringutils.FormatNodeIDs(experimentTypes.NodePrefix, round.FaultedNodes),
		"Verified":      round.Verified,
		"Passed":        round.Passed,
		"Duration":      round.Duration.String(),
	})
}

// subset draws a random selection of the corpus sized by percentage
func (c *Campaign) subset(percentage int) []types.TestFile {
	indices := math.Sample(c.rng, len(c.files), math.SubsetSize(len(c.files), percentage))
	files := make([]types.TestFile, 0, len(indices))
	for _, i := range indices {
		files = append(files, c.files[i])
	}
	return files
}

// readAndVerify reads every file of the subset and checks it against its source.
// The whole subset is read even after a mismatch, so every offending file is named.
func (c *Campaign) readAndVerify(ctx context.Context, files []types.TestFile) (time.Duration, bool, error) {
	var total time.Duration
	passed := true
	outputDir := c.experimentsDetails.Path(c.experimentsDetails.OutputDir)

	for _, file := range files {
		dest := filepath.Join(outputDir, file.Name)
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return total, passed, cerrors.Error{ErrorCode: cerrors.ErrorTypeSetup, Phase: "Read", Target: dest, Reason: err.Error()}
		}

		d, err := c.storage.Read(ctx, c.experimentsDetails.P, file.Name, dest)
		c.metrics.RecordEngineOp(ctx, "read", d, err)
		total += d
		if err != nil {
			return total, passed, stacktrace.Propagate(err, "could not read %s", file.Name)
		}

		ok, err := probe.VerifyFile(c.resultDetails, file.Name, file.Path, dest)
		if err != nil {
			return total, passed, stacktrace.Propagate(err, "could not verify %s", file.Name)
		}
		c.metrics.RecordAssertion(ctx, string(types.FileAssertion), ok)
		if !ok {
			passed = false
			c.verifyFailed = true
		}
	}
	return total, passed, nil
}
