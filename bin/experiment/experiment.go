package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	evenoddIntegrity "github.com/litmuschaos/evenodd-chaos/experiments/storage/evenodd-integrity/experiment"
	"github.com/litmuschaos/evenodd-chaos/pkg/cerrors"
	experimentEnv "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/environment"
	experimentTypes "github.com/litmuschaos/evenodd-chaos/pkg/evenodd/types"
	"github.com/litmuschaos/evenodd-chaos/pkg/log"
	"github.com/litmuschaos/evenodd-chaos/pkg/telemetry"
	"github.com/litmuschaos/evenodd-chaos/pkg/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/codes"
)

// Version is stamped at build time
var Version = "dev"

const experimentName = "evenodd-integrity"

var errVerdictFailed = errors.New("campaign verdict is Fail")

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "evenodd-chaos",
		Short:         "Fault-injection and integrity harness for an EVENODD storage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the harness version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// runOptions holds the flag values, they override the env and the attribute file when set
type runOptions struct {
	configPath string
	logFormat  string
	logLevel   string
	overrides  experimentTypes.ExperimentDetails
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	var run = &cobra.Command{
		Use:                   "run [flags]",
		Short:                 "Run the integrity campaign against the storage engine",
		Args:                  cobra.NoArgs,
		Example:               "./evenodd-chaos run --engine=./evenodd --p=5 --files=100 --result=result.json",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Configure(opts.logFormat, opts.logLevel); err != nil {
				return err
			}
			experimentsDetails, err := loadExperimentDetails(cmd.Flags(), opts)
			if err != nil {
				log.Errorf("Unable to load the campaign configuration, err: %v", err)
				return err
			}
			return runCampaign(experimentsDetails)
		},
	}

	o := &opts.overrides
	flags := run.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path of the yaml attribute file")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format, text or json")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")
	flags.IntVar(&o.P, "p", 0, "EVENODD prime parameter passed to the engine")
	flags.StringVar(&o.EnginePath, "engine", "", "path of the engine binary")
	flags.IntVar(&o.NodeCount, "nodes", 0, "number of storage nodes, p+2 when unset")
	flags.DurationVar(&o.EngineTimeout, "engine-timeout", 0, "deadline of a single engine invocation, 0 waits forever")
	flags.StringVar(&o.WorkDir, "work-dir", "", "working directory holding the storage nodes")
	flags.StringVar(&o.InputDir, "input-dir", "", "directory of the generated corpus")
	flags.StringVar(&o.OutputDir, "output-dir", "", "directory the engine reads files back to")
	flags.StringVar(&o.TrashDir, "trash-dir", "", "quarantine directory, must not exist")
	flags.StringVar(&o.BackupDir, "backup-dir", "", "backup directory, must not exist")
	flags.BoolVar(&o.TakeBackup, "backup", true, "take a backup of the nodes before any fault")
	flags.IntVar(&o.FileCount, "files", 0, "number of corpus files")
	flags.Int64Var(&o.MaxFileSize, "max-file-size", 0, "maximum corpus file size in bytes")
	flags.StringVar((*string)(&o.ContentPattern), "pattern", "", "corpus content, random or pattern")
	flags.IntVar(&o.HealthyReadPercentage, "healthy-read-percentage", 0, "percentage of the corpus read back before any fault")
	flags.IntVar(&o.DegradedReadPercentage, "degraded-read-percentage", 0, "percentage of the corpus read in each degraded round")
	flags.IntVar(&o.DegradedRounds, "degraded-rounds", 0, "number of degraded read rounds")
	flags.IntVar(&o.RepairRounds, "repair-rounds", 0, "number of repair rounds")
	flags.IntVar(&o.MaxFaults, "max-faults", 0, "maximum number of nodes lost at once")
	flags.Int64Var(&o.RandomSeed, "seed", 0, "random seed, 0 picks a time based seed")
	flags.StringVar(&o.ResultPath, "result", "", "path of the JSON campaign result")
	flags.StringVar(&o.MetricsPath, "metrics", "", "path of the prometheus textfile")
	flags.StringVar(&o.OTELEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint receiving the campaign traces")
	return run
}

// loadExperimentDetails layers the env, the attribute file and the flags set on the command line
func loadExperimentDetails(flags *pflag.FlagSet, opts *runOptions) (*experimentTypes.ExperimentDetails, error) {
	experimentsDetails := &experimentTypes.ExperimentDetails{}

	log.Infof("[PreReq]: Getting the ENV for the %v experiment", experimentName)
	if err := experimentEnv.GetENV(experimentsDetails, experimentName); err != nil {
		return nil, err
	}
	if err := experimentEnv.LoadAttributeFile(experimentsDetails, opts.configPath); err != nil {
		return nil, err
	}

	o := opts.overrides
	overrides := map[string]func(){
		"p":                        func() { experimentsDetails.P = o.P },
		"engine":                   func() { experimentsDetails.EnginePath = o.EnginePath },
		"nodes":                    func() { experimentsDetails.NodeCount = o.NodeCount },
		"engine-timeout":           func() { experimentsDetails.EngineTimeout = o.EngineTimeout },
		"work-dir":                 func() { experimentsDetails.WorkDir = o.WorkDir },
		"input-dir":                func() { experimentsDetails.InputDir = o.InputDir },
		"output-dir":               func() { experimentsDetails.OutputDir = o.OutputDir },
		"trash-dir":                func() { experimentsDetails.TrashDir = o.TrashDir },
		"backup-dir":               func() { experimentsDetails.BackupDir = o.BackupDir },
		"backup":                   func() { experimentsDetails.TakeBackup = o.TakeBackup },
		"files":                    func() { experimentsDetails.FileCount = o.FileCount },
		"max-file-size":            func() { experimentsDetails.MaxFileSize = o.MaxFileSize },
		"pattern":                  func() { experimentsDetails.ContentPattern = o.ContentPattern },
		"healthy-read-percentage":  func() { experimentsDetails.HealthyReadPercentage = o.HealthyReadPercentage },
		"degraded-read-percentage": func() { experimentsDetails.DegradedReadPercentage = o.DegradedReadPercentage },
		"degraded-rounds":          func() { experimentsDetails.DegradedRounds = o.DegradedRounds },
		"repair-rounds":            func() { experimentsDetails.RepairRounds = o.RepairRounds },
		"max-faults":               func() { experimentsDetails.MaxFaults = o.MaxFaults },
		"seed":                     func() { experimentsDetails.RandomSeed = o.RandomSeed },
		"result":                   func() { experimentsDetails.ResultPath = o.ResultPath },
		"metrics":                  func() { experimentsDetails.MetricsPath = o.MetricsPath },
		"otel-endpoint":            func() { experimentsDetails.OTELEndpoint = o.OTELEndpoint },
	}
	flags.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})
	return experimentsDetails, nil
}

func runCampaign(experimentsDetails *experimentTypes.ExperimentDetails) error {
	if experimentsDetails.OTELEndpoint != "" {
		shutdown, err := telemetry.InitOTelSDK(context.Background(), experimentsDetails.OTELEndpoint)
		if err != nil {
			log.Errorf("Failed to initialize OTel SDK, err: %v", err)
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Errorf("Failed to shutdown OTel SDK, err: %v", err)
			}
		}()
	}

	ctx, err := telemetry.GetTraceParentContext()
	if err != nil {
		log.Warnf("Ignoring the trace parent, err: %v", err)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, span := telemetry.StartTracing(ctx, "ExecuteExperiment")
	defer span.End()

	log.Infof("Experiment Name: %v", experimentsDetails.ExperimentName)
	resultDetails, err := evenoddIntegrity.EvenoddIntegrity(ctx, experimentsDetails, nil)
	if err != nil {
		_, errCode := cerrors.GetRootCauseAndErrorCode(err)
		log.ErrorWithValues("[The End]: Campaign aborted", log.Fields{"ErrorCode": errCode, "FailStep": resultDetails.FailStep})
		span.SetStatus(codes.Error, "campaign aborted")
		return err
	}
	if resultDetails.Verdict != types.PassVerdict {
		log.ErrorWithValues("[The End]: Campaign verdict", log.Fields{"Verdict": resultDetails.Verdict, "FailStep": resultDetails.FailStep})
		return errVerdictFailed
	}
	log.InfoWithValues("[The End]: Campaign verdict", log.Fields{"Verdict": resultDetails.Verdict})
	return nil
}
