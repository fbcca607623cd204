package result

const (
	ConfigValidation         = "[pre-chaos]: invalid campaign configuration"
	ResultUpdatePreChaos     = "[pre-chaos]: failed to write the campaign result"
	EngineStatusCheck        = "[pre-chaos]: failed in engine status checks"
	NodeStatusCheckPreChaos  = "[pre-chaos]: failed in storage node status checks"
	NodeStatusCheckPostChaos = "[post-chaos]: failed in storage node status checks"
	CorpusGeneration         = "[chaos]: failed to generate the test corpus"
	QuarantineSetup          = "[chaos]: failed to prepare the quarantine area"
	WritePhase               = "[chaos]: failed to write the corpus through the engine"
	HealthyReadPhase         = "[chaos]: failed to read back the corpus on a healthy cluster"
	BackupSnapshot           = "[chaos]: failed to take the backup snapshot of the storage nodes"
	FaultInjection           = "[chaos]: failed to inject the storage node loss"
	DegradedReadPhase        = "[chaos]: failed to read the corpus with lost storage nodes"
	FaultRestoration         = "[chaos]: failed to restore the lost storage nodes"
	RepairPhase              = "[chaos]: failed to repair the lost storage nodes"
	FinalSweep               = "[chaos]: failed in the final backup sweep"
	IntegrityVerification    = "[chaos]: stored data does not match its source, check the failed assertions"
	ResultUpdatePostChaos    = "[post-chaos]: failed to write the campaign result"
	CampaignAborted          = "[chaos]: campaign aborted"
)
