package structures

type EngineParameters struct {
	MinimalStake               uint64 `json:"MINIMAL_STAKE"`
	MinimalQuorumNumerator     uint64 `json:"MINIMAL_QUORUM_NUMERATOR"`
	MinimalQuorumDenominator   uint64 `json:"MINIMAL_QUORUM_DENOMINATOR"`
	TaskTimeoutWindowMs        int64  `json:"TASK_TIMEOUT_WINDOW_MS"`
	TimeoutSweepIntervalMs     int64  `json:"TIMEOUT_SWEEP_INTERVAL_MS"`
	TaskAnnouncementIntervalMs int64  `json:"TASK_ANNOUNCEMENT_INTERVAL_MS"`
	ResultOutboxIntervalMs     int64  `json:"RESULT_OUTBOX_INTERVAL_MS"`
	ResultOutboxFlushLimit     int    `json:"RESULT_OUTBOX_FLUSH_LIMIT"`
}

func (src *EngineParameters) CopyEngineParameters() EngineParameters {
	return EngineParameters{
		MinimalStake:               src.MinimalStake,
		MinimalQuorumNumerator:     src.MinimalQuorumNumerator,
		MinimalQuorumDenominator:   src.MinimalQuorumDenominator,
		TaskTimeoutWindowMs:        src.TaskTimeoutWindowMs,
		TimeoutSweepIntervalMs:     src.TimeoutSweepIntervalMs,
		TaskAnnouncementIntervalMs: src.TaskAnnouncementIntervalMs,
		ResultOutboxIntervalMs:     src.ResultOutboxIntervalMs,
		ResultOutboxFlushLimit:     src.ResultOutboxFlushLimit,
	}
}

type ValidatorStorage struct {
	Pubkey          string `json:"pubkey"`
	Stake           uint64 `json:"stake"`
	ValidatorUrl    string `json:"validatorURL"`
	WssValidatorUrl string `json:"wssValidatorURL"`
}

type Genesis struct {
	NetworkId        string             `json:"NETWORK_ID"`
	ControllerPubKey string             `json:"CONTROLLER_PUBKEY"`
	EngineParameters EngineParameters   `json:"ENGINE_PARAMETERS"`
	Validators       []ValidatorStorage `json:"VALIDATORS"`
}
