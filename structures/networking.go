package structures

import (
	"encoding/json"

	"github.com/stakequorum/stakequorum-core/engine"
)

// Task payloads travel as RawMessage end to end. The engine hashes the exact
// bytes it was given, so re-encoding through a typed struct could change the
// digest and split otherwise identical responses into different groups.

type CreateTaskRequest struct {
	Kind              string          `json:"kind"`
	Payload           json.RawMessage `json:"payload"`
	QuorumNumerator   uint64          `json:"quorumNumerator"`
	QuorumDenominator uint64          `json:"quorumDenominator"`
	QuorumIdentifiers []string        `json:"quorumIdentifiers,omitempty"`
	Sig               string          `json:"sig"`
}

type CreateTaskResponse struct {
	Status    string `json:"status"`
	TaskIndex uint64 `json:"taskIndex"`
}

type SubmitResponseRequest struct {
	TaskIndex   uint64          `json:"taskIndex"`
	ValidatorId string          `json:"validatorId"`
	Payload     json.RawMessage `json:"payload"`
	Sig         string          `json:"sig"`
}

type ChallengeTaskRequest struct {
	TaskIndex    uint64 `json:"taskIndex"`
	ChallengerId string `json:"challengerId"`
	Reason       string `json:"reason"`
	Sig          string `json:"sig"`
}

type ChallengeTaskResponse struct {
	Status      string `json:"status"`
	ChallengeId string `json:"challengeId"`
}

type RegisterValidatorRequest struct {
	ValidatorPubKey string `json:"validatorPubKey"`
	Stake           uint64 `json:"stake"`
	ValidatorUrl    string `json:"validatorUrl"`
	WssValidatorUrl string `json:"wssValidatorUrl"`
	Sig             string `json:"sig"`
}

type AddStakeRequest struct {
	ValidatorPubKey string `json:"validatorPubKey"`
	Amount          uint64 `json:"amount"`
	Sig             string `json:"sig"`
}

type SlashValidatorRequest struct {
	ValidatorPubKey string `json:"validatorPubKey"`
	Amount          uint64 `json:"amount"`
	Reason          string `json:"reason"`
	Sig             string `json:"sig"`
}

type SlashValidatorResponse struct {
	Status         string `json:"status"`
	SlashedAmount  uint64 `json:"slashedAmount"`
	RemainingStake uint64 `json:"remainingStake"`
	Deactivated    bool   `json:"deactivated"`
}

type DeregisterValidatorRequest struct {
	ValidatorPubKey string `json:"validatorPubKey"`
	Sig             string `json:"sig"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type AggregatedResultResponse struct {
	Result  engine.AggregatedResult `json:"result"`
	Payload json.RawMessage         `json:"payload"`
}

type FinalizedResultResponse struct {
	TaskIndex   uint64          `json:"taskIndex"`
	Payload     json.RawMessage `json:"payload"`
	FinalizedAt int64           `json:"finalizedAt"`
}

type ValidatorsResponse struct {
	Validators       []engine.Validator `json:"validators"`
	TotalActiveStake uint64             `json:"totalActiveStake"`
}

type NodeInfoResponse struct {
	NodeId           string `json:"nodeId"`
	NetworkId        string `json:"networkId"`
	ActiveValidators int    `json:"activeValidators"`
	TotalActiveStake uint64 `json:"totalActiveStake"`
	NextTaskIndex    uint64 `json:"nextTaskIndex"`
	PendingTasks     int    `json:"pendingTasks"`
	CompletedTasks   int    `json:"completedTasks"`
	FailedTasks      int    `json:"failedTasks"`
	ChallengedTasks  int    `json:"challengedTasks"`
}

// TaskAnnouncementAck is what a validator returns over the announcement
// websocket once it has verified and stored the announced task.
type TaskAnnouncementAck struct {
	TaskIndex uint64 `json:"taskIndex"`
	Validator string `json:"validator"`
	Sig       string `json:"sig"`
}
