package engine

import (
	"encoding/json"
	"fmt"
)

type TaskStatus uint8

const (
	TaskPending TaskStatus = iota
	TaskCompleted
	TaskChallenged
	TaskFailed
)

var taskStatusNames = map[TaskStatus]string{
	TaskPending:    "PENDING",
	TaskCompleted:  "COMPLETED",
	TaskChallenged: "CHALLENGED",
	TaskFailed:     "FAILED",
}

func (status TaskStatus) String() string {

	if name, ok := taskStatusNames[status]; ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(status))
}

func (status TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(status.String())
}

func (status *TaskStatus) UnmarshalJSON(data []byte) error {

	var name string

	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	for candidate, candidateName := range taskStatusNames {
		if candidateName == name {
			*status = candidate
			return nil
		}
	}

	return fmt.Errorf("unknown task status %q", name)
}

// Validator is owned exclusively by the ValidatorRegistry. Stake is the
// voting weight backing this validator's responses; a validator whose stake
// drops below the registry minimum is deactivated automatically.
type Validator struct {
	Id              string `json:"id"`
	Stake           uint64 `json:"stake"`
	Active          bool   `json:"active"`
	ValidatorUrl    string `json:"validatorURL"`
	WssValidatorUrl string `json:"wssValidatorURL"`
}

// Task metadata is immutable after creation; only Status moves, and only
// along Pending -> Completed -> Challenged or Pending -> Failed.
type Task struct {
	Index             uint64     `json:"index"`
	Kind              string     `json:"kind"`
	Payload           []byte     `json:"payload"`
	CreatedAt         int64      `json:"createdAt"`
	QuorumNumerator   uint64     `json:"quorumNumerator"`
	QuorumDenominator uint64     `json:"quorumDenominator"`
	QuorumIdentifiers []string   `json:"quorumIdentifiers"`
	Status            TaskStatus `json:"status"`
}

// Response is immutable once stored. Seq is the per-task arrival counter;
// it keeps group insertion order stable across a persistence round trip.
type Response struct {
	TaskIndex uint64 `json:"taskIndex"`
	Validator string `json:"validator"`
	Payload   []byte `json:"payload"`
	Signature string `json:"sig"`
	Timestamp int64  `json:"timestamp"`
	Seq       uint64 `json:"seq"`
}

// AggregatedResult is created exactly once per task, at the moment quorum is
// first reached, and is never mutated afterward.
type AggregatedResult struct {
	TaskIndex     uint64   `json:"taskIndex"`
	CanonicalHash string   `json:"canonicalHash"`
	StakeSigned   uint64   `json:"stakeSigned"`
	Signers       []string `json:"signers"`
	FinalizedAt   int64    `json:"finalizedAt"`
}

type ChallengeRecord struct {
	ChallengeId  string `json:"challengeId"`
	TaskIndex    uint64 `json:"taskIndex"`
	Challenger   string `json:"challenger"`
	Reason       string `json:"reason"`
	ChallengedAt int64  `json:"challengedAt"`
}

// FinalizedResult is the answer shape of the result query interface. Valid
// is false when no completed task exists for the requested kind; callers
// apply their own staleness policy on FinalizedAt.
type FinalizedResult struct {
	TaskIndex   uint64 `json:"taskIndex"`
	Payload     []byte `json:"payload"`
	FinalizedAt int64  `json:"finalizedAt"`
	Valid       bool   `json:"valid"`
}

type SlashOutcome struct {
	ValidatorId    string `json:"validatorId"`
	SlashedAmount  uint64 `json:"slashedAmount"`
	RemainingStake uint64 `json:"remainingStake"`
	Deactivated    bool   `json:"deactivated"`
	Reason         string `json:"reason"`
}

// Params are fixed for the lifetime of the engine.
type Params struct {
	MinimalStake             uint64
	MinimalQuorumNumerator   uint64
	MinimalQuorumDenominator uint64
	TaskTimeoutWindowMs      int64
}

func (params Params) Validate() error {

	if params.MinimalQuorumDenominator == 0 {
		return fmt.Errorf("minimal quorum denominator must be positive")
	}

	if params.MinimalQuorumNumerator > params.MinimalQuorumDenominator {
		return fmt.Errorf("minimal quorum fraction must not exceed 1.0")
	}

	if params.TaskTimeoutWindowMs <= 0 {
		return fmt.Errorf("task timeout window must be positive")
	}

	return nil
}

// Clock supplies UTC milliseconds. The node injects wall time; tests inject
// a manual clock so timeout behavior is deterministic.
type Clock interface {
	NowMilliseconds() int64
}

type ClockFunc func() int64

func (f ClockFunc) NowMilliseconds() int64 { return f() }

// Verifier checks that signature was produced over message by the claimed
// signer. Any asymmetric scheme works as long as both sides agree on the
// message construction in ResponseSigningDigest.
type Verifier interface {
	Verify(message, signerId, signature string) bool
}

// EventSink receives engine events synchronously, under the engine write
// lock. Implementations must not block; the node sink persists and enqueues.
type EventSink interface {
	OnEngineEvent(event Event)
}

type Event interface {
	EventKind() string
}

type TaskCreatedEvent struct {
	Task Task
}

func (TaskCreatedEvent) EventKind() string { return "TASK_CREATED" }

type ResponseAcceptedEvent struct {
	Response Response
}

func (ResponseAcceptedEvent) EventKind() string { return "RESPONSE_ACCEPTED" }

type TaskFinalizedEvent struct {
	Task   Task
	Result AggregatedResult
	// Payload is the canonical payload of the winning response group.
	Payload []byte
}

func (TaskFinalizedEvent) EventKind() string { return "TASK_FINALIZED" }

type TaskFailedEvent struct {
	Task     Task
	FailedAt int64
}

func (TaskFailedEvent) EventKind() string { return "TASK_FAILED" }

type TaskChallengedEvent struct {
	Task      Task
	Challenge ChallengeRecord
}

func (TaskChallengedEvent) EventKind() string { return "TASK_CHALLENGED" }

type ValidatorRegisteredEvent struct {
	Validator Validator
}

func (ValidatorRegisteredEvent) EventKind() string { return "VALIDATOR_REGISTERED" }

type ValidatorDeregisteredEvent struct {
	Validator Validator
}

func (ValidatorDeregisteredEvent) EventKind() string { return "VALIDATOR_DEREGISTERED" }

type StakeAddedEvent struct {
	Validator Validator
	Amount    uint64
}

func (StakeAddedEvent) EventKind() string { return "STAKE_ADDED" }

type ValidatorSlashedEvent struct {
	Validator Validator
	Outcome   SlashOutcome
}

func (ValidatorSlashedEvent) EventKind() string { return "VALIDATOR_SLASHED" }
