package engine

import (
	"fmt"
	"sync"
)

// ConsensusEngine is the single-writer facade over the in-memory stores:
// registry, task store, response collector and aggregator are owned here and
// passed by reference, never reached through package globals. One RWMutex
// serializes every write, so a slash is totally ordered against the
// submission whose tally it affects and tally reads always observe stake
// snapshots consistent with the registry.
type ConsensusEngine struct {
	mu sync.RWMutex

	params   Params
	clock    Clock
	verifier Verifier
	sink     EventSink

	registry   *ValidatorRegistry
	tasks      *TaskStore
	responses  *ResponseCollector
	aggregator *ConsensusAggregator
	challenges map[uint64]*ChallengeRecord
}

// NewConsensusEngine wires the component stores together. The sink may be
// nil; clock and verifier are required capabilities.
func NewConsensusEngine(params Params, clock Clock, verifier Verifier, sink EventSink) (*ConsensusEngine, error) {

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine params: %w", err)
	}

	if clock == nil {
		return nil, fmt.Errorf("engine requires a clock")
	}

	if verifier == nil {
		return nil, fmt.Errorf("engine requires a signature verifier")
	}

	registry := NewValidatorRegistry(params.MinimalStake)

	return &ConsensusEngine{
		params:     params,
		clock:      clock,
		verifier:   verifier,
		sink:       sink,
		registry:   registry,
		tasks:      NewTaskStore(params.MinimalQuorumNumerator, params.MinimalQuorumDenominator),
		responses:  NewResponseCollector(),
		aggregator: NewConsensusAggregator(registry),
		challenges: make(map[uint64]*ChallengeRecord),
	}, nil
}

func (engine *ConsensusEngine) Params() Params {
	return engine.params
}

// emit runs under the write lock. Sinks must not call back into the engine.
func (engine *ConsensusEngine) emit(event Event) {
	if engine.sink != nil {
		engine.sink.OnEngineEvent(event)
	}
}

//____________________________ REGISTRY OPERATIONS ____________________________

func (engine *ConsensusEngine) RegisterValidator(id string, stake uint64, validatorUrl, wssValidatorUrl string) (Validator, error) {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	previousStake := engine.registry.EffectiveStake(id)

	validator, err := engine.registry.Register(id, stake, validatorUrl, wssValidatorUrl)

	if err != nil {
		return Validator{}, err
	}

	// A returning validator may still hold contributions on pending tasks;
	// re-weigh them so tallies keep matching a live-stake rescan.
	engine.aggregator.AdjustValidatorStake(id, previousStake, engine.registry.EffectiveStake(id))

	engine.emit(ValidatorRegisteredEvent{Validator: *validator})

	return *validator, nil
}

func (engine *ConsensusEngine) DeregisterValidator(id string) (Validator, error) {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	previousStake := engine.registry.EffectiveStake(id)

	validator, err := engine.registry.Deregister(id)

	if err != nil {
		return Validator{}, err
	}

	engine.aggregator.AdjustValidatorStake(id, previousStake, 0)

	engine.emit(ValidatorDeregisteredEvent{Validator: *validator})

	return *validator, nil
}

func (engine *ConsensusEngine) AddStake(id string, amount uint64) (Validator, error) {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	previousStake := engine.registry.EffectiveStake(id)

	validator, err := engine.registry.AddStake(id, amount)

	if err != nil {
		return Validator{}, err
	}

	engine.aggregator.AdjustValidatorStake(id, previousStake, engine.registry.EffectiveStake(id))

	engine.emit(StakeAddedEvent{Validator: *validator, Amount: amount})

	return *validator, nil
}

// SlashValidator subtracts min(amount, currentStake) and deactivates the
// validator when the remainder falls below the registry minimum. Pending
// tallies the validator contributed to are re-weighed immediately, so a
// group carried by a now-slashed validator loses that weight before any
// later finalization check.
func (engine *ConsensusEngine) SlashValidator(id string, amount uint64, reason string) (SlashOutcome, error) {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	previousStake := engine.registry.EffectiveStake(id)

	validator, outcome, err := engine.registry.Slash(id, amount, reason)

	if err != nil {
		return SlashOutcome{}, err
	}

	engine.aggregator.AdjustValidatorStake(id, previousStake, engine.registry.EffectiveStake(id))

	engine.emit(ValidatorSlashedEvent{Validator: *validator, Outcome: outcome})

	return outcome, nil
}

func (engine *ConsensusEngine) TotalActiveStake() uint64 {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.registry.TotalActiveStake()
}

func (engine *ConsensusEngine) GetValidator(id string) (Validator, bool) {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.registry.Get(id)
}

func (engine *ConsensusEngine) ActiveValidators() []Validator {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.registry.ActiveValidators()
}

func (engine *ConsensusEngine) AllValidators() []Validator {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.registry.AllValidators()
}

func (engine *ConsensusEngine) ActiveValidatorCount() int {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.registry.ActiveCount()
}

//____________________________ TASK OPERATIONS ____________________________

func (engine *ConsensusEngine) CreateTask(kind string, payload []byte, quorumNumerator, quorumDenominator uint64, quorumIdentifiers []string) (uint64, error) {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	task, err := engine.tasks.CreateTask(kind, payload, quorumNumerator, quorumDenominator, quorumIdentifiers, engine.clock.NowMilliseconds())

	if err != nil {
		return 0, err
	}

	engine.emit(TaskCreatedEvent{Task: *task})

	return task.Index, nil
}

// SubmitResponse validates and stores one validator response, then
// re-evaluates finalization for the task. Validation is all-or-nothing: a
// rejected call stores nothing and moves no tally. The single side effect
// the flow permits is the lazy Pending->Failed transition when the task
// turns out to be expired.
func (engine *ConsensusEngine) SubmitResponse(taskIndex uint64, validatorId string, payload []byte, signature string) error {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	task, ok := engine.tasks.Get(taskIndex)

	if !ok {
		return ErrTaskNotFound
	}

	// Failed only ever means timed out, so late submissions keep getting
	// the timeout rejection whether or not the sweep beat them to the flip.
	if task.Status == TaskFailed {
		return ErrTaskTimedOut
	}

	if task.Status != TaskPending {
		return ErrTaskAlreadyFinalized
	}

	now := engine.clock.NowMilliseconds()

	if engine.taskExpired(task, now) {
		engine.failTask(task, now)
		return ErrTaskTimedOut
	}

	validator, ok := engine.registry.Get(validatorId)

	if !ok || !validator.Active {
		return ErrNotRegistered
	}

	if validator.Stake < engine.params.MinimalStake {
		return ErrInsufficientStake
	}

	if engine.responses.Has(taskIndex, validatorId) {
		return ErrDuplicateResponse
	}

	if !engine.verifier.Verify(ResponseSigningDigest(taskIndex, payload), validatorId, signature) {
		return ErrInvalidSignature
	}

	response := engine.responses.Store(taskIndex, validatorId, payload, signature, now)

	engine.aggregator.AddResponse(response)

	engine.emit(ResponseAcceptedEvent{Response: *response})

	if result, canonicalPayload, finalized := engine.aggregator.TryFinalize(task, now); finalized {

		engine.tasks.SetStatus(task, TaskCompleted)

		engine.emit(TaskFinalizedEvent{Task: *task, Result: *result, Payload: canonicalPayload})

	}

	return nil
}

func (engine *ConsensusEngine) GetTask(taskIndex uint64) (Task, error) {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	task, ok := engine.tasks.Get(taskIndex)

	if !ok {
		return Task{}, ErrTaskNotFound
	}

	return copyTask(task), nil
}

// GetAggregatedResult returns the finalized result and the canonical payload
// of the winning group. ErrTaskNotFound covers both an unknown index and a
// task that has not produced a result.
func (engine *ConsensusEngine) GetAggregatedResult(taskIndex uint64) (AggregatedResult, []byte, error) {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	result, ok := engine.aggregator.Result(taskIndex)

	if !ok {
		return AggregatedResult{}, nil, ErrTaskNotFound
	}

	payload, _ := engine.aggregator.ResultPayload(taskIndex)

	resultCopy := *result
	resultCopy.Signers = append([]string(nil), result.Signers...)

	return resultCopy, append([]byte(nil), payload...), nil
}

// GetFinalizedResult answers the downstream result query: the latest
// finalized task of the given kind that is still Completed. Valid=false
// means no such task exists; callers apply their own staleness policy.
func (engine *ConsensusEngine) GetFinalizedResult(kind string) FinalizedResult {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	result, payload, ok := engine.aggregator.LatestCompletedForKind(kind, func(index uint64) (TaskStatus, bool) {

		task, ok := engine.tasks.Get(index)

		if !ok {
			return 0, false
		}

		return task.Status, true

	})

	if !ok {
		return FinalizedResult{}
	}

	return FinalizedResult{
		TaskIndex:   result.TaskIndex,
		Payload:     append([]byte(nil), payload...),
		FinalizedAt: result.FinalizedAt,
		Valid:       true,
	}
}

func (engine *ConsensusEngine) NextTaskIndex() uint64 {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.tasks.NextIndex()
}

func (engine *ConsensusEngine) TaskStatusCounts() map[TaskStatus]uint64 {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.tasks.StatusCounts()
}

func (engine *ConsensusEngine) ResponseCount(taskIndex uint64) int {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	return engine.responses.CountForTask(taskIndex)
}

func copyTask(task *Task) Task {

	taskCopy := *task

	taskCopy.Payload = append([]byte(nil), task.Payload...)
	taskCopy.QuorumIdentifiers = append([]string(nil), task.QuorumIdentifiers...)

	return taskCopy
}
