package main

import (
	"fmt"
	"os"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/http_pack"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
	"github.com/stakequorum/stakequorum-core/structures"
	"github.com/stakequorum/stakequorum-core/threads"
	"github.com/stakequorum/stakequorum-core/utils"
	"github.com/stakequorum/stakequorum-core/websocket_pack"
)

func RunStakeQuorumNode() {

	if err := prepareStakeQuorumNode(); err != nil {

		utils.LogWithTime(fmt.Sprintf("Failed to prepare node: %v", err), utils.RED_COLOR)

		utils.GracefulShutdown()

		return

	}

	//_________________________ RUN SEVERAL LOGICAL THREADS _________________________

	//✅ 1.Thread to announce created tasks to validators until quorum acked
	go threads.TaskAnnouncementThread()

	//✅ 2.Thread to fail pending tasks that outlived their timeout window
	go threads.TimeoutSweepThread()

	//✅ 3.Thread to deliver finalized results to websocket subscribers
	go threads.ResultOutboxThread()

	//✅ 4.Thread to keep registry gauges aligned with the engine
	go threads.RegistryGaugeRefreshThread()

	//___________________ RUN SERVERS - WEBSOCKET AND HTTP __________________

	// Set the atomic flag to true

	globals.FLOOD_PREVENTION_FLAG_FOR_ROUTES.Store(true)

	go websocket_pack.CreateWebsocketServer()

	http_pack.CreateHTTPServer()

}

func prepareStakeQuorumNode() error {

	if info, err := os.Stat(globals.CHAINDATA_PATH); err != nil {

		if os.IsNotExist(err) {

			if err := os.MkdirAll(globals.CHAINDATA_PATH, 0755); err != nil {

				return fmt.Errorf("create chaindata directory: %w", err)

			}

		} else {

			return fmt.Errorf("check chaindata directory: %w", err)

		}

	} else if !info.IsDir() {

		return fmt.Errorf("chaindata path %s exists and is not a directory", globals.CHAINDATA_PATH)

	}

	databases.TASKS = utils.OpenDb("TASKS")
	databases.RESPONSES = utils.OpenDb("RESPONSES")
	databases.RESULTS = utils.OpenDb("RESULTS")
	databases.REGISTRY_STATE = utils.OpenDb("REGISTRY_STATE")

	storedParams, stateExists, err := utils.LoadEngineParameters()

	if err != nil {
		return fmt.Errorf("probe stored engine parameters: %w", err)
	}

	clock := engine.ClockFunc(utils.GetUTCTimestampInMilliSeconds)

	verifier := cryptography.Ed25519Verifier{}

	if stateExists {

		// Parameters were pinned at first boot. The genesis file may have
		// drifted since then; the pinned copy wins for everything, including
		// the thread intervals read from globals.
		globals.GENESIS.EngineParameters = storedParams

		consensusEngine, err := restoreEngineFromDisk(storedParams, clock, verifier, nodeEventSink{})

		if err != nil {
			return fmt.Errorf("restore engine state: %w", err)
		}

		handlers.CONSENSUS_ENGINE = consensusEngine

	} else {

		consensusEngine, err := bootstrapEngineFromGenesis(clock, verifier, nodeEventSink{})

		if err != nil {
			return fmt.Errorf("load genesis issue: %w", err)
		}

		handlers.CONSENSUS_ENGINE = consensusEngine

	}

	seedMetricsGauges()

	return nil
}

func restoreEngineFromDisk(storedParams structures.EngineParameters, clock engine.Clock, verifier engine.Verifier, sink engine.EventSink) (*engine.ConsensusEngine, error) {

	validators, err := utils.LoadAllValidatorRecords()

	if err != nil {
		return nil, fmt.Errorf("load validator records: %w", err)
	}

	tasks, err := utils.LoadAllTasks()

	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	responses, err := utils.LoadAllResponses()

	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	results, err := utils.LoadAllAggregatedResults()

	if err != nil {
		return nil, fmt.Errorf("load aggregated results: %w", err)
	}

	challenges, err := utils.LoadAllChallengeRecords()

	if err != nil {
		return nil, fmt.Errorf("load challenge records: %w", err)
	}

	nextTaskIndex, err := utils.LoadNextTaskIndex()

	if err != nil {
		return nil, fmt.Errorf("load next task index: %w", err)
	}

	snapshot := &engine.Snapshot{
		Validators:    validators,
		Tasks:         tasks,
		Responses:     responses,
		Results:       results,
		Challenges:    challenges,
		NextTaskIndex: nextTaskIndex,
	}

	consensusEngine, err := engine.RestoreConsensusEngine(engineParamsFrom(storedParams), clock, verifier, sink, snapshot)

	if err != nil {
		return nil, err
	}

	// Pending tasks whose announcement never got confirmed go back to the
	// announcement queue, otherwise a restart would strand them.
	requeued := 0

	for _, task := range tasks {

		if task.Status == engine.TaskPending && !utils.IsTaskAnnounced(task.Index) {

			globals.ANNOUNCEMENT_MEMPOOL.Add(task)

			requeued++

		}

	}

	utils.LogWithTime(fmt.Sprintf("Restored engine state: %d validators, %d tasks (%d back in announcement queue)", len(validators), len(tasks), requeued), utils.CYAN_COLOR)

	return consensusEngine, nil

}

func bootstrapEngineFromGenesis(clock engine.Clock, verifier engine.Verifier, sink engine.EventSink) (*engine.ConsensusEngine, error) {

	genesisParams := globals.GENESIS.EngineParameters.CopyEngineParameters()

	consensusEngine, err := engine.NewConsensusEngine(engineParamsFrom(genesisParams), clock, verifier, sink)

	if err != nil {
		return nil, err
	}

	// The sink persists each validator record as the registration event
	// fires, so genesis validators reach REGISTRY_STATE the same way
	// runtime registrations do.
	for _, validatorStorage := range globals.GENESIS.Validators {

		if _, err := consensusEngine.RegisterValidator(validatorStorage.Pubkey, validatorStorage.Stake, validatorStorage.ValidatorUrl, validatorStorage.WssValidatorUrl); err != nil {
			return nil, fmt.Errorf("register genesis validator %s: %w", validatorStorage.Pubkey, err)
		}

	}

	// Pin the parameters last: their presence marks the genesis bootstrap
	// as complete, so a crash above repeats the bootstrap instead of
	// restoring half a registry.
	if err := utils.StoreEngineParameters(genesisParams); err != nil {
		return nil, fmt.Errorf("persist engine parameters: %w", err)
	}

	utils.LogWithTime(fmt.Sprintf("Started from genesis %s with %d validators", globals.GENESIS.NetworkId, len(globals.GENESIS.Validators)), utils.CYAN_COLOR)

	return consensusEngine, nil

}

func engineParamsFrom(parameters structures.EngineParameters) engine.Params {

	return engine.Params{
		MinimalStake:             parameters.MinimalStake,
		MinimalQuorumNumerator:   parameters.MinimalQuorumNumerator,
		MinimalQuorumDenominator: parameters.MinimalQuorumDenominator,
		TaskTimeoutWindowMs:      parameters.TaskTimeoutWindowMs,
	}

}

// seedMetricsGauges sets the absolute gauge values once the engine is fully
// built. Runtime events only patch the task gauge incrementally and kick the
// registry refresher, so the baseline has to come from here.
func seedMetricsGauges() {

	consensusEngine := handlers.CONSENSUS_ENGINE

	metrics_pack.ACTIVE_VALIDATORS.Set(float64(consensusEngine.ActiveValidatorCount()))

	metrics_pack.TOTAL_ACTIVE_STAKE.Set(float64(consensusEngine.TotalActiveStake()))

	metrics_pack.PENDING_TASKS.Set(float64(consensusEngine.TaskStatusCounts()[engine.TaskPending]))

}

// nodeEventSink persists every engine event and feeds the result outbox. It
// runs synchronously under the engine write lock: it must not block and must
// not call back into the engine, which is why registry gauge updates are
// delegated to a kicked refresher thread.
type nodeEventSink struct{}

func (nodeEventSink) OnEngineEvent(event engine.Event) {

	switch typedEvent := event.(type) {

	case engine.TaskCreatedEvent:

		logPersistenceFailure("store created task", utils.StoreTask(typedEvent.Task))
		logPersistenceFailure("store next task index", utils.StoreNextTaskIndex(typedEvent.Task.Index+1))

		globals.ANNOUNCEMENT_MEMPOOL.Add(typedEvent.Task)

		metrics_pack.TASKS_CREATED.Inc()
		metrics_pack.PENDING_TASKS.Inc()

	case engine.ResponseAcceptedEvent:

		logPersistenceFailure("store accepted response", utils.StoreResponse(typedEvent.Response))

		metrics_pack.RESPONSES_ACCEPTED.Inc()

	case engine.TaskFinalizedEvent:

		logPersistenceFailure("store finalized task", utils.StoreTask(typedEvent.Task))
		logPersistenceFailure("store aggregated result", utils.StoreAggregatedResult(typedEvent.Result))

		logPersistenceFailure("enqueue finalized result event", utils.PushResultEvent(structures.ResultEvent{
			Kind:       "TASK_FINALIZED",
			TaskIndex:  typedEvent.Task.Index,
			TaskKind:   typedEvent.Task.Kind,
			Result:     &typedEvent.Result,
			Payload:    typedEvent.Payload,
			OccurredAt: typedEvent.Result.FinalizedAt,
		}))

		metrics_pack.TASKS_FINALIZED.Inc()
		metrics_pack.PENDING_TASKS.Dec()

	case engine.TaskFailedEvent:

		logPersistenceFailure("store failed task", utils.StoreTask(typedEvent.Task))

		logPersistenceFailure("enqueue failed task event", utils.PushResultEvent(structures.ResultEvent{
			Kind:       "TASK_FAILED",
			TaskIndex:  typedEvent.Task.Index,
			TaskKind:   typedEvent.Task.Kind,
			OccurredAt: typedEvent.FailedAt,
		}))

		metrics_pack.TASKS_FAILED.Inc()
		metrics_pack.PENDING_TASKS.Dec()

	case engine.TaskChallengedEvent:

		logPersistenceFailure("store challenged task", utils.StoreTask(typedEvent.Task))
		logPersistenceFailure("store challenge record", utils.StoreChallengeRecord(typedEvent.Challenge))

		logPersistenceFailure("enqueue challenge event", utils.PushResultEvent(structures.ResultEvent{
			Kind:       "TASK_CHALLENGED",
			TaskIndex:  typedEvent.Task.Index,
			TaskKind:   typedEvent.Task.Kind,
			Challenge:  &typedEvent.Challenge,
			OccurredAt: typedEvent.Challenge.ChallengedAt,
		}))

		metrics_pack.TASKS_CHALLENGED.Inc()

	case engine.ValidatorRegisteredEvent:

		logPersistenceFailure("store registered validator", utils.StoreValidatorRecord(typedEvent.Validator))

		threads.KickRegistryGaugeRefresh()

	case engine.ValidatorDeregisteredEvent:

		logPersistenceFailure("store deregistered validator", utils.StoreValidatorRecord(typedEvent.Validator))

		threads.KickRegistryGaugeRefresh()

	case engine.StakeAddedEvent:

		logPersistenceFailure("store restaked validator", utils.StoreValidatorRecord(typedEvent.Validator))

		threads.KickRegistryGaugeRefresh()

	case engine.ValidatorSlashedEvent:

		logPersistenceFailure("store slashed validator", utils.StoreValidatorRecord(typedEvent.Validator))

		threads.KickRegistryGaugeRefresh()

	}

}

// logPersistenceFailure keeps the sink non-fatal: the in-memory engine stays
// authoritative for this process lifetime, a write that failed here is
// simply absent after the next restart.
func logPersistenceFailure(action string, err error) {

	if err != nil {

		utils.LogWithTime(fmt.Sprintf("Failed to %s: %v", action, err), utils.RED_COLOR)

	}

}
