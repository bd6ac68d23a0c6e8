package utils

import (
	"testing"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/structures"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

func newMemoryDb(t *testing.T) *leveldb.DB {

	t.Helper()

	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestTaskStorageRoundTrip(t *testing.T) {

	databases.TASKS = newMemoryDb(t)

	stored := []engine.Task{
		{Index: 2, Kind: "PRICE_FEED", Payload: []byte(`{"price":"3"}`), CreatedAt: 300, QuorumNumerator: 2, QuorumDenominator: 3, Status: engine.TaskPending},
		{Index: 0, Kind: "PRICE_FEED", Payload: []byte(`{"price":"1"}`), CreatedAt: 100, QuorumNumerator: 1, QuorumDenominator: 2, Status: engine.TaskCompleted},
		{Index: 1, Kind: "RANDOMNESS", Payload: []byte(`{"seed":"2"}`), CreatedAt: 200, QuorumNumerator: 1, QuorumDenominator: 2, QuorumIdentifiers: []string{"alpha", "beta"}, Status: engine.TaskFailed},
	}

	for _, task := range stored {
		require.NoError(t, StoreTask(task))
	}

	loaded, err := LoadAllTasks()
	require.NoError(t, err)
	require.Len(t, loaded, len(stored))

	// key iteration is lexicographic, so compare by index, not by position
	byIndex := make(map[uint64]engine.Task, len(loaded))

	for _, task := range loaded {
		byIndex[task.Index] = task
	}

	for _, task := range stored {
		require.Equal(t, task, byIndex[task.Index])
	}
}

func TestStoreTaskOverwritesOnStatusFlip(t *testing.T) {

	databases.TASKS = newMemoryDb(t)

	task := engine.Task{Index: 5, Kind: "PRICE_FEED", Payload: []byte(`{}`), QuorumNumerator: 1, QuorumDenominator: 2, Status: engine.TaskPending}

	require.NoError(t, StoreTask(task))

	task.Status = engine.TaskCompleted

	require.NoError(t, StoreTask(task))

	loaded, err := LoadAllTasks()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, engine.TaskCompleted, loaded[0].Status)
}

func TestNextTaskIndexDefaultsToZero(t *testing.T) {

	databases.TASKS = newMemoryDb(t)

	nextIndex, err := LoadNextTaskIndex()
	require.NoError(t, err)
	require.Zero(t, nextIndex)

	require.NoError(t, StoreNextTaskIndex(7))

	nextIndex, err = LoadNextTaskIndex()
	require.NoError(t, err)
	require.EqualValues(t, 7, nextIndex)
}

func TestResponsesArePartitionedByTaskAndOrderedBySeq(t *testing.T) {

	databases.RESPONSES = newMemoryDb(t)

	// task 3 and task 30 must not leak into each other's prefix scans
	require.NoError(t, StoreResponse(engine.Response{TaskIndex: 3, Validator: "gamma", Payload: []byte(`{"v":1}`), Signature: "sg", Timestamp: 11, Seq: 0}))
	require.NoError(t, StoreResponse(engine.Response{TaskIndex: 3, Validator: "alpha", Payload: []byte(`{"v":1}`), Signature: "sa", Timestamp: 12, Seq: 1}))
	require.NoError(t, StoreResponse(engine.Response{TaskIndex: 30, Validator: "beta", Payload: []byte(`{"v":2}`), Signature: "sb", Timestamp: 13, Seq: 0}))

	forTask, err := LoadResponsesForTask(3)
	require.NoError(t, err)
	require.Len(t, forTask, 2)

	// gamma arrived first even though alpha sorts first lexically
	require.Equal(t, "gamma", forTask[0].Validator)
	require.EqualValues(t, 0, forTask[0].Seq)
	require.Equal(t, "alpha", forTask[1].Validator)
	require.EqualValues(t, 1, forTask[1].Seq)

	all, err := LoadAllResponses()
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestValidatorRecordsRoundTrip(t *testing.T) {

	databases.REGISTRY_STATE = newMemoryDb(t)

	alpha := engine.Validator{Id: "alpha", Stake: 500000, Active: true, ValidatorUrl: "http://alpha:7331", WssValidatorUrl: "ws://alpha:9999"}
	beta := engine.Validator{Id: "beta", Stake: 0, Active: false}

	require.NoError(t, StoreValidatorRecord(alpha))
	require.NoError(t, StoreValidatorRecord(beta))

	loaded, err := LoadAllValidatorRecords()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byId := make(map[string]engine.Validator, len(loaded))

	for _, validator := range loaded {
		byId[validator.Id] = validator
	}

	require.Equal(t, alpha, byId["alpha"])
	require.Equal(t, beta, byId["beta"])
}

func TestEngineParametersActAsRestoreMarker(t *testing.T) {

	databases.REGISTRY_STATE = newMemoryDb(t)

	_, found, err := LoadEngineParameters()
	require.NoError(t, err)
	require.False(t, found)

	params := structures.EngineParameters{
		MinimalStake:             150000,
		MinimalQuorumNumerator:   2,
		MinimalQuorumDenominator: 3,
		TaskTimeoutWindowMs:      30000,
	}

	require.NoError(t, StoreEngineParameters(params))

	loaded, found, err := LoadEngineParameters()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, params, loaded)
}

func TestResultOutboxLifecycle(t *testing.T) {

	databases.RESULTS = newMemoryDb(t)

	result := engine.AggregatedResult{TaskIndex: 4, CanonicalHash: "abc", StakeSigned: 900000, Signers: []string{"alpha"}, FinalizedAt: 500}

	require.NoError(t, PushResultEvent(structures.ResultEvent{Kind: "TASK_FINALIZED", TaskIndex: 4, TaskKind: "PRICE_FEED", Result: &result, Payload: []byte(`{"v":1}`), OccurredAt: 500}))
	require.NoError(t, PushResultEvent(structures.ResultEvent{Kind: "TASK_CHALLENGED", TaskIndex: 4, TaskKind: "PRICE_FEED", OccurredAt: 600}))
	require.NoError(t, PushResultEvent(structures.ResultEvent{Kind: "TASK_FAILED", TaskIndex: 9, TaskKind: "RANDOMNESS", OccurredAt: 700}))

	limited, err := LoadResultOutboxBatch(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	entries, err := LoadResultOutboxBatch(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// same (task, kind) overwrites instead of queueing a duplicate
	require.NoError(t, PushResultEvent(structures.ResultEvent{Kind: "TASK_FAILED", TaskIndex: 9, TaskKind: "RANDOMNESS", OccurredAt: 701}))

	entries, err = LoadResultOutboxBatch(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, entry := range entries {
		require.NoError(t, DeleteResultOutboxEntry(entry.Key))
	}

	entries, err = LoadResultOutboxBatch(0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAggregatedResultAndChallengeRoundTrip(t *testing.T) {

	databases.RESULTS = newMemoryDb(t)

	result := engine.AggregatedResult{TaskIndex: 11, CanonicalHash: "feed", StakeSigned: 1000000, Signers: []string{"alpha", "beta"}, FinalizedAt: 900}

	require.NoError(t, StoreAggregatedResult(result))

	results, err := LoadAllAggregatedResults()
	require.NoError(t, err)
	require.Equal(t, []engine.AggregatedResult{result}, results)

	record := engine.ChallengeRecord{ChallengeId: "c-1", TaskIndex: 11, Challenger: "gamma", Reason: "payload disputed", ChallengedAt: 950}

	require.NoError(t, StoreChallengeRecord(record))

	records, err := LoadAllChallengeRecords()
	require.NoError(t, err)
	require.Equal(t, []engine.ChallengeRecord{record}, records)
}

func TestAnnouncementFlags(t *testing.T) {

	databases.TASKS = newMemoryDb(t)

	require.False(t, IsTaskAnnounced(42))

	MarkTaskAnnounced(42)

	require.True(t, IsTaskAnnounced(42))
	require.False(t, IsTaskAnnounced(43))
}

func TestValidatorHealthFlags(t *testing.T) {

	databases.REGISTRY_STATE = newMemoryDb(t)

	require.False(t, IsValidatorMarkedUnreachable("alpha"))

	require.NoError(t, MarkValidatorUnreachable("alpha", "announcement delivery kept failing"))

	require.True(t, IsValidatorMarkedUnreachable("alpha"))

	ClearValidatorUnreachable("alpha")

	require.False(t, IsValidatorMarkedUnreachable("alpha"))
}
