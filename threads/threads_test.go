package threads

import (
	"testing"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/utils"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(string, string, string) bool { return true }

func setupRegistryDatabase(t *testing.T) {

	t.Helper()

	registryDb, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)

	t.Cleanup(func() { registryDb.Close() })

	databases.REGISTRY_STATE = registryDb
}

func newAnnouncementRuntime() *AnnouncementRuntime {
	return &AnnouncementRuntime{
		AcksCache:    make(map[uint64]map[string]string),
		LastAttempt:  make(map[uint64]int64),
		FailedRounds: make(map[string]int),
		Connections:  make(map[string]*websocket.Conn),
	}
}

func TestRepeatedDeliveryFailuresMarkValidatorUnreachable(t *testing.T) {

	setupRegistryDatabase(t)

	runtime := newAnnouncementRuntime()
	noAcks := map[string]string{}

	for round := 1; round < unreachableAfterFailedRounds; round++ {
		trackAnnouncementFailures([]string{"alpha"}, noAcks, runtime)
		require.False(t, utils.IsValidatorMarkedUnreachable("alpha"))
	}

	require.Equal(t, unreachableAfterFailedRounds-1, runtime.FailedRounds["alpha"])

	trackAnnouncementFailures([]string{"alpha"}, noAcks, runtime)

	require.True(t, utils.IsValidatorMarkedUnreachable("alpha"))

	// The counter restarts from zero once the flag is set
	require.NotContains(t, runtime.FailedRounds, "alpha")
}

func TestAckWipesTheFailureStreak(t *testing.T) {

	setupRegistryDatabase(t)

	runtime := newAnnouncementRuntime()
	runtime.FailedRounds["beta"] = unreachableAfterFailedRounds - 1

	// beta shows up in the failed list of the same round it acked in: the
	// ack wins, the streak resets
	trackAnnouncementFailures([]string{"beta"}, map[string]string{"beta": "ack-sig"}, runtime)

	require.NotContains(t, runtime.FailedRounds, "beta")
	require.False(t, utils.IsValidatorMarkedUnreachable("beta"))
}

func TestSweepFailsOnlyExpiredPendingTasks(t *testing.T) {

	now := int64(1724580000000)

	params := engine.Params{
		MinimalStake:             150000,
		MinimalQuorumNumerator:   1,
		MinimalQuorumDenominator: 3,
		TaskTimeoutWindowMs:      30000,
	}

	consensusEngine, err := engine.NewConsensusEngine(params, engine.ClockFunc(func() int64 { return now }), acceptAllVerifier{}, nil)
	require.NoError(t, err)

	handlers.CONSENSUS_ENGINE = consensusEngine

	_, err = consensusEngine.RegisterValidator("alpha", 500000, "http://localhost:7331", "ws://localhost:9999")
	require.NoError(t, err)

	staleIndex, err := consensusEngine.CreateTask("PRICE_FEED", []byte("observed-early"), 1, 2, nil)
	require.NoError(t, err)

	now += params.TaskTimeoutWindowMs + 1

	freshIndex, err := consensusEngine.CreateTask("PRICE_FEED", []byte("observed-late"), 1, 2, nil)
	require.NoError(t, err)

	sweepExpiredTasks()

	staleTask, err := consensusEngine.GetTask(staleIndex)
	require.NoError(t, err)
	require.Equal(t, engine.TaskFailed, staleTask.Status)

	freshTask, err := consensusEngine.GetTask(freshIndex)
	require.NoError(t, err)
	require.Equal(t, engine.TaskPending, freshTask.Status)
}

func TestRegistryGaugeKicksCoalesce(t *testing.T) {

	// Drain whatever an earlier test may have left behind
	select {
	case <-registryGaugeKick:
	default:
	}

	KickRegistryGaugeRefresh()
	KickRegistryGaugeRefresh()
	KickRegistryGaugeRefresh()

	select {
	case <-registryGaugeKick:
	default:
		require.Fail(t, "expected one pending wakeup")
	}

	select {
	case <-registryGaugeKick:
		require.Fail(t, "kicks must coalesce into a single wakeup")
	default:
	}
}
