package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {

	clock := &manualClock{now: 1724580000000}
	engine := newTestEngine(t, clock, acceptAll(), nil)

	registerQuartet(t, engine)

	priceAnswer := []byte(`{"price":"1.20"}`)

	// task 0: completed
	completedIndex, err := engine.CreateTask("PRICE_FEED", []byte("question"), 1, 2, nil)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitResponse(completedIndex, "alpha", priceAnswer, "sig-alpha"))
	require.NoError(t, engine.SubmitResponse(completedIndex, "gamma", priceAnswer, "sig-gamma"))

	// task 1: will expire
	expiredIndex, err := engine.CreateTask("GAS_QUOTE", []byte("question"), 1, 2, nil)
	require.NoError(t, err)

	clock.advance(testParams().TaskTimeoutWindowMs + 1)
	require.Equal(t, []uint64{expiredIndex}, engine.SweepExpiredTasks())

	// task 2: pending with two disagreeing groups
	pendingIndex, err := engine.CreateTask("PRICE_FEED", []byte("question"), 1, 2, nil)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitResponse(pendingIndex, "beta", []byte("answer-x"), "sig-beta"))
	require.NoError(t, engine.SubmitResponse(pendingIndex, "delta", []byte("answer-y"), "sig-delta"))

	// task 3: completed then challenged
	challengedIndex, err := engine.CreateTask("PRICE_FEED", []byte("question"), 1, 2, nil)
	require.NoError(t, err)
	require.NoError(t, engine.SubmitResponse(challengedIndex, "alpha", []byte(`{"price":"9.99"}`), "sig-alpha"))
	require.NoError(t, engine.SubmitResponse(challengedIndex, "gamma", []byte(`{"price":"9.99"}`), "sig-gamma"))
	_, err = engine.ChallengeTask(challengedIndex, "delta", "disagrees with my observation")
	require.NoError(t, err)

	snapshot := engine.Snapshot()

	restored, err := RestoreConsensusEngine(testParams(), clock, acceptAll(), nil, snapshot)
	require.NoError(t, err)

	// the restored engine re-snapshots to the identical state
	require.Equal(t, snapshot, restored.Snapshot())

	require.EqualValues(t, 4, restored.NextTaskIndex())
	require.EqualValues(t, 1555000, restored.TotalActiveStake())

	counts := restored.TaskStatusCounts()
	require.EqualValues(t, 1, counts[TaskCompleted])
	require.EqualValues(t, 1, counts[TaskFailed])
	require.EqualValues(t, 1, counts[TaskPending])
	require.EqualValues(t, 1, counts[TaskChallenged])

	// the challenged answer stays excluded, the completed one is served
	latest := restored.GetFinalizedResult("PRICE_FEED")
	require.True(t, latest.Valid)
	require.Equal(t, completedIndex, latest.TaskIndex)
	require.Equal(t, priceAnswer, latest.Payload)

	result, payload, err := restored.GetAggregatedResult(completedIndex)
	require.NoError(t, err)
	require.EqualValues(t, 925000, result.StakeSigned)
	require.Equal(t, priceAnswer, payload)

	challenge, ok := restored.GetChallenge(challengedIndex)
	require.True(t, ok)
	require.Equal(t, "delta", challenge.Challenger)

	// duplicates stay rejected across the round trip
	require.ErrorIs(t, restored.SubmitResponse(pendingIndex, "beta", []byte("answer-x"), "sig-beta"), ErrDuplicateResponse)

	// the expired task still answers with the timeout rejection
	require.ErrorIs(t, restored.SubmitResponse(expiredIndex, "alpha", []byte("late"), "sig-alpha"), ErrTaskTimedOut)

	// rebuilt pending tallies pick up where they left off:
	// beta 350_000 + alpha 500_000 = 850_000 >= 777_500
	require.NoError(t, restored.SubmitResponse(pendingIndex, "alpha", []byte("answer-x"), "sig-alpha"))

	task, err := restored.GetTask(pendingIndex)
	require.NoError(t, err)
	require.Equal(t, TaskCompleted, task.Status)

	result, payload, err = restored.GetAggregatedResult(pendingIndex)
	require.NoError(t, err)
	require.EqualValues(t, 850000, result.StakeSigned)
	require.Equal(t, []string{"beta", "alpha"}, result.Signers)
	require.Equal(t, []byte("answer-x"), payload)

	// the index counter keeps climbing from where it stopped
	nextIndex, err := restored.CreateTask("PRICE_FEED", []byte("question"), 1, 2, nil)
	require.NoError(t, err)
	require.EqualValues(t, 4, nextIndex)
}

func TestRestorePreservesGroupArrivalOrder(t *testing.T) {

	clock := &manualClock{now: 1724580000000}
	engine := newTestEngine(t, clock, acceptAll(), nil)

	for _, validator := range []struct {
		id    string
		stake uint64
	}{
		{"orion", 500000},
		{"vega", 500000},
		{"lyra", 160000},
		{"castor", 900000},
	} {
		_, err := engine.RegisterValidator(validator.id, validator.stake, "", "")
		require.NoError(t, err)
	}

	answerA := []byte("answer-a")
	answerB := []byte("answer-b")

	taskIndex, err := engine.CreateTask("PRICE_FEED", []byte("question"), 1, 3, nil)
	require.NoError(t, err)

	require.NoError(t, engine.SubmitResponse(taskIndex, "orion", answerA, "sig-orion"))
	require.NoError(t, engine.SubmitResponse(taskIndex, "vega", answerB, "sig-vega"))

	restored, err := RestoreConsensusEngine(testParams(), clock, acceptAll(), nil, engine.Snapshot())
	require.NoError(t, err)

	// with equal 500k groups, the tie must still resolve to the group that
	// arrived first before the snapshot was taken
	_, err = restored.SlashValidator("castor", 900000, "unavailability")
	require.NoError(t, err)

	require.NoError(t, restored.SubmitResponse(taskIndex, "lyra", []byte("answer-c"), "sig-lyra"))

	result, payload, err := restored.GetAggregatedResult(taskIndex)
	require.NoError(t, err)
	require.Equal(t, CanonicalPayloadHash(answerA), result.CanonicalHash)
	require.Equal(t, answerA, payload)
	require.Equal(t, []string{"orion"}, result.Signers)
}

func TestRestoreFromEmptySnapshot(t *testing.T) {

	clock := &manualClock{now: 1724580000000}

	restored, err := RestoreConsensusEngine(testParams(), clock, acceptAll(), nil, &Snapshot{})
	require.NoError(t, err)

	require.Zero(t, restored.NextTaskIndex())
	require.Zero(t, restored.TotalActiveStake())
}

func TestRestoreRejectsInconsistentState(t *testing.T) {

	clock := &manualClock{now: 1724580000000}

	validTask := Task{Index: 0, Kind: "PRICE_FEED", Payload: []byte("question"), CreatedAt: clock.now, QuorumNumerator: 1, QuorumDenominator: 2, Status: TaskPending}

	tests := []struct {
		name     string
		snapshot *Snapshot
	}{
		{
			name: "active validator below minimal stake",
			snapshot: &Snapshot{
				Validators: []Validator{{Id: "orion", Stake: 1, Active: true}},
			},
		},
		{
			name: "task index collides with counter",
			snapshot: &Snapshot{
				Tasks:         []Task{validTask},
				NextTaskIndex: 0,
			},
		},
		{
			name: "duplicate task index",
			snapshot: &Snapshot{
				Tasks:         []Task{validTask, validTask},
				NextTaskIndex: 1,
			},
		},
		{
			name: "response references unknown task",
			snapshot: &Snapshot{
				Responses: []Response{{TaskIndex: 9, Validator: "orion", Payload: []byte("answer")}},
			},
		},
		{
			name: "duplicate response pair",
			snapshot: &Snapshot{
				Tasks: []Task{validTask},
				Responses: []Response{
					{TaskIndex: 0, Validator: "orion", Payload: []byte("answer"), Seq: 0},
					{TaskIndex: 0, Validator: "orion", Payload: []byte("answer"), Seq: 1},
				},
				NextTaskIndex: 1,
			},
		},
		{
			name: "result references unknown task",
			snapshot: &Snapshot{
				Results: []AggregatedResult{{TaskIndex: 9, CanonicalHash: "deadbeef"}},
			},
		},
		{
			name: "result without matching response payload",
			snapshot: &Snapshot{
				Tasks: []Task{{Index: 0, Kind: "PRICE_FEED", Payload: []byte("question"), CreatedAt: clock.now, QuorumNumerator: 1, QuorumDenominator: 2, Status: TaskCompleted}},
				Responses: []Response{
					{TaskIndex: 0, Validator: "orion", Payload: []byte("answer"), Seq: 0},
				},
				Results:       []AggregatedResult{{TaskIndex: 0, CanonicalHash: "does-not-match", StakeSigned: 1, Signers: []string{"orion"}}},
				NextTaskIndex: 1,
			},
		},
		{
			name: "challenge references unknown task",
			snapshot: &Snapshot{
				Challenges: []ChallengeRecord{{ChallengeId: "c-1", TaskIndex: 9, Challenger: "orion"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreConsensusEngine(testParams(), clock, acceptAll(), nil, tt.snapshot)
			require.Error(t, err)
		})
	}
}
