package engine

import "github.com/google/uuid"

// ChallengeTask flags a Completed task as Challenged and records who raised
// the dispute and why. The transition is terminal for this engine: dispute
// resolution and any stake confiscation run as an external process consuming
// the TaskChallengedEvent. A Challenged task is no longer Completed, so a
// second challenge is rejected with ErrTaskNotCompleted.
func (engine *ConsensusEngine) ChallengeTask(taskIndex uint64, challengerId, reason string) (ChallengeRecord, error) {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	task, ok := engine.tasks.Get(taskIndex)

	if !ok {
		return ChallengeRecord{}, ErrTaskNotFound
	}

	challenger, ok := engine.registry.Get(challengerId)

	if !ok || !challenger.Active {
		return ChallengeRecord{}, ErrNotRegistered
	}

	if task.Status != TaskCompleted {
		return ChallengeRecord{}, ErrTaskNotCompleted
	}

	record := &ChallengeRecord{
		ChallengeId:  uuid.NewString(),
		TaskIndex:    taskIndex,
		Challenger:   challengerId,
		Reason:       reason,
		ChallengedAt: engine.clock.NowMilliseconds(),
	}

	engine.tasks.SetStatus(task, TaskChallenged)

	engine.challenges[taskIndex] = record

	engine.emit(TaskChallengedEvent{Task: *task, Challenge: *record})

	return *record, nil
}

func (engine *ConsensusEngine) GetChallenge(taskIndex uint64) (ChallengeRecord, bool) {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	record, ok := engine.challenges[taskIndex]

	if !ok {
		return ChallengeRecord{}, false
	}

	return *record, true
}
