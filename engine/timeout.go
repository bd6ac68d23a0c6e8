package engine

// Expiry is enforced at two points: lazily inside SubmitResponse, which is
// enough to guarantee no response lands on and no finalization happens for
// an expired task, and by SweepExpiredTasks, which bounds how long an
// untouched task stays Pending.

func (engine *ConsensusEngine) taskExpired(task *Task, now int64) bool {
	return now-task.CreatedAt > engine.params.TaskTimeoutWindowMs
}

func (engine *ConsensusEngine) failTask(task *Task, failedAt int64) {

	engine.tasks.SetStatus(task, TaskFailed)

	// Tallies for a failed task can never finalize, release them.
	engine.aggregator.DropTask(task.Index)

	engine.emit(TaskFailedEvent{Task: *task, FailedAt: failedAt})
}

// SweepExpiredTasks transitions every expired pending task to Failed and
// returns the affected indices.
func (engine *ConsensusEngine) SweepExpiredTasks() []uint64 {

	engine.mu.Lock()
	defer engine.mu.Unlock()

	now := engine.clock.NowMilliseconds()

	var failed []uint64

	for _, taskIndex := range engine.tasks.PendingIndices() {

		task, ok := engine.tasks.Get(taskIndex)

		if !ok {
			continue
		}

		if engine.taskExpired(task, now) {

			engine.failTask(task, now)

			failed = append(failed, taskIndex)

		}

	}

	return failed
}
