package engine

import (
	"fmt"
	"sort"
)

// Snapshot is the complete persistable engine state. The node stores its
// pieces under separate key prefixes and reassembles a Snapshot at boot;
// tests round-trip it directly.
type Snapshot struct {
	Validators    []Validator        `json:"validators"`
	Tasks         []Task             `json:"tasks"`
	Responses     []Response         `json:"responses"`
	Results       []AggregatedResult `json:"results"`
	Challenges    []ChallengeRecord  `json:"challenges"`
	NextTaskIndex uint64             `json:"nextTaskIndex"`
}

// Snapshot captures a deep copy of the current state in deterministic order:
// validators by id, tasks by index, responses by (task, arrival).
func (engine *ConsensusEngine) Snapshot() *Snapshot {

	engine.mu.RLock()
	defer engine.mu.RUnlock()

	snapshot := &Snapshot{NextTaskIndex: engine.tasks.NextIndex()}

	snapshot.Validators = engine.registry.AllValidators()

	sort.Slice(snapshot.Validators, func(i, j int) bool {
		return snapshot.Validators[i].Id < snapshot.Validators[j].Id
	})

	taskIndices := make([]uint64, 0, len(engine.tasks.tasks))

	for taskIndex := range engine.tasks.tasks {
		taskIndices = append(taskIndices, taskIndex)
	}

	sort.Slice(taskIndices, func(i, j int) bool { return taskIndices[i] < taskIndices[j] })

	for _, taskIndex := range taskIndices {

		snapshot.Tasks = append(snapshot.Tasks, copyTask(engine.tasks.tasks[taskIndex]))

		snapshot.Responses = append(snapshot.Responses, engine.responses.ResponsesForTask(taskIndex)...)

		if result, ok := engine.aggregator.results[taskIndex]; ok {

			resultCopy := *result
			resultCopy.Signers = append([]string(nil), result.Signers...)

			snapshot.Results = append(snapshot.Results, resultCopy)

		}

		if record, ok := engine.challenges[taskIndex]; ok {
			snapshot.Challenges = append(snapshot.Challenges, *record)
		}

	}

	return snapshot
}

// RestoreConsensusEngine rebuilds an engine from persisted state. Restore is
// direct state reconstruction, not an operation replay: no events are
// emitted and no signatures are re-verified, since every stored response
// already passed validation when it was accepted. Pending-task tallies are
// rebuilt by feeding stored responses through the aggregator in arrival
// order, so group tie-breaking survives the round trip.
func RestoreConsensusEngine(params Params, clock Clock, verifier Verifier, sink EventSink, snapshot *Snapshot) (*ConsensusEngine, error) {

	engine, err := NewConsensusEngine(params, clock, verifier, sink)

	if err != nil {
		return nil, err
	}

	for i := range snapshot.Validators {

		validator := snapshot.Validators[i]

		if validator.Active && validator.Stake < params.MinimalStake {
			return nil, fmt.Errorf("restore: active validator %s holds stake below the registry minimum", validator.Id)
		}

		record := validator

		engine.registry.records[validator.Id] = &record

		if validator.Active {
			engine.registry.slots[validator.Id] = len(engine.registry.active)
			engine.registry.active = append(engine.registry.active, validator.Id)
		}

	}

	for i := range snapshot.Tasks {

		task := copyTask(&snapshot.Tasks[i])

		if task.Index >= snapshot.NextTaskIndex {
			return nil, fmt.Errorf("restore: task index %d collides with next index counter %d", task.Index, snapshot.NextTaskIndex)
		}

		if _, exists := engine.tasks.tasks[task.Index]; exists {
			return nil, fmt.Errorf("restore: duplicate task index %d", task.Index)
		}

		stored := task

		engine.tasks.tasks[task.Index] = &stored
		engine.tasks.statusCounts[task.Status]++

		if task.Status == TaskPending {
			engine.tasks.pending[task.Index] = struct{}{}
		}

	}

	engine.tasks.nextIndex = snapshot.NextTaskIndex

	restored := make(map[uint64][]*Response)

	for i := range snapshot.Responses {

		response := snapshot.Responses[i]

		task, ok := engine.tasks.tasks[response.TaskIndex]

		if !ok {
			return nil, fmt.Errorf("restore: response references unknown task %d", response.TaskIndex)
		}

		if engine.responses.Has(response.TaskIndex, response.Validator) {
			return nil, fmt.Errorf("restore: duplicate response by %s for task %d", response.Validator, response.TaskIndex)
		}

		stored := response
		stored.Payload = append([]byte(nil), response.Payload...)

		byValidator, ok := engine.responses.byTask[response.TaskIndex]

		if !ok {
			byValidator = make(map[string]*Response)
			engine.responses.byTask[response.TaskIndex] = byValidator
		}

		byValidator[response.Validator] = &stored

		if stored.Seq >= engine.responses.seq[response.TaskIndex] {
			engine.responses.seq[response.TaskIndex] = stored.Seq + 1
		}

		if task.Status == TaskPending {
			restored[response.TaskIndex] = append(restored[response.TaskIndex], &stored)
		}

	}

	// Only pending tasks need live tallies; resolved tasks released theirs
	// when they left Pending.
	for _, responses := range restored {

		sort.Slice(responses, func(i, j int) bool { return responses[i].Seq < responses[j].Seq })

		for _, response := range responses {
			engine.aggregator.AddResponse(response)
		}

	}

	// Finalization order per kind is reproduced from (finalizedAt, index):
	// a single-writer engine finalizes in nondecreasing time, with the index
	// breaking same-millisecond ties.
	results := append([]AggregatedResult(nil), snapshot.Results...)

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalizedAt != results[j].FinalizedAt {
			return results[i].FinalizedAt < results[j].FinalizedAt
		}
		return results[i].TaskIndex < results[j].TaskIndex
	})

	for i := range results {

		result := results[i]

		task, ok := engine.tasks.tasks[result.TaskIndex]

		if !ok {
			return nil, fmt.Errorf("restore: result references unknown task %d", result.TaskIndex)
		}

		payload, ok := recoverResultPayload(engine.responses.ResponsesForTask(result.TaskIndex), result.CanonicalHash)

		if !ok {
			return nil, fmt.Errorf("restore: no stored response matches the canonical hash of task %d", result.TaskIndex)
		}

		stored := result
		stored.Signers = append([]string(nil), result.Signers...)

		engine.aggregator.results[result.TaskIndex] = &stored
		engine.aggregator.resultPayloads[result.TaskIndex] = payload
		engine.aggregator.kindHistory[task.Kind] = append(engine.aggregator.kindHistory[task.Kind], result.TaskIndex)

	}

	for i := range snapshot.Challenges {

		record := snapshot.Challenges[i]

		if _, ok := engine.tasks.tasks[record.TaskIndex]; !ok {
			return nil, fmt.Errorf("restore: challenge references unknown task %d", record.TaskIndex)
		}

		engine.challenges[record.TaskIndex] = &record

	}

	return engine, nil
}

func recoverResultPayload(responses []Response, canonicalHash string) ([]byte, bool) {

	for i := range responses {
		if CanonicalPayloadHash(responses[i].Payload) == canonicalHash {
			return append([]byte(nil), responses[i].Payload...), true
		}
	}

	return nil, false
}
