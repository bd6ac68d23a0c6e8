package engine

import (
	"math/big"
	"sort"
)

// TaskStore assigns monotonic indices and owns task records. Tasks are never
// deleted; status transitions are one-way and are driven by the aggregator,
// the timeout guard and the challenge handler.
type TaskStore struct {
	minimalQuorumNumerator   uint64
	minimalQuorumDenominator uint64

	tasks     map[uint64]*Task
	pending   map[uint64]struct{}
	nextIndex uint64

	statusCounts map[TaskStatus]uint64
}

func NewTaskStore(minimalQuorumNumerator, minimalQuorumDenominator uint64) *TaskStore {
	return &TaskStore{
		minimalQuorumNumerator:   minimalQuorumNumerator,
		minimalQuorumDenominator: minimalQuorumDenominator,
		tasks:                    make(map[uint64]*Task),
		pending:                  make(map[uint64]struct{}),
		statusCounts:             make(map[TaskStatus]uint64),
	}
}

func (store *TaskStore) CreateTask(kind string, payload []byte, quorumNumerator, quorumDenominator uint64, quorumIdentifiers []string, createdAt int64) (*Task, error) {

	if !store.quorumFractionAllowed(quorumNumerator, quorumDenominator) {
		return nil, ErrInvalidQuorumFraction
	}

	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	task := &Task{
		Index:             store.nextIndex,
		Kind:              kind,
		Payload:           append([]byte(nil), payload...),
		CreatedAt:         createdAt,
		QuorumNumerator:   quorumNumerator,
		QuorumDenominator: quorumDenominator,
		QuorumIdentifiers: normalizeQuorumIdentifiers(quorumIdentifiers),
		Status:            TaskPending,
	}

	store.tasks[task.Index] = task
	store.pending[task.Index] = struct{}{}
	store.statusCounts[TaskPending]++

	store.nextIndex++

	return task, nil
}

func (store *TaskStore) Get(index uint64) (*Task, bool) {
	task, ok := store.tasks[index]
	return task, ok
}

func (store *TaskStore) NextIndex() uint64 {
	return store.nextIndex
}

// SetStatus performs the one-way transition bookkeeping. Callers are
// responsible for only requesting legal transitions.
func (store *TaskStore) SetStatus(task *Task, status TaskStatus) {

	store.statusCounts[task.Status]--
	store.statusCounts[status]++

	if task.Status == TaskPending && status != TaskPending {
		delete(store.pending, task.Index)
	}

	task.Status = status
}

func (store *TaskStore) PendingIndices() []uint64 {

	indices := make([]uint64, 0, len(store.pending))

	for index := range store.pending {
		indices = append(indices, index)
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	return indices
}

func (store *TaskStore) StatusCounts() map[TaskStatus]uint64 {

	counts := make(map[TaskStatus]uint64, len(store.statusCounts))

	for status, count := range store.statusCounts {
		counts[status] = count
	}

	return counts
}

// quorumFractionAllowed checks minimalQuorum <= num/den <= 1 with exact
// rational arithmetic, the same cross-multiplication the finalization rule
// uses.
func (store *TaskStore) quorumFractionAllowed(numerator, denominator uint64) bool {

	if denominator == 0 || numerator > denominator {
		return false
	}

	// numerator/denominator >= minNumerator/minDenominator
	left := new(big.Int).Mul(new(big.Int).SetUint64(numerator), new(big.Int).SetUint64(store.minimalQuorumDenominator))
	right := new(big.Int).Mul(new(big.Int).SetUint64(store.minimalQuorumNumerator), new(big.Int).SetUint64(denominator))

	return left.Cmp(right) >= 0
}

func normalizeQuorumIdentifiers(identifiers []string) []string {

	if len(identifiers) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(identifiers))
	normalized := make([]string, 0, len(identifiers))

	for _, identifier := range identifiers {
		if _, dup := seen[identifier]; dup {
			continue
		}
		seen[identifier] = struct{}{}
		normalized = append(normalized, identifier)
	}

	sort.Strings(normalized)

	return normalized
}
