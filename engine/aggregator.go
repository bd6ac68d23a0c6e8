package engine

import "math/big"

// responseGroup is one candidate answer for a task: every member submitted a
// payload with the same canonical hash. Stake is kept incrementally in sync
// with the registry, so reading it always matches what a full rescan against
// live stake would produce.
type responseGroup struct {
	hash    string
	payload []byte
	signers []string
	stake   uint64
	// firstSeen orders groups for deterministic tie-breaking: on equal
	// stake the earlier-created group wins.
	firstSeen uint64
}

// ConsensusAggregator maintains per-task stake tallies grouped by canonical
// payload hash. Each submission folds into its group in O(1); registry stake
// changes adjust the affected groups through AdjustValidatorStake, so a tally
// always equals what a full rescan against live stake would produce.
type ConsensusAggregator struct {
	registry *ValidatorRegistry

	groups         map[uint64]map[string]*responseGroup
	groupSeq       map[uint64]uint64
	results        map[uint64]*AggregatedResult
	resultPayloads map[uint64][]byte

	// contributions tracks which group each validator joined per pending
	// task, so a slash (or deregistration, or re-registration) can re-weigh
	// exactly the groups that validator touched.
	contributions map[string]map[uint64]string

	// kindHistory holds task indices per kind in finalization order; the
	// result query walks it backwards skipping tasks that later left the
	// Completed status.
	kindHistory map[string][]uint64
}

func NewConsensusAggregator(registry *ValidatorRegistry) *ConsensusAggregator {
	return &ConsensusAggregator{
		registry:       registry,
		groups:         make(map[uint64]map[string]*responseGroup),
		groupSeq:       make(map[uint64]uint64),
		results:        make(map[uint64]*AggregatedResult),
		resultPayloads: make(map[uint64][]byte),
		contributions:  make(map[string]map[uint64]string),
		kindHistory:    make(map[string][]uint64),
	}
}

// AddResponse folds one accepted response into its task's tallies.
func (aggregator *ConsensusAggregator) AddResponse(response *Response) {

	taskGroups, ok := aggregator.groups[response.TaskIndex]

	if !ok {
		taskGroups = make(map[string]*responseGroup)
		aggregator.groups[response.TaskIndex] = taskGroups
	}

	hash := CanonicalPayloadHash(response.Payload)

	group, ok := taskGroups[hash]

	if !ok {

		group = &responseGroup{
			hash:      hash,
			payload:   append([]byte(nil), response.Payload...),
			firstSeen: aggregator.groupSeq[response.TaskIndex],
		}

		aggregator.groupSeq[response.TaskIndex]++

		taskGroups[hash] = group

	}

	group.signers = append(group.signers, response.Validator)
	group.stake += aggregator.registry.EffectiveStake(response.Validator)

	byTask, ok := aggregator.contributions[response.Validator]

	if !ok {
		byTask = make(map[uint64]string)
		aggregator.contributions[response.Validator] = byTask
	}

	byTask[response.TaskIndex] = hash
}

// AdjustValidatorStake re-weighs every pending group the validator
// contributed to after its effective stake moved from previousStake to
// currentStake. The engine calls this on slash, add-stake, deregistration
// and re-registration, keeping tallies equal to a live-stake rescan.
func (aggregator *ConsensusAggregator) AdjustValidatorStake(validatorId string, previousStake, currentStake uint64) {

	if previousStake == currentStake {
		return
	}

	for taskIndex, hash := range aggregator.contributions[validatorId] {

		group, ok := aggregator.groups[taskIndex][hash]

		if !ok {
			continue
		}

		group.stake -= previousStake
		group.stake += currentStake

	}
}

// TryFinalize evaluates the finalization rule for a pending task and, when a
// group holds a quorum-threshold fraction of total active stake, produces
// the task's AggregatedResult. The result is created at most once; callers
// must not invoke this for tasks that already left Pending.
func (aggregator *ConsensusAggregator) TryFinalize(task *Task, finalizedAt int64) (*AggregatedResult, []byte, bool) {

	winner := aggregator.leadingGroup(task.Index)

	if winner == nil {
		return nil, nil, false
	}

	totalActiveStake := aggregator.registry.TotalActiveStake()

	if !QuorumReached(winner.stake, totalActiveStake, task.QuorumNumerator, task.QuorumDenominator) {
		return nil, nil, false
	}

	result := &AggregatedResult{
		TaskIndex:     task.Index,
		CanonicalHash: winner.hash,
		StakeSigned:   winner.stake,
		Signers:       append([]string(nil), winner.signers...),
		FinalizedAt:   finalizedAt,
	}

	aggregator.results[task.Index] = result
	aggregator.resultPayloads[task.Index] = winner.payload
	aggregator.kindHistory[task.Kind] = append(aggregator.kindHistory[task.Kind], task.Index)

	// Pending contribution tracking for this task is no longer needed:
	// the result is immutable from here on.
	aggregator.dropTaskContributions(task.Index)

	return result, winner.payload, true
}

// DropTask releases tally state for a task that can no longer finalize.
func (aggregator *ConsensusAggregator) DropTask(taskIndex uint64) {
	aggregator.dropTaskContributions(taskIndex)
}

func (aggregator *ConsensusAggregator) Result(taskIndex uint64) (*AggregatedResult, bool) {
	result, ok := aggregator.results[taskIndex]
	return result, ok
}

func (aggregator *ConsensusAggregator) ResultPayload(taskIndex uint64) ([]byte, bool) {
	payload, ok := aggregator.resultPayloads[taskIndex]
	return payload, ok
}

// LatestCompletedForKind returns the most recently finalized task of the
// given kind that is still in Completed status. Challenged entries are
// skipped: a disputed answer must not feed downstream consumers.
func (aggregator *ConsensusAggregator) LatestCompletedForKind(kind string, statusOf func(uint64) (TaskStatus, bool)) (*AggregatedResult, []byte, bool) {

	history := aggregator.kindHistory[kind]

	for i := len(history) - 1; i >= 0; i-- {

		taskIndex := history[i]

		status, ok := statusOf(taskIndex)

		if !ok || status != TaskCompleted {
			continue
		}

		return aggregator.results[taskIndex], aggregator.resultPayloads[taskIndex], true

	}

	return nil, nil, false
}

func (aggregator *ConsensusAggregator) leadingGroup(taskIndex uint64) *responseGroup {

	var winner *responseGroup

	for _, group := range aggregator.groups[taskIndex] {

		if winner == nil {
			winner = group
			continue
		}

		if group.stake > winner.stake || (group.stake == winner.stake && group.firstSeen < winner.firstSeen) {
			winner = group
		}

	}

	return winner
}

func (aggregator *ConsensusAggregator) dropTaskContributions(taskIndex uint64) {

	for _, group := range aggregator.groups[taskIndex] {
		for _, signer := range group.signers {
			if byTask, ok := aggregator.contributions[signer]; ok {
				delete(byTask, taskIndex)
				if len(byTask) == 0 {
					delete(aggregator.contributions, signer)
				}
			}
		}
	}

	delete(aggregator.groups, taskIndex)
	delete(aggregator.groupSeq, taskIndex)
}

// QuorumReached checks groupStake/totalStake >= numerator/denominator via
// big.Int cross-multiplication, so threshold arithmetic never loses
// precision to floating point or overflows uint64.
func QuorumReached(groupStake, totalStake, numerator, denominator uint64) bool {

	if denominator == 0 {
		return false
	}

	scaledGroup := new(big.Int).Mul(new(big.Int).SetUint64(groupStake), new(big.Int).SetUint64(denominator))
	scaledTotal := new(big.Int).Mul(new(big.Int).SetUint64(totalStake), new(big.Int).SetUint64(numerator))

	return scaledGroup.Cmp(scaledTotal) >= 0
}
