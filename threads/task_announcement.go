package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/stakequorum/stakequorum-core/cryptography"
	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
	"github.com/stakequorum/stakequorum-core/structures"
	"github.com/stakequorum/stakequorum-core/task_pack"
	"github.com/stakequorum/stakequorum-core/utils"
	"github.com/stakequorum/stakequorum-core/websocket_pack"

	"github.com/gorilla/websocket"
)

// Connection-level failures tolerated before the announcer stops dialing a
// validator. Cleared again by an ack or by a submitted response.
const unreachableAfterFailedRounds = 5

type AnnouncementRuntime struct {
	sync.Mutex
	AcksCache      map[uint64]map[string]string
	LastAttempt    map[uint64]int64
	FailedRounds   map[string]int
	Connections    map[string]*websocket.Conn
	Waiter         *utils.StakeWaiter
	WaiterCapacity int
}

var ANNOUNCEMENT_RUNTIME = &AnnouncementRuntime{
	AcksCache:    make(map[uint64]map[string]string),
	LastAttempt:  make(map[uint64]int64),
	FailedRounds: make(map[string]int),
	Connections:  make(map[string]*websocket.Conn),
}

// TaskAnnouncementThread pushes freshly created tasks to the active validator
// set over websockets and keeps re-sending until validators holding the
// task's quorum share of stake acknowledged receipt. Delivery is best-effort
// assistance: a validator that never hears an announcement can still pull
// tasks over the query routes and submit in time.
func TaskAnnouncementThread() {

	bootValidators := handlers.CONSENSUS_ENGINE.ActiveValidators()

	bootTargets := make([]string, 0, len(bootValidators))

	for _, validator := range bootValidators {
		if validator.Id != globals.CONFIGURATION.PublicKey {
			bootTargets = append(bootTargets, validator.Id)
		}
	}

	utils.OpenWebsocketConnectionsWithValidators(bootTargets, ANNOUNCEMENT_RUNTIME.Connections)

	for {

		pendingAnnouncements := globals.ANNOUNCEMENT_MEMPOOL.List()

		progressed := false

		for _, task := range pendingAnnouncements {
			if runTaskAnnouncement(task, ANNOUNCEMENT_RUNTIME) {
				progressed = true
			}
		}

		// If nothing moved, back off to avoid a hot loop. If something did,
		// keep latency low but yield briefly to reduce lock/CPU pressure.
		if progressed {
			time.Sleep(5 * time.Millisecond)
		} else {
			time.Sleep(200 * time.Millisecond)
		}
	}

}

func runTaskAnnouncement(task engine.Task, runtime *AnnouncementRuntime) bool {

	// Confirmed in an earlier run (e.g. before a restart)
	if utils.IsTaskAnnounced(task.Index) {
		globals.ANNOUNCEMENT_MEMPOOL.Delete(task.Index)
		cleanupAnnouncementState(task.Index, runtime)
		return true
	}

	// Once the task left Pending there is nothing to announce anymore -
	// validators could not submit for it anyway
	currentTask, err := handlers.CONSENSUS_ENGINE.GetTask(task.Index)

	if err != nil || currentTask.Status != engine.TaskPending {
		globals.ANNOUNCEMENT_MEMPOOL.Delete(task.Index)
		cleanupAnnouncementState(task.Index, runtime)
		return false
	}

	retryIntervalMs := globals.GENESIS.EngineParameters.TaskAnnouncementIntervalMs

	if retryIntervalMs <= 0 {
		retryIntervalMs = 1000
	}

	// Snapshot ack state under lock, then release it before doing I/O
	// (engine reads / websocket rounds).
	runtime.Lock()

	if lastAttempt, ok := runtime.LastAttempt[task.Index]; ok {
		if utils.GetUTCTimestampInMilliSeconds()-lastAttempt < retryIntervalMs {
			runtime.Unlock()
			return false
		}
	}

	runtime.LastAttempt[task.Index] = utils.GetUTCTimestampInMilliSeconds()

	localAcks := make(map[string]string, len(runtime.AcksCache[task.Index]))

	for voter, ackSignature := range runtime.AcksCache[task.Index] {
		localAcks[voter] = ackSignature
	}

	runtime.Unlock()

	activeValidators := handlers.CONSENSUS_ENGINE.ActiveValidators()
	totalActiveStake := handlers.CONSENSUS_ENGINE.TotalActiveStake()

	if totalActiveStake == 0 {
		return false
	}

	// Stake weights come from the live registry, so acks by validators that
	// were slashed since simply stop counting.
	stakeOf := make(map[string]uint64, len(activeValidators))

	// Own stake counts as implicitly acked - the announcer obviously knows
	// the task it just created.
	var ackedStake uint64

	targets := make([]string, 0, len(activeValidators))

	for _, validator := range activeValidators {

		stakeOf[validator.Id] = validator.Stake

		if validator.Id == globals.CONFIGURATION.PublicKey {
			ackedStake += validator.Stake
			continue
		}

		if _, alreadyAcked := localAcks[validator.Id]; alreadyAcked {
			ackedStake += validator.Stake
			continue
		}

		// quorumIdentifiers narrows who gets dialed; an empty set means the
		// whole active set
		if len(task.QuorumIdentifiers) > 0 && !slices.Contains(task.QuorumIdentifiers, validator.Id) {
			continue
		}

		if validator.WssValidatorUrl == "" {
			continue
		}

		if utils.IsValidatorMarkedUnreachable(validator.Id) {
			continue
		}

		targets = append(targets, validator.Id)
	}

	if engine.QuorumReached(ackedStake, totalActiveStake, task.QuorumNumerator, task.QuorumDenominator) {
		return confirmAnnouncement(task, localAcks, ackedStake, totalActiveStake, runtime)
	}

	if len(targets) == 0 {
		return false
	}

	announcement := task_pack.NewTaskAnnouncement(currentTask)
	announcement.SignAnnouncement()

	message := websocket_pack.WsTaskAnnouncementRequest{
		Route:        "accept_task_announcement",
		Announcement: *announcement,
	}

	messageJsoned, marshalErr := json.Marshal(message)

	if marshalErr != nil {
		return false
	}

	runtime.Lock()
	if runtime.Waiter == nil || runtime.WaiterCapacity < len(targets) {
		runtime.Waiter = utils.NewStakeWaiter(len(targets))
		runtime.WaiterCapacity = len(targets)
	}
	waiter := runtime.Waiter
	runtime.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	responses, _ := waiter.SendAndWait(
		ctx, messageJsoned, targets, runtime.Connections, stakeOf,
		ackedStake, totalActiveStake, task.QuorumNumerator, task.QuorumDenominator,
	)

	announcementHash := announcement.GetHash()

	for _, raw := range responses {

		var ack structures.TaskAnnouncementAck

		if err := json.Unmarshal(raw, &ack); err != nil {
			continue
		}

		if ack.TaskIndex != task.Index {
			continue
		}

		if _, isActive := stakeOf[ack.Validator]; !isActive {
			continue
		}

		if _, alreadyAcked := localAcks[ack.Validator]; alreadyAcked {
			continue
		}

		if !cryptography.VerifySignature(announcementHash, ack.Validator, ack.Sig) {
			continue
		}

		localAcks[ack.Validator] = ack.Sig
		ackedStake += stakeOf[ack.Validator]

		utils.ClearValidatorUnreachable(ack.Validator)
	}

	trackAnnouncementFailures(waiter.LastFailed(), localAcks, runtime)

	// Commit the merged ack set back to the runtime (quick, under lock).
	runtime.Lock()
	committedAcks := make(map[string]string, len(localAcks))
	for voter, ackSignature := range localAcks {
		committedAcks[voter] = ackSignature
	}
	runtime.AcksCache[task.Index] = committedAcks
	runtime.Unlock()

	if !engine.QuorumReached(ackedStake, totalActiveStake, task.QuorumNumerator, task.QuorumDenominator) {
		return false
	}

	return confirmAnnouncement(task, localAcks, ackedStake, totalActiveStake, runtime)
}

func confirmAnnouncement(task engine.Task, acks map[string]string, ackedStake, totalActiveStake uint64, runtime *AnnouncementRuntime) bool {

	utils.MarkTaskAnnounced(task.Index)

	globals.ANNOUNCEMENT_MEMPOOL.Delete(task.Index)

	cleanupAnnouncementState(task.Index, runtime)

	metrics_pack.ANNOUNCEMENTS_CONFIRMED.Inc()

	msg := fmt.Sprintf(
		"%sTask %s%d %sconfirmed by %s%d %svalidators %s(%.3f%% of stake acked)",
		utils.RED_COLOR,
		utils.CYAN_COLOR,
		task.Index,
		utils.RED_COLOR,
		utils.CYAN_COLOR,
		len(acks),
		utils.RED_COLOR,
		utils.GREEN_COLOR,
		float64(ackedStake)/float64(totalActiveStake)*100,
	)
	utils.LogWithTime(msg, utils.WHITE_COLOR)

	return true
}

// trackAnnouncementFailures counts connection-level failures per validator
// and flags repeat offenders as unreachable so later rounds skip them. Any
// ack wipes the counter.
func trackAnnouncementFailures(failedTargets []string, acks map[string]string, runtime *AnnouncementRuntime) {

	runtime.Lock()
	defer runtime.Unlock()

	for voter := range acks {
		delete(runtime.FailedRounds, voter)
	}

	for _, validatorId := range failedTargets {

		if _, acked := acks[validatorId]; acked {
			continue
		}

		runtime.FailedRounds[validatorId]++

		if runtime.FailedRounds[validatorId] >= unreachableAfterFailedRounds {

			if err := utils.MarkValidatorUnreachable(validatorId, "announcement delivery kept failing"); err == nil {

				utils.LogWithTime(
					fmt.Sprintf("Announcer: validator %s marked unreachable after %d failed rounds", validatorId, unreachableAfterFailedRounds),
					utils.YELLOW_COLOR,
				)

				delete(runtime.FailedRounds, validatorId)
			}
		}
	}
}

func cleanupAnnouncementState(taskIndex uint64, runtime *AnnouncementRuntime) {
	runtime.Lock()
	delete(runtime.AcksCache, taskIndex)
	delete(runtime.LastAttempt, taskIndex)
	runtime.Unlock()
}
