package websocket_pack

import (
	"fmt"

	"github.com/stakequorum/stakequorum-core/databases"
	"github.com/stakequorum/stakequorum-core/metrics_pack"
	"github.com/stakequorum/stakequorum-core/structures"
	"github.com/stakequorum/stakequorum-core/utils"
)

// FlushResultOutboxOnce delivers up to limit persisted result events to the
// connected subscribers. An event leaves the outbox only after at least one
// subscriber received it, so with nobody subscribed everything stays queued
// on disk.
func FlushResultOutboxOnce(limit int) int {

	if databases.RESULTS == nil {
		return 0
	}

	if limit <= 0 {
		limit = 50
	}

	entries, err := utils.LoadResultOutboxBatch(limit)

	if err != nil {
		utils.LogWithTime(fmt.Sprintf("Result outbox: failed to read batch: %v", err), utils.RED_COLOR)
		return 0
	}

	delivered := 0

	for _, entry := range entries {

		if !outboxEventIsIntact(entry.Event) {
			// It will never become valid, drop it so the queue keeps moving.
			// The underlying aggregated result record stays stored.
			_ = utils.DeleteResultOutboxEntry(entry.Key)
			continue
		}

		if BroadcastResultEvent(entry.Event) == 0 {
			continue
		}

		if err := utils.DeleteResultOutboxEntry(entry.Key); err == nil {
			delivered++
			metrics_pack.RESULT_EVENTS_DELIVERED.Inc()
		}
	}

	return delivered
}

// outboxEventIsIntact re-checks a finalized result against the stored
// responses right before it leaves the node. A mismatch means local state
// was damaged after finalization.
func outboxEventIsIntact(event structures.ResultEvent) bool {

	if event.Kind != "TASK_FINALIZED" {
		return true
	}

	if event.Result == nil {
		utils.LogWithTime(
			fmt.Sprintf("Result outbox: finalized event for task %d carries no result", event.TaskIndex),
			utils.RED_COLOR,
		)
		return false
	}

	responses, err := utils.LoadResponsesForTask(event.TaskIndex)

	if err != nil {
		utils.LogWithTime(
			fmt.Sprintf("Result outbox: failed to load responses for task %d: %v", event.TaskIndex, err),
			utils.RED_COLOR,
		)
		return false
	}

	if err := utils.VerifyAggregatedResultIntegrity(*event.Result, event.Payload, responses); err != nil {
		utils.LogWithTime(
			fmt.Sprintf("Result outbox: integrity check failed for task %d: %v", event.TaskIndex, err),
			utils.RED_COLOR,
		)
		return false
	}

	return true
}
