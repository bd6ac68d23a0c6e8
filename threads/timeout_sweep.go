package threads

import (
	"fmt"
	"strings"
	"time"

	"github.com/stakequorum/stakequorum-core/engine"
	"github.com/stakequorum/stakequorum-core/globals"
	"github.com/stakequorum/stakequorum-core/handlers"
	"github.com/stakequorum/stakequorum-core/utils"
)

// TimeoutSweepThread periodically fails expired pending tasks. Submission
// already refuses expired tasks lazily, so the sweep only bounds how long an
// untouched task lingers in Pending.
func TimeoutSweepThread() {

	intervalMs := globals.GENESIS.EngineParameters.TimeoutSweepIntervalMs

	if intervalMs <= 0 {
		intervalMs = 5000
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		sweepExpiredTasks()
	}
}

func sweepExpiredTasks() {

	failedIndices := handlers.CONSENSUS_ENGINE.SweepExpiredTasks()

	for _, taskIndex := range failedIndices {
		utils.LogWithTime(
			fmt.Sprintf("Timeout sweep: task %d failed - no quorum within the timeout window", taskIndex),
			utils.YELLOW_COLOR,
		)
	}

	statusCounts := handlers.CONSENSUS_ENGINE.TaskStatusCounts()

	summaryColor := utils.GREEN_COLOR
	metrics := []string{
		utils.ColoredMetric("Pending", int(statusCounts[engine.TaskPending]), utils.CYAN_COLOR, summaryColor),
		utils.ColoredMetric("Completed", int(statusCounts[engine.TaskCompleted]), utils.CYAN_COLOR, summaryColor),
		utils.ColoredMetric("Failed", int(statusCounts[engine.TaskFailed]), utils.CYAN_COLOR, summaryColor),
		utils.ColoredMetric("Challenged", int(statusCounts[engine.TaskChallenged]), utils.CYAN_COLOR, summaryColor),
		utils.ColoredMetric("Swept_now", len(failedIndices), utils.CYAN_COLOR, summaryColor),
	}
	utils.LogWithTime(
		fmt.Sprintf("Timeout sweep: Iteration summary %s", strings.Join(metrics, " ")),
		summaryColor,
	)
}
