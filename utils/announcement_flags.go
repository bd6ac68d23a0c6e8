package utils

import (
	"fmt"

	"github.com/stakequorum/stakequorum-core/databases"
)

func taskAnnouncedKey(taskIndex uint64) []byte {
	return []byte(fmt.Sprintf("TASK_ANNOUNCED:%d", taskIndex))
}

// MarkTaskAnnounced records that validators holding a quorum share of stake
// acknowledged the task. Once this is set, the announcement thread stops
// re-broadcasting the task.
func MarkTaskAnnounced(taskIndex uint64) {
	_ = databases.TASKS.Put(taskAnnouncedKey(taskIndex), []byte("1"), nil)
}

func IsTaskAnnounced(taskIndex uint64) bool {
	_, err := databases.TASKS.Get(taskAnnouncedKey(taskIndex), nil)
	return err == nil
}
