package globals

import (
	"sort"
	"sync"

	"github.com/stakequorum/stakequorum-core/engine"
)

type AnnouncementMempool struct {
	sync.Mutex
	tasks map[uint64]engine.Task
}

// Mempool of created tasks that still await announcement to the active
// validator set. Tasks stay here until the announcement thread collected
// enough acks, so a crashed broadcast round is simply retried.

var ANNOUNCEMENT_MEMPOOL = AnnouncementMempool{
	tasks: make(map[uint64]engine.Task),
}

func (mempool *AnnouncementMempool) Add(task engine.Task) {

	mempool.Lock()

	mempool.tasks[task.Index] = task

	mempool.Unlock()

}

// List returns pending announcements ordered by task index so retries
// happen oldest-first.
func (mempool *AnnouncementMempool) List() []engine.Task {

	mempool.Lock()
	defer mempool.Unlock()

	if len(mempool.tasks) == 0 {
		return nil
	}

	tasks := make([]engine.Task, 0, len(mempool.tasks))

	for _, task := range mempool.tasks {
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Index < tasks[j].Index })

	return tasks

}

func (mempool *AnnouncementMempool) Delete(taskIndex uint64) {

	mempool.Lock()

	delete(mempool.tasks, taskIndex)

	mempool.Unlock()

}
